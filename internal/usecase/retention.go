package usecase

import (
	"context"
	"time"

	"github.com/semmidev/zkbackup/internal/domain"
)

type Pruner struct {
	store         domain.ObjectStore
	prefix        string
	retentionDays int
	logger        Logger
}

func NewPruner(store domain.ObjectStore, prefix string, retentionDays int, logger Logger) *Pruner {
	return &Pruner{
		store:         store,
		prefix:        prefix,
		retentionDays: retentionDays,
		logger:        logger,
	}
}

// Cutoff is now minus the retention window in calendar days.
func (p *Pruner) Cutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -p.retentionDays)
}

// Prune deletes every object under the prefix last modified strictly before
// the cutoff, except keep. A zero retention disables pruning.
func (p *Pruner) Prune(ctx context.Context, now time.Time, keep string) (int, error) {
	if p.retentionDays <= 0 {
		p.logger.Infof("Retention disabled, skipping prune")
		return 0, nil
	}

	cutoff := p.Cutoff(now)
	p.logger.Infof("Pruning %s under %q older than %s (retention: %d days)",
		p.store.Name(), p.prefix, cutoff.Format(time.RFC3339), p.retentionDays)

	var stale []string
	err := p.store.ListPages(ctx, p.prefix, func(page []domain.ObjectInfo) error {
		for _, obj := range page {
			if obj.Key == keep {
				continue
			}
			if obj.LastModified.Before(cutoff) {
				stale = append(stale, obj.Key)
			}
		}
		return nil
	})
	if err != nil {
		return 0, domain.E(domain.KindRetention, "prune "+p.prefix, err)
	}

	if len(stale) == 0 {
		p.logger.Infof("No old backups to delete")
		return 0, nil
	}

	for _, key := range stale {
		p.logger.Infof("Deleting old backup: %s", key)
	}

	deleted, err := p.store.DeleteMany(ctx, stale)
	if err != nil {
		return deleted, domain.E(domain.KindRetention, "prune "+p.prefix, err)
	}

	p.logger.Infof("Deleted %d old backup(s) from %s", deleted, p.store.Name())
	return deleted, nil
}
