package usecase

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/multierr"

	"github.com/semmidev/zkbackup/internal/domain"
	"github.com/semmidev/zkbackup/internal/infrastructure/clock"
)

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

type BackupOptions struct {
	KeyPrefix string

	// Strict turns staging cleanup and prune failures into a failed result.
	// By default they are reported as warnings once the upload succeeded.
	Strict bool
}

// Backup runs one snapshot backup: fetch, read, upload, remove the staging
// file, prune.
type Backup struct {
	fetcher  domain.SnapshotFetcher
	store    domain.ObjectStore
	staging  *Staging
	pruner   *Pruner
	notifier domain.Notifier
	clock    clock.Clock
	logger   Logger
	opts     BackupOptions
}

func NewBackup(
	fetcher domain.SnapshotFetcher,
	store domain.ObjectStore,
	staging *Staging,
	pruner *Pruner,
	notifier domain.Notifier,
	clk clock.Clock,
	logger Logger,
	opts BackupOptions,
) *Backup {
	return &Backup{
		fetcher:  fetcher,
		store:    store,
		staging:  staging,
		pruner:   pruner,
		notifier: notifier,
		clock:    clk,
		logger:   logger,
		opts:     opts,
	}
}

// Execute never returns an error; every failure ends up in the result.
func (uc *Backup) Execute(ctx context.Context, invocationID string) domain.Result {
	start := time.Now()
	now := uc.clock.Now()
	key := ObjectKey(uc.opts.KeyPrefix, now)

	uc.logger.Infof("[%s] Starting snapshot backup to %s/%s", invocationID, uc.store.Name(), key)

	result := uc.run(ctx, invocationID, now, key)
	result.InvocationID = invocationID

	if result.OK() {
		uc.logger.Infof("[%s] Backup completed in %s: %s",
			invocationID, time.Since(start).Round(time.Millisecond), key)
	} else {
		uc.logger.Errorf("[%s] Backup failed (%s): %s", invocationID, result.Kind, result.Body)
	}

	if err := uc.notifier.Notify(ctx, result); err != nil {
		uc.logger.Warnf("[%s] Notification failed: %v", invocationID, err)
	}

	return result
}

func (uc *Backup) run(ctx context.Context, id string, now time.Time, key string) domain.Result {
	path, err := uc.staging.Prepare(id)
	if err != nil {
		return failure(err)
	}

	// The fetcher removes its own partial file on failure.
	size, err := uc.fetcher.Fetch(ctx, uc.staging.Fs(), path)
	if err != nil {
		return failure(err)
	}
	uc.logger.Infof("[%s] Snapshot fetched to %s, size: %.2f MB", id, path, float64(size)/(1024*1024))

	data, err := uc.staging.Read(path)
	if err != nil {
		uc.removeStaging(id, path)
		return failure(err)
	}

	uc.logger.Infof("[%s] Uploading to %s...", id, uc.store.Name())
	if err := uc.store.Put(ctx, key, data); err != nil {
		uc.removeStaging(id, path)
		return failure(err)
	}
	uc.logger.Infof("[%s] Successfully uploaded %s", id, key)

	var warnings error
	if err := uc.staging.Remove(path); err != nil {
		warnings = multierr.Append(warnings, err)
	}

	pruned, err := uc.pruner.Prune(ctx, now, key)
	if err != nil {
		warnings = multierr.Append(warnings, err)
	}

	if warnings != nil && uc.opts.Strict {
		result := failure(warnings)
		result.Kind = domain.KindOf(multierr.Errors(warnings)[0])
		result.Key = key
		result.Pruned = pruned
		return result
	}

	result := domain.Result{
		StatusCode: http.StatusOK,
		Body:       fmt.Sprintf("Snapshot uploaded successfully: %s", key),
		Key:        key,
		Pruned:     pruned,
	}
	for _, w := range multierr.Errors(warnings) {
		uc.logger.Warnf("[%s] %v", id, w)
		result.Warnings = append(result.Warnings, w.Error())
	}
	return result
}

// removeStaging is the cleanup on a failed path; its own failure is only
// logged so the step that failed is what gets reported.
func (uc *Backup) removeStaging(id, path string) {
	if err := uc.staging.Remove(path); err != nil {
		uc.logger.Warnf("[%s] %v", id, err)
	}
}

func failure(err error) domain.Result {
	return domain.Result{
		StatusCode: http.StatusInternalServerError,
		Body:       fmt.Sprintf("Error: %v", err),
		Kind:       domain.KindOf(err),
	}
}
