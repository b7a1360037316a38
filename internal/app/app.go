package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/semmidev/zkbackup/internal/adapter/notifier"
	"github.com/semmidev/zkbackup/internal/adapter/snapshot"
	"github.com/semmidev/zkbackup/internal/adapter/storage"
	"github.com/semmidev/zkbackup/internal/config"
	"github.com/semmidev/zkbackup/internal/domain"
	"github.com/semmidev/zkbackup/internal/infrastructure/clock"
	"github.com/semmidev/zkbackup/internal/infrastructure/logger"
	"github.com/semmidev/zkbackup/internal/infrastructure/scheduler"
	"github.com/semmidev/zkbackup/internal/usecase"
)

// App holds the process-wide clients. It is built once and then runs any
// number of backups.
type App struct {
	config *config.Config
	logger *logger.Logger
	store  domain.ObjectStore
	backup *usecase.Backup
}

type Option func(*options)

type options struct {
	fs    afero.Fs
	clock clock.Clock
}

// WithFs replaces the OS filesystem used for staging and the local backend.
func WithFs(fs afero.Fs) Option {
	return func(o *options) { o.fs = fs }
}

func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := options{fs: afero.NewOsFs(), clock: clock.System()}
	for _, opt := range opts {
		opt(&o)
	}

	log, err := logger.New(logger.Options{
		Level:  cfg.App.LogLevel,
		File:   cfg.App.LogFile,
		Format: cfg.App.LogFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log = log.With("app", cfg.App.Name)

	loc, err := cfg.Backup.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}

	store, err := newStore(ctx, cfg, o.fs)
	if err != nil {
		return nil, err
	}
	log.Infof("✓ Object store: %s", store.Name())

	fetcher, err := snapshot.NewHTTP(snapshot.Options{
		AdminURL: cfg.Snapshot.AdminURL,
		Timeout:  cfg.Snapshot.Timeout,
		Username: cfg.Snapshot.Username,
		Password: cfg.Snapshot.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize snapshot fetcher: %w", err)
	}
	log.Infof("✓ Snapshot source: %s", fetcher.URL())

	notif, err := newNotifier(cfg, log)
	if err != nil {
		return nil, err
	}

	pruner := usecase.NewPruner(store, cfg.Backup.RetentionPrefix, cfg.Backup.RetentionDays, log)
	backup := usecase.NewBackup(
		fetcher,
		store,
		usecase.NewStaging(o.fs, cfg.Snapshot.StagingDir),
		pruner,
		notif,
		clock.In(o.clock, loc),
		log,
		usecase.BackupOptions{
			KeyPrefix: cfg.Backup.KeyPrefix,
			Strict:    cfg.Backup.Strict,
		},
	)

	return &App{
		config: cfg,
		logger: log,
		store:  store,
		backup: backup,
	}, nil
}

func newStore(ctx context.Context, cfg *config.Config, fs afero.Fs) (domain.ObjectStore, error) {
	switch cfg.Storage.Type {
	case config.StorageS3:
		s, err := storage.NewS3(ctx, storage.S3Options{
			Region:    cfg.Storage.Region,
			Bucket:    cfg.Storage.Bucket,
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			PathStyle: cfg.Storage.PathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3: %w", err)
		}
		return s, nil

	case config.StorageGCS:
		s, err := storage.NewGCS(ctx, cfg.Storage.Bucket, cfg.Storage.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize GCS: %w", err)
		}
		return s, nil

	case config.StorageLocal:
		s, err := storage.NewLocal(fs, cfg.Storage.LocalPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local storage: %w", err)
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}
}

func newNotifier(cfg *config.Config, log *logger.Logger) (domain.Notifier, error) {
	t := cfg.Notify.Telegram
	if !t.Enabled {
		return notifier.Nop{}, nil
	}

	n, err := notifier.NewTelegram(notifier.TelegramOptions{
		BotToken:  t.BotToken,
		ChatID:    t.ChatID,
		OnSuccess: t.OnSuccess,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram: %w", err)
	}
	log.Infof("✓ Telegram notifications enabled")
	return n, nil
}

func (a *App) Logger() *logger.Logger {
	return a.logger
}

// RunOnce performs one backup. An empty invocationID gets a fresh UUID.
func (a *App) RunOnce(ctx context.Context, invocationID string) domain.Result {
	if invocationID == "" {
		invocationID = uuid.NewString()
	}
	return a.backup.Execute(ctx, invocationID)
}

// Schedule runs a backup on every activation of backup.schedule until ctx
// is cancelled.
func (a *App) Schedule(ctx context.Context) error {
	loc, err := a.config.Backup.Location()
	if err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}

	sched := scheduler.New(a.logger.StdLog(), loc)
	id, err := sched.AddJob(a.config.Backup.Schedule, func(ctx context.Context) error {
		a.logger.Infof("=== Triggered scheduled backup ===")
		if result := a.RunOnce(ctx, ""); !result.OK() {
			return errors.New(result.Body)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to schedule backup %q: %w", a.config.Backup.Schedule, err)
	}

	sched.Start()
	a.logger.Infof("Scheduler started, next backup at %s", sched.Next(id).Format("2006-01-02 15:04:05 MST"))

	<-ctx.Done()
	sched.Stop()
	return nil
}

func (a *App) Shutdown() {
	a.logger.Infof("Shutting down application...")
	if c, ok := a.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.logger.Warnf("Failed to close %s: %v", a.store.Name(), err)
		}
	}
	a.logger.Close()
}
