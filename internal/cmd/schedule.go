package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/semmidev/zkbackup/internal/app"
	"github.com/semmidev/zkbackup/internal/config"
)

type ScheduleOptions struct {
	*RootOptions

	Schedule string

	config *config.Config
}

func NewScheduleCommand(root *RootOptions) *cobra.Command {
	o := &ScheduleOptions{RootOptions: root}

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run backups on a cron schedule until interrupted",
		Example: `  # Back up daily at 02:00 (the default)
  zkbackup schedule --config configs/config.yaml

  # Back up every six hours
  zkbackup schedule --cron "0 0 */6 * * *"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(); err != nil {
				return err
			}
			return o.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&o.Schedule, "cron", "", "Six-field cron expression overriding backup.schedule")

	return cmd
}

func (o *ScheduleOptions) Complete(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if o.Schedule != "" {
		cfg.Backup.Schedule = o.Schedule
	}
	o.config = cfg
	return nil
}

func (o *ScheduleOptions) Validate() error {
	if o.config == nil {
		return errors.New("config not loaded")
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(o.config.Backup.Schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", o.config.Backup.Schedule, err)
	}
	return nil
}

func (o *ScheduleOptions) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, err := app.New(ctx, o.config)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer application.Shutdown()

	return application.Schedule(ctx)
}
