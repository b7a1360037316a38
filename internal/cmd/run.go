package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/semmidev/zkbackup/internal/app"
	"github.com/semmidev/zkbackup/internal/config"
	"github.com/semmidev/zkbackup/internal/usecase"
)

// ErrBackupFailed is returned by `run` when the backup result is a failure.
// The result itself has already been printed.
var ErrBackupFailed = errors.New("backup failed")

type RunOptions struct {
	*RootOptions

	InvocationID string

	config *config.Config
}

func NewRunCommand(root *RootOptions) *cobra.Command {
	o := &RunOptions{RootOptions: root}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Take one snapshot backup and print the result as JSON",
		Example: `  # Back up using environment variables only
  ZK_ADMIN_URL=http://zk-0:8080 REGION=eu-west-1 ZK_BACK_FOLDER_NAME=zk-backups zkbackup run

  # Back up using a config file
  zkbackup run --config configs/config.yaml`,
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

	cmd.Flags().StringVar(&o.InvocationID, "invocation-id", "", "ID used for the staging file and logs (random when empty)")

	return cmd
}

func (o *RunOptions) Complete(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	o.config = cfg
	return nil
}

func (o *RunOptions) Validate() error {
	if o.config == nil {
		return errors.New("config not loaded")
	}
	if o.InvocationID != "" {
		if err := usecase.ValidateInvocationID(o.InvocationID); err != nil {
			return err
		}
	}
	return nil
}

func (o *RunOptions) Run(ctx context.Context) error {
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

	result := application.RunOnce(ctx, o.InvocationID)

	enc := json.NewEncoder(o.Out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	if !result.OK() {
		return ErrBackupFailed
	}
	return nil
}
