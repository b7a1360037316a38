// Package cmd holds the zkbackup command line.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Injected at build time using ldflags.
	version = ""
	commit  = ""
)

// IOStreams are the standard streams commands write to.
type IOStreams struct {
	Out    io.Writer
	ErrOut io.Writer
}

// RootOptions are shared by every subcommand.
type RootOptions struct {
	IOStreams

	ConfigPath string
}

func NewRootCommand() *cobra.Command {
	return NewRootCommandWithArgs(&RootOptions{
		IOStreams: IOStreams{Out: os.Stdout, ErrOut: os.Stderr},
	})
}

// NewRootCommandWithArgs creates the `zkbackup` command and its children.
func NewRootCommandWithArgs(o *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "zkbackup [command]",
		Version:               versionInfo(),
		DisableFlagsInUseLine: true,
		Short:                 "Back up ZooKeeper snapshots to object storage",
		Long: `zkbackup downloads a snapshot from the ZooKeeper AdminServer, uploads it
to object storage under a dated key and prunes backups past the retention
window. Settings come from an optional YAML file and the environment.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVarP(&o.ConfigPath, "config", "c", "", "Path to a YAML config file (environment only when empty)")

	cmd.AddCommand(NewRunCommand(o))
	cmd.AddCommand(NewScheduleCommand(o))

	return cmd
}

func versionInfo() string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("%s (commit: %s)", version, commit)
}
