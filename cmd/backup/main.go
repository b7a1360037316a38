// cmd/backup/main.go
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/semmidev/zkbackup/internal/cmd"
)

func main() {
	if err := cmd.NewRootCommand().Execute(); err != nil {
		if !errors.Is(err, cmd.ErrBackupFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
