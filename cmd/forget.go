package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/ncc/internal/cache"
)

var forgetCmd = &cobra.Command{
	Use:          "forget",
	Short:        "Discard the compilation state of a task",
	Long:         `Discard the compilation state of the configured task, so its next build recompiles everything.`,
	RunE:         runForget,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

func runForget(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := cache.New(cfg.CacheDir)
	if err != nil {
		return err
	}

	store.SetLogger(logger)

	if err := store.Remove(cmd.Context(), cfg.Task); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "forgot task %s\n", cfg.Task)
	return nil
}
