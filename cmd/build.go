package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/ncc/internal/cache"
	"github.com/Norgate-AV/ncc/internal/compiler"
	"github.com/Norgate-AV/ncc/internal/config"
	"github.com/Norgate-AV/ncc/internal/scan"
)

var buildCmd = &cobra.Command{
	Use:          "build [sources...]",
	Short:        "Compile sources incrementally",
	Long:         `Compile the given sources, skipping those unchanged since the last successful build of the task.`,
	RunE:         runBuild,
	SilenceUsage: true,
	Args:         cobra.ArbitraryArgs,
}

// newNativeCompiler creates the compiler that does the actual work
var newNativeCompiler = func(cfg *config.Config, logger *log.Logger) compiler.Compiler {
	c := compiler.NewExecCompiler(cfg.CompilerPath, cfg.Jobs)
	c.SetLogger(logger)

	return c
}

func runBuild(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no sources given", config.ErrInvalid)
	}

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := cache.New(cfg.CacheDir)
	if err != nil {
		return err
	}

	store.SetLogger(logger)

	scanner := scan.New(nil)
	scanner.SetLogger(logger)

	builder := compiler.NewBuilder(store, cache.NewFileHasher(nil), scanner, cfg.Task).
		WithIncludes(cfg.Includes).
		WithJobs(cfg.Jobs).
		WithLogger(logger)

	if cfg.Clean {
		builder.WithCleanCompile()
	}

	logger.Debug("configuration",
		"compiler", cfg.CompilerPath,
		"flags", cfg.Flags,
		"includes", cfg.Includes,
		"objects", cfg.ObjectDir,
		"cache", cfg.CacheDir,
		"clean", cfg.Clean)

	c := builder.Build(newNativeCompiler(cfg, logger))

	res, err := c.Compile(cmd.Context(), compiler.Spec{
		Sources:     args,
		Flags:       cfg.Flags,
		IncludeDirs: cfg.Includes,
		ObjectDir:   cfg.ObjectDir,
	})

	if res != nil {
		printSummary(cmd.OutOrStdout(), res)
	}

	return err
}

func printSummary(w io.Writer, res *compiler.Result) {
	if !res.Success {
		fmt.Fprintf(w, "build failed: %d of %d file(s) did not compile\n", len(res.Failures), len(res.Failures)+len(res.Recompiled))
		return
	}

	if len(res.Recompiled) == 0 {
		fmt.Fprintf(w, "up to date (%d source(s))\n", len(res.Skipped))
	} else {
		fmt.Fprintf(w, "compiled %d, up to date %d\n", len(res.Recompiled), len(res.Skipped))
	}

	if len(res.Removed) > 0 {
		fmt.Fprintf(w, "forgot %d removed source(s)\n", len(res.Removed))
	}
}
