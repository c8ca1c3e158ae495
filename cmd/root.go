package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/ncc/internal/codes"
	"github.com/Norgate-AV/ncc/internal/config"
	"github.com/Norgate-AV/ncc/internal/version"
)

// options is the static table of flags shared by every command
var options = config.Options()

var rootCmd = &cobra.Command{
	Use:   "ncc [sources...]",
	Short: "Incremental native compiler",
	Long: `Compile C and C++ sources with a native compiler, recompiling only the
sources whose content or included headers changed since the last successful build.`,
	RunE:         runBuild,
	SilenceUsage: true,
	Args:         cobra.ArbitraryArgs,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		code := codes.FromError(err)
		log.Debug("exiting", "code", code, "reason", codes.GetErrorMessage(code))
		os.Exit(code)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (%s) %s", version.Version, version.Commit, version.BuildTime)
	options.AddFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(forgetCmd)
}

// loadConfig resolves the configuration of cmd and installs the matching logger as default
func loadConfig(cmd *cobra.Command) (*config.Config, *log.Logger, error) {
	cfg, err := config.NewLoader(options).Load(cmd)
	if err != nil {
		return nil, nil, err
	}

	logger := newLogger(cfg, cmd.ErrOrStderr())
	log.SetDefault(logger)

	return cfg, logger, nil
}

func newLogger(cfg *config.Config, w io.Writer) *log.Logger {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}

	formatter := log.TextFormatter
	switch cfg.LogFormat {
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	}

	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: cfg.Verbose,
		TimeFormat:      time.TimeOnly,
		Prefix:          "ncc",
	})
}
