package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/google/shlex"
	"github.com/spf13/viper"

	"github.com/Norgate-AV/ncc/internal/cache"
	"github.com/Norgate-AV/ncc/internal/utils"
)

// Default configuration values
const (
	DefaultCompilerPath = "cc"
	DefaultObjectDir    = "build/obj"
	DefaultTask         = "default"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
)

var (
	LogLevels  = []string{"debug", "info", "warn", "error"}
	LogFormats = []string{"text", "json", "logfmt"}
)

// ErrInvalid marks configuration that cannot be used
var ErrInvalid = errors.New("invalid configuration")

// Options returns the registry of every option ncc understands
func Options() *OptionRegistry {
	r := NewOptionRegistry()

	for _, o := range []Option{
		{Name: "compiler-path", Key: "compiler_path", Kind: StringOption, Default: DefaultCompilerPath, Usage: "Native compiler binary"},
		{Name: "flags", Key: "flags", Kind: StringOption, Default: "", Usage: "Compiler flags, shell quoted"},
		{Name: "include", Key: "includes", Short: "I", Kind: StringListOption, Default: []string{}, Usage: "Include search path directories, in order"},
		{Name: "object-dir", Key: "object_dir", Short: "o", Kind: StringOption, Default: DefaultObjectDir, Usage: "Directory for object files"},
		{Name: "cache-dir", Key: "cache_dir", Kind: StringOption, Default: cache.DefaultCacheDir, Usage: "Directory for compilation state"},
		{Name: "task", Key: "task", Short: "t", Kind: StringOption, Default: DefaultTask, Usage: "Task identity owning the compilation state"},
		{Name: "clean", Key: "clean", Kind: BoolOption, Default: false, Usage: "Discard compilation state and rebuild everything"},
		{Name: "jobs", Key: "jobs", Short: "j", Kind: IntOption, Default: 0, Usage: "Parallel jobs (0 means one per CPU)"},
		{Name: "verbose", Key: "verbose", Short: "v", Kind: BoolOption, Default: false, Usage: "Verbose output"},
		{Name: "log-level", Key: "log_level", Kind: EnumOption, Default: DefaultLogLevel, Values: LogLevels, Usage: "Log level"},
		{Name: "log-format", Key: "log_format", Kind: EnumOption, Default: DefaultLogFormat, Values: LogFormats, Usage: "Log format"},
	} {
		if err := r.Register(o); err != nil {
			panic(err)
		}
	}

	return r
}

// Holds the configuration options for ncc
type Config struct {
	// Path to the native compiler
	CompilerPath string

	// Flags passed to every compiler invocation
	Flags []string

	// Include search path, canonical and in order
	Includes []string

	// Output directory for object files
	ObjectDir string

	// Root of the compilation state store
	CacheDir string

	// Task identity
	Task string

	// Ignore previous state
	Clean bool

	// Parallel jobs
	Jobs int

	// Enable verbose output
	Verbose bool

	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	cfg := &Config{
		CompilerPath: viper.GetString("compiler_path"),
		Includes:     viper.GetStringSlice("includes"),
		ObjectDir:    viper.GetString("object_dir"),
		CacheDir:     viper.GetString("cache_dir"),
		Task:         viper.GetString("task"),
		Clean:        viper.GetBool("clean"),
		Jobs:         viper.GetInt("jobs"),
		Verbose:      viper.GetBool("verbose"),
		LogLevel:     strings.ToLower(viper.GetString("log_level")),
		LogFormat:    strings.ToLower(viper.GetString("log_format")),
	}

	flags, err := shlex.Split(viper.GetString("flags"))
	if err != nil {
		return nil, fmt.Errorf("%w: flags: %v", ErrInvalid, err)
	}

	cfg.Flags = flags

	// Apply defaults if not set
	if cfg.CompilerPath == "" {
		cfg.CompilerPath = DefaultCompilerPath
	}

	if cfg.ObjectDir == "" {
		cfg.ObjectDir = DefaultObjectDir
	}

	if cfg.CacheDir == "" {
		cfg.CacheDir = cache.DefaultCacheDir
	}

	if cfg.Task == "" {
		cfg.Task = DefaultTask
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	if cfg.LogFormat == "" {
		cfg.LogFormat = DefaultLogFormat
	}

	if cfg.Verbose {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	// A bare command name is looked up on PATH, anything else is a path
	if strings.ContainsRune(c.CompilerPath, filepath.Separator) || strings.Contains(c.CompilerPath, "/") {
		abs, err := filepath.Abs(c.CompilerPath)
		if err != nil {
			return fmt.Errorf("%w: compiler path: %v", ErrInvalid, err)
		}

		c.CompilerPath = abs
	}

	includes, err := utils.CanonicalPaths(c.Includes)
	if err != nil {
		return fmt.Errorf("%w: include path: %v", ErrInvalid, err)
	}

	c.Includes = includes

	if c.ObjectDir, err = filepath.Abs(c.ObjectDir); err != nil {
		return fmt.Errorf("%w: object directory: %v", ErrInvalid, err)
	}

	if c.CacheDir, err = filepath.Abs(c.CacheDir); err != nil {
		return fmt.Errorf("%w: cache directory: %v", ErrInvalid, err)
	}

	if strings.TrimSpace(c.Task) == "" {
		return fmt.Errorf("%w: task identity is empty", ErrInvalid)
	}

	if c.Jobs < 0 {
		return fmt.Errorf("%w: jobs must not be negative, got %d", ErrInvalid, c.Jobs)
	}

	if c.Jobs == 0 {
		c.Jobs = runtime.NumCPU()
	}

	if !slices.Contains(LogLevels, c.LogLevel) {
		return fmt.Errorf("%w: log level %q", ErrInvalid, c.LogLevel)
	}

	if !slices.Contains(LogFormats, c.LogFormat) {
		return fmt.Errorf("%w: log format %q", ErrInvalid, c.LogFormat)
	}

	return nil
}
