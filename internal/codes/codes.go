package codes

import (
	"context"
	"errors"

	"github.com/Norgate-AV/ncc/internal/cache"
	"github.com/Norgate-AV/ncc/internal/compiler"
	"github.com/Norgate-AV/ncc/internal/config"
	"github.com/Norgate-AV/ncc/internal/scan"
)

// Exit codes of the ncc command
const (
	Success        = 0
	GeneralFailure = 1
	CompileFailed  = 2
	InvalidConfig  = 3
	InputError     = 4
	CacheError     = 5
	Interrupted    = 130
)

// ErrorCodes maps ncc exit codes to their descriptions
var ErrorCodes = map[int]string{
	Success:        "Success",
	GeneralFailure: "General failure",
	CompileFailed:  "Compile errors",
	InvalidConfig:  "Invalid configuration",
	InputError:     "Cannot read source or header",
	CacheError:     "Compilation state unavailable",
	Interrupted:    "Interrupted",
}

// IsSuccess returns true if the exit code indicates a successful build
func IsSuccess(code int) bool {
	return code == Success
}

// GetErrorMessage returns the error message for a given exit code, or a generic message if unknown
func GetErrorMessage(code int) string {
	if msg, ok := ErrorCodes[code]; ok {
		return msg
	}

	return "Unknown error"
}

// FromError classifies an error returned by a build
func FromError(err error) int {
	var (
		ioErr   *cache.IOError
		scanErr *scan.ScanError
	)

	switch {
	case err == nil:
		return Success
	case errors.Is(err, context.Canceled):
		return Interrupted
	case errors.Is(err, compiler.ErrCompileFailed):
		return CompileFailed
	case errors.Is(err, config.ErrInvalid):
		return InvalidConfig
	case errors.As(err, &ioErr), errors.As(err, &scanErr):
		return InputError
	case errors.Is(err, cache.ErrLockUnavailable):
		return CacheError
	default:
		return GeneralFailure
	}
}
