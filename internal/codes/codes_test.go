package codes

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Norgate-AV/ncc/internal/cache"
	"github.com/Norgate-AV/ncc/internal/compiler"
	"github.com/Norgate-AV/ncc/internal/config"
	"github.com/Norgate-AV/ncc/internal/scan"
)

func TestGetErrorMessage(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{Success, "Success"},
		{CompileFailed, "Compile errors"},
		{InvalidConfig, "Invalid configuration"},
		{Interrupted, "Interrupted"},
		{999, "Unknown error"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, GetErrorMessage(tt.code), "GetErrorMessage(%d)", tt.code)
	}
}

func TestIsSuccess(t *testing.T) {
	assert.True(t, IsSuccess(Success))
	assert.False(t, IsSuccess(CompileFailed))
	assert.False(t, IsSuccess(GeneralFailure))
}

func TestFromError(t *testing.T) {
	failed := (&compiler.Result{Failures: []compiler.Failure{{Path: "a.c", Message: "boom"}}}).Err()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, Success},
		{"cancelled", fmt.Errorf("build: %w", context.Canceled), Interrupted},
		{"compile failure", failed, CompileFailed},
		{"config", fmt.Errorf("%w: log level", config.ErrInvalid), InvalidConfig},
		{"unreadable source", &cache.IOError{Path: "a.c", Err: os.ErrNotExist}, InputError},
		{"unreadable header", &scan.ScanError{Path: "a.h", Err: os.ErrPermission}, InputError},
		{"lock", fmt.Errorf("%w: timeout", cache.ErrLockUnavailable), CacheError},
		{"other", errors.New("boom"), GeneralFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromError(tt.err))
		})
	}
}
