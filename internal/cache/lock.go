package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrLockUnavailable reports that the task lock could not be acquired
var ErrLockUnavailable = errors.New("task lock unavailable")

// errBusy is returned by tryLockTask when another holder owns the lock
var errBusy = errors.New("task lock held by another build")

// lockTask blocks until the exclusive lock at path is held.
// flock(2) puts the caller to sleep in the kernel, nothing spins.
// If ctx is cancelled first, the pending acquisition is released as soon as it lands.
func lockTask(ctx context.Context, path string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fl := flock.New(path)
	acquired := make(chan error, 1)

	go func() {
		acquired <- fl.Lock()
	}()

	select {
	case err := <-acquired:
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLockUnavailable, path, err)
		}

		return func() { _ = fl.Unlock() }, nil

	case <-ctx.Done():
		go func() {
			if err := <-acquired; err == nil {
				_ = fl.Unlock()
			}
		}()

		return nil, ctx.Err()
	}
}

// tryLockTask acquires the lock at path only if it is free
func tryLockTask(path string) (func(), error) {
	fl := flock.New(path)

	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLockUnavailable, path, err)
	}

	if !ok {
		return nil, errBusy
	}

	return func() { _ = fl.Unlock() }, nil
}
