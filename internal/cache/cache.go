// Package cache persists the incremental compilation state of native compile tasks.
//
// Each task identity gets its own directory under the cache root:
//
//	<root>/tasks/<key>/lock      exclusive file lock, held for a whole compile
//	<root>/tasks/<key>/state.db  BoltDB database with the encoded State
//
// Keeping one database per task means two builds of different tasks never
// contend on the same file, while two builds of the same task are serialized
// by the lock, whether they run in one process or several.
//
// The database is only opened while the lock is held, and the handle given to
// callers (TaskCache) is only valid inside the WithLock body.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"go.etcd.io/bbolt"
)

const (
	// DefaultCacheDir is the default cache directory name
	DefaultCacheDir = ".ncc-cache"

	// bucketName is the BoltDB bucket holding task data
	bucketName = "compile"

	// stateKey is the key of the encoded State inside bucketName
	stateKey = "state"

	// taskKey records the task identity, so the directory can be listed later
	taskKey = "task"

	lockFile  = "lock"
	stateFile = "state.db"
)

// Store is the root of all task caches
type Store struct {
	root   string
	logger *log.Logger
}

// New creates a new store instance
// If cacheDir is empty, uses DefaultCacheDir in current working directory
func New(cacheDir string) (*Store, error) {
	if cacheDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}

		cacheDir = filepath.Join(cwd, DefaultCacheDir)
	}

	if err := os.MkdirAll(filepath.Join(cacheDir, "tasks"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &Store{
		root:   cacheDir,
		logger: log.Default(),
	}, nil
}

// SetLogger replaces the logger used for recoverable cache problems
func (s *Store) SetLogger(l *log.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Root returns the cache root directory
func (s *Store) Root() string {
	return s.root
}

// WithLock runs fn while holding the exclusive lock of taskID.
// The lock is released on every exit path, including panics in fn.
func (s *Store) WithLock(ctx context.Context, taskID string, fn func(tc *TaskCache) error) error {
	if strings.TrimSpace(taskID) == "" {
		return errors.New("task id is required")
	}

	dir := s.taskDir(taskID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrLockUnavailable, err)
	}

	unlock, err := lockTask(ctx, filepath.Join(dir, lockFile))
	if err != nil {
		return err
	}
	defer unlock()

	db, err := s.openDB(dir)
	if err != nil {
		return err
	}
	defer db.Close()

	tc := &TaskCache{id: taskID, db: db, logger: s.logger.With("task", taskID)}
	if err := tc.Put(taskKey, []byte(taskID)); err != nil {
		return err
	}

	return fn(tc)
}

// openDB opens the task database. An unreadable database file is moved aside
// and recreated, which costs a full rebuild instead of a failed one.
func (s *Store) openDB(dir string) (*bbolt.DB, error) {
	path := filepath.Join(dir, stateFile)

	db, err := openBolt(path)
	if err == nil {
		return db, nil
	}

	if errors.Is(err, bbolt.ErrTimeout) {
		return nil, fmt.Errorf("%w: %v", ErrLockUnavailable, err)
	}

	s.logger.Warn("discarding unreadable cache database", "path", path, "err", err)

	if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
		return nil, fmt.Errorf("failed to remove corrupt cache database: %w", rmErr)
	}

	db, err = openBolt(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	return db, nil
}

func openBolt(path string) (*bbolt.DB, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Remove deletes the persisted state of taskID
func (s *Store) Remove(ctx context.Context, taskID string) error {
	dir := s.taskDir(taskID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}

	unlock, err := lockTask(ctx, filepath.Join(dir, lockFile))
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.Remove(filepath.Join(dir, stateFile)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove task state: %w", err)
	}

	return nil
}

// TaskInfo summarizes one task cache
type TaskInfo struct {
	ID        string
	Dir       string
	Size      int64
	Sources   int
	Headers   int
	BuildID   string
	UpdatedAt time.Time

	// Busy is set when another build held the lock, the counts are then unknown
	Busy bool
}

// Tasks lists every task that has a database under the store root.
// Tasks that are currently being compiled are reported as busy instead of waited for.
func (s *Store) Tasks() ([]TaskInfo, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, "tasks"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var infos []TaskInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dir := filepath.Join(s.root, "tasks", entry.Name())
		fi, err := os.Stat(filepath.Join(dir, stateFile))
		if err != nil {
			continue
		}

		info := TaskInfo{Dir: dir, Size: fi.Size()}

		unlock, err := tryLockTask(filepath.Join(dir, lockFile))
		if errors.Is(err, errBusy) {
			info.Busy = true
			infos = append(infos, info)
			continue
		}

		if err != nil {
			return nil, err
		}

		s.describe(dir, &info)
		unlock()

		infos = append(infos, info)
	}

	slices.SortFunc(infos, func(a, b TaskInfo) int {
		return strings.Compare(a.ID, b.ID)
	})

	return infos, nil
}

func (s *Store) describe(dir string, info *TaskInfo) {
	db, err := bbolt.Open(filepath.Join(dir, stateFile), 0o600, &bbolt.Options{Timeout: 1 * time.Second, ReadOnly: true})
	if err != nil {
		s.logger.Warn("failed to open task database", "dir", dir, "err", err)
		return
	}
	defer db.Close()

	tc := &TaskCache{db: db, logger: s.logger}
	if id, err := tc.Get(taskKey); err == nil {
		info.ID = string(id)
	}

	data, err := tc.Get(stateKey)
	if err != nil || data == nil {
		return
	}

	st, err := DecodeState(data)
	if err != nil {
		return
	}

	info.Sources = len(st.Sources)
	info.Headers = len(st.Headers)
	info.BuildID = st.BuildID
	info.UpdatedAt = st.UpdatedAt
}

// taskDir returns the directory for a task; ids are hashed so any string is a valid id
func (s *Store) taskDir(taskID string) string {
	sum := sha256.Sum256([]byte(taskID))
	return filepath.Join(s.root, "tasks", hex.EncodeToString(sum[:8]))
}

// TaskCache is the locked view of one task's persisted data
type TaskCache struct {
	id     string
	db     *bbolt.DB
	logger *log.Logger
}

// ID returns the task identity
func (tc *TaskCache) ID() string {
	return tc.id
}

// Get returns the bytes stored under key, or nil if absent
func (tc *TaskCache) Get(key string) ([]byte, error) {
	var out []byte

	err := tc.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}

		if data := b.Get([]byte(key)); data != nil {
			out = slices.Clone(data)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	return out, nil
}

// Put stores bytes under key in a single transaction
func (tc *TaskCache) Put(key string, value []byte) error {
	err := tc.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}

	return nil
}

// Load returns the persisted state, or an empty one when there is none,
// when it cannot be decoded, or when it was recorded for another search path
func (tc *TaskCache) Load(searchPath []string) (*State, error) {
	data, err := tc.Get(stateKey)
	if err != nil {
		tc.logger.Warn("failed to read compilation state, rebuilding", "err", err)
		return NewState(searchPath), nil
	}

	if data == nil {
		tc.logger.Debug("no previous compilation state")
		return NewState(searchPath), nil
	}

	st, err := DecodeState(data)
	if err != nil {
		tc.logger.Warn("discarding compilation state", "err", err)
		return NewState(searchPath), nil
	}

	if !slices.Equal(st.SearchPath, searchPath) {
		tc.logger.Info("include search path changed, rebuilding", "previous", st.SearchPath, "current", searchPath)
		return NewState(searchPath), nil
	}

	return st, nil
}

// Save replaces the persisted state atomically
func (tc *TaskCache) Save(st *State) error {
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now()
	}

	data, err := EncodeState(st)
	if err != nil {
		return err
	}

	return tc.Put(stateKey, data)
}

// Delete removes the persisted state
func (tc *TaskCache) Delete() error {
	err := tc.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(stateKey))
	})
	if err != nil {
		return fmt.Errorf("failed to delete compilation state: %w", err)
	}

	return nil
}
