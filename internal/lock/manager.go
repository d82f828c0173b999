package lock

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"office-tools-server/internal/filesystem"
)

var (
	// ErrLockTimeout is returned when acquiring a lock times out.
	ErrLockTimeout = fmt.Errorf("timeout acquiring lock")
	// ErrPathRequired is returned when the document path is empty.
	ErrPathRequired = fmt.Errorf("document path is required")
	// ErrNilLock is returned when a nil lock handle is provided to ReleaseLock.
	ErrNilLock = fmt.Errorf("nil lock handle")
)

// shortPollInterval is the interval to sleep when polling for a lock.
const shortPollInterval = 10 * time.Millisecond

// Manager hands out advisory OS locks for documents. Lock files are kept in
// a dedicated directory and named after the SHA-256 of the absolute
// document path, so documents never get a sibling ".lock" file.
type Manager struct {
	lockDir string
}

var _ Locker = (*Manager)(nil)

// NewManager creates the lock directory if needed, checks that lock files
// can be created in it and returns a Manager.
func NewManager(lockDir string) (*Manager, error) {
	if lockDir == "" {
		lockDir = filepath.Join(os.TempDir(), "office-tools-locks")
	}
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create lock directory %s: %w", lockDir, err)
	}
	if err := filesystem.CheckDirectoryIsWritable(lockDir); err != nil {
		return nil, fmt.Errorf("lock directory is not usable: %w", err)
	}
	return &Manager{lockDir: lockDir}, nil
}

// LockDir returns the directory holding the lock files.
func (m *Manager) LockDir() string {
	return m.lockDir
}

// LockPathFor returns the lock file used for documentPath.
func (m *Manager) LockPathFor(documentPath string) string {
	abs, err := filepath.Abs(documentPath)
	if err != nil {
		abs = filepath.Clean(documentPath)
	}
	sum := sha256.Sum256([]byte(abs))
	return filepath.Join(m.lockDir, hex.EncodeToString(sum[:])+".lock")
}

// AcquireLock attempts to acquire an exclusive lock for documentPath,
// polling until timeout elapses or ctx is cancelled.
func (m *Manager) AcquireLock(ctx context.Context, documentPath string, timeout time.Duration) (*FileLock, error) {
	if documentPath == "" {
		return nil, ErrPathRequired
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	lockPath := m.LockPathFor(documentPath)
	fileLock := flock.New(lockPath)
	locked, err := fileLock.TryLockContext(ctx, shortPollInterval)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w for %s", ErrLockTimeout, documentPath)
		}
		return nil, fmt.Errorf("error acquiring file lock for %s: %w", documentPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w for %s", ErrLockTimeout, documentPath)
	}

	return &FileLock{DocumentPath: documentPath, LockPath: lockPath, flock: fileLock}, nil
}

// ReleaseLock releases the given lock.
func (m *Manager) ReleaseLock(lock *FileLock) error {
	if lock == nil {
		return ErrNilLock
	}
	if lock.flock == nil {
		return nil
	}
	if err := lock.flock.Unlock(); err != nil {
		return fmt.Errorf("error releasing file lock for %s: %w", lock.DocumentPath, err)
	}
	return nil
}
