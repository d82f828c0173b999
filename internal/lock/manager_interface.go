package lock

import (
	"context"
	"time"

	"github.com/gofrs/flock"
)

// FileLock represents a held OS-level lock on one document.
type FileLock struct {
	// DocumentPath is the document the lock protects.
	DocumentPath string
	// LockPath is the lock file backing the flock.
	LockPath string
	flock    *flock.Flock
}

// Locker is the lock manager surface used by the service layer.
// AcquireLock obtains an exclusive lock for a document and returns a handle
// which must be provided back to ReleaseLock.
type Locker interface {
	AcquireLock(ctx context.Context, documentPath string, timeout time.Duration) (*FileLock, error)
	ReleaseLock(lock *FileLock) error
}
