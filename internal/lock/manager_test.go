package lock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const (
	testLockTimeout  = 200 * time.Millisecond
	veryShortTimeout = 30 * time.Millisecond
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	lm, err := NewManager(filepath.Join(t.TempDir(), "locks"))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return lm
}

func TestManager_NewManagerCreatesDir(t *testing.T) {
	lm := newTestManager(t)
	info, err := os.Stat(lm.LockDir())
	if err != nil {
		t.Fatalf("lock dir missing: %v", err)
	}
	if !info.IsDir() {
		t.Fatalf("lock dir %s is not a directory", lm.LockDir())
	}
}

func TestManager_NewManagerLeavesDirEmpty(t *testing.T) {
	lm := newTestManager(t)
	entries, err := os.ReadDir(lm.LockDir())
	if err != nil {
		t.Fatalf("read lock dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty lock dir, found %d entries", len(entries))
	}
}

func TestManager_NewManagerRejectsReadOnlyDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	dir := filepath.Join(t.TempDir(), "locks")
	if err := os.Mkdir(dir, 0o555); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	_, err := NewManager(dir)
	if err == nil {
		t.Fatal("expected an error for a read-only lock dir")
	}
	if !strings.Contains(err.Error(), "lock directory is not usable") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestManager_LockPathIsStableAndHashed(t *testing.T) {
	lm := newTestManager(t)
	a := lm.LockPathFor("/docs/report.docx")
	b := lm.LockPathFor("/docs/report.docx")
	c := lm.LockPathFor("/docs/other.docx")
	if a != b {
		t.Errorf("expected identical lock paths, got %s and %s", a, b)
	}
	if a == c {
		t.Errorf("expected different documents to get different lock paths")
	}
	if filepath.Dir(a) != lm.LockDir() {
		t.Errorf("expected lock file inside %s, got %s", lm.LockDir(), a)
	}
	if strings.Contains(filepath.Base(a), "report") {
		t.Errorf("lock file name should not leak the document name: %s", a)
	}
}

func TestManager_AcquireReleaseBasic(t *testing.T) {
	lm := newTestManager(t)
	ctx := context.Background()

	held, err := lm.AcquireLock(ctx, "/docs/a.txt", testLockTimeout)
	if err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}
	if held.DocumentPath != "/docs/a.txt" {
		t.Errorf("unexpected document path %q", held.DocumentPath)
	}
	if err := lm.ReleaseLock(held); err != nil {
		t.Fatalf("ReleaseLock failed: %v", err)
	}

	again, err := lm.AcquireLock(ctx, "/docs/a.txt", testLockTimeout)
	if err != nil {
		t.Fatalf("re-acquire after release failed: %v", err)
	}
	_ = lm.ReleaseLock(again)
}

func TestManager_AcquireEmptyPath(t *testing.T) {
	lm := newTestManager(t)
	_, err := lm.AcquireLock(context.Background(), "", testLockTimeout)
	if !errors.Is(err, ErrPathRequired) {
		t.Errorf("expected ErrPathRequired, got %v", err)
	}
}

func TestManager_ReleaseNil(t *testing.T) {
	lm := newTestManager(t)
	if err := lm.ReleaseLock(nil); !errors.Is(err, ErrNilLock) {
		t.Errorf("expected ErrNilLock, got %v", err)
	}
}

func TestManager_LockTimeout(t *testing.T) {
	lm := newTestManager(t)
	ctx := context.Background()

	held, err := lm.AcquireLock(ctx, "/docs/busy.docx", testLockTimeout)
	if err != nil {
		t.Fatalf("initial AcquireLock failed: %v", err)
	}
	defer lm.ReleaseLock(held)

	start := time.Now()
	_, err = lm.AcquireLock(ctx, "/docs/busy.docx", veryShortTimeout)
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < veryShortTimeout {
		t.Errorf("second acquire returned too quickly: %v", elapsed)
	}
}

func TestManager_DifferentDocumentsDoNotContend(t *testing.T) {
	lm := newTestManager(t)
	ctx := context.Background()

	first, err := lm.AcquireLock(ctx, "/docs/one.txt", testLockTimeout)
	if err != nil {
		t.Fatalf("AcquireLock one failed: %v", err)
	}
	defer lm.ReleaseLock(first)

	second, err := lm.AcquireLock(ctx, "/docs/two.txt", veryShortTimeout)
	if err != nil {
		t.Fatalf("AcquireLock two should not wait on one: %v", err)
	}
	_ = lm.ReleaseLock(second)
}

func TestManager_CancelledContext(t *testing.T) {
	lm := newTestManager(t)
	held, err := lm.AcquireLock(context.Background(), "/docs/c.txt", testLockTimeout)
	if err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}
	defer lm.ReleaseLock(held)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := lm.AcquireLock(ctx, "/docs/c.txt", testLockTimeout); err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
}
