package lockfile

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/operr"
)

func lockPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "lock")
}

func TestAcquireRelease(t *testing.T) {
	path := lockPath(t)

	l, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("lock file unreadable: %v", err)
	}
	if string(data) != strconv.Itoa(os.Getpid()) {
		t.Errorf("lock contains %q, want our pid", data)
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("lock file remains after release")
	}
}

func TestAcquireHeldByLiveProcess(t *testing.T) {
	path := lockPath(t)
	// Our own pid is certainly alive.
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Acquire(path)
	if !operr.IsKind(err, operr.KindLockHeld) {
		t.Fatalf("expected lock held, got %v", err)
	}
}

func TestAcquireReclaimsStale(t *testing.T) {
	path := lockPath(t)
	// Pid far beyond pid_max on any default configuration.
	if err := os.WriteFile(path, []byte("99999999"), 0o644); err != nil {
		t.Fatal(err)
	}
	l, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire over stale lock: %v", err)
	}
	defer l.Release()

	data, _ := os.ReadFile(path)
	if string(data) != strconv.Itoa(os.Getpid()) {
		t.Errorf("lock contains %q after reclaim, want our pid", data)
	}
}

func TestAcquireReclaimsGarbage(t *testing.T) {
	path := lockPath(t)
	if err := os.WriteFile(path, []byte("not-a-pid"), 0o644); err != nil {
		t.Fatal(err)
	}
	l, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire over garbage lock: %v", err)
	}
	l.Release()
}

func TestReleaseTwice(t *testing.T) {
	l, err := Acquire(lockPath(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("first Release: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
}
