// Package lockfile provides the process-wide mutual exclusion that
// serializes mutating operations on the store and journal. The lock is a
// single file holding the decimal pid of its holder; a dead holder is
// detected and its lock reclaimed.
package lockfile

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/operr"
)

// Lock is a held lock; Release unlinks it.
type Lock struct {
	path string
}

// Acquire takes the lock at path, reclaiming it when the recorded holder
// is no longer alive. A live holder yields a LockHeld error.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, operr.NewError(operr.KindLockHeld, "creating lock dir", err)
	}

	for {
		err := writeExclusive(path)
		if err == nil {
			return &Lock{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, operr.NewError(operr.KindLockHeld, "writing lock file", err)
		}

		pid, readErr := readHolder(path)
		if readErr == nil && pid > 0 && alive(pid) {
			return nil, operr.NewError(operr.KindLockHeld,
				"another operation holds the lock (pid "+strconv.Itoa(pid)+")", nil)
		}

		// Holder is gone or the file is garbage: reclaim and retry.
		log.Warn().Int("pid", pid).Str("lock", path).Msg("reclaiming stale lock")
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, operr.NewError(operr.KindLockHeld, "reclaiming stale lock", err)
		}
	}
}

// Release unlinks the lock file. Safe to call once per acquired lock on
// every exit path.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return operr.NewError(operr.KindLockHeld, "releasing lock", err)
	}
	return nil
}

func writeExclusive(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	_, werr := f.WriteString(strconv.Itoa(os.Getpid()))
	cerr := f.Close()
	if werr != nil {
		os.Remove(path)
		return werr
	}
	return cerr
}

func readHolder(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// alive reports whether a zero-signal delivery to pid succeeds.
func alive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || err == syscall.EPERM
}
