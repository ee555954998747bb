package state

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"
)

// Lock acquires an advisory exclusive lock on the build directory for the
// duration of setup/configure (§4.9 "preventing two concurrent invocations
// from racing on the same persisted state"), via the raw
// golang.org/x/sys/unix syscall wrapper — distr1-distri reaches for this
// package directly everywhere it needs a syscall not covered by a
// higher-level wrapper (unix.Flistxattr, unix.Chroot, ...), never a
// third-party flock helper.
func (d *Dir) Lock() (unlock func() error, err error) {
	lockPath := filepath.Join(d.Path, "lock")
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, xerrors.Errorf("opening lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, xerrors.Errorf("another mbs invocation holds the build directory lock: %w", err)
	}
	return func() error {
		defer f.Close()
		return unix.Flock(int(f.Fd()), unix.LOCK_UN)
	}, nil
}
