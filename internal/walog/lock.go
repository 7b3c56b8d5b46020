package walog

import (
	"errors"
	"fmt"
	"syscall"
)

// lockFile takes an exclusive, non-blocking flock(2) on fd, retrying on
// EINTR. It returns ErrLocked if another process already holds the lock.
//
// This is a narrowed form of the teacher corpus' inode-matching Locker: the
// journal file is privately owned by one Log for its entire lifetime and is
// never renamed out from under an open handle, so the inode-replacement
// defenses that Locker needs for shared lock files don't apply here.
func lockFile(fd int) error {
	err := flockRetryEINTR(fd, syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		if errors.Is(err, syscall.EWOULDBLOCK) || errors.Is(err, syscall.EAGAIN) {
			return fmt.Errorf("%w: journal file is locked by another process", ErrLocked)
		}

		return fmt.Errorf("flock journal: %w", err)
	}

	return nil
}

func unlockFile(fd int) error {
	return flockRetryEINTR(fd, syscall.LOCK_UN)
}

// flockRetryEINTR retries flock on EINTR, which can interrupt any blocking
// or non-blocking syscall when a signal arrives mid-call.
func flockRetryEINTR(fd int, how int) error {
	const maxEINTRRetries = 10000

	var err error
	for range maxEINTRRetries {
		err = syscall.Flock(fd, how)
		if err == nil || !errors.Is(err, syscall.EINTR) {
			return err
		}
	}

	return err
}

// ErrLocked reports that another process already holds the journal's
// advisory lock.
var ErrLocked = errors.New("walog: journal locked by another process")
