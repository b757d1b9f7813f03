//go:build linux

package dcc

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// RealtimeSetup locks our memory and raises the scheduling priority, so the
// edge goroutine is not paged out or starved.  Needs CAP_IPC_LOCK and
// CAP_SYS_NICE; failure is not fatal for the caller.
func RealtimeSetup(nice int) error {
	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		return fmt.Errorf("mlockall: %w", err)
	}

	if err := unix.Setpriority(unix.PRIO_PROCESS, 0, nice); err != nil {
		return fmt.Errorf("setpriority %d: %w", nice, err)
	}

	return nil
}
