//go:build linux

package sys

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// PinToCore locks the calling goroutine to its OS thread and binds that
// thread to one CPU core. The engine consume loop uses it to keep its
// working set on a single core.
func PinToCore(core int) error {
	runtime.LockOSThread()

	var mask unix.CPUSet
	mask.Zero()
	mask.Set(core)

	if err := unix.SchedSetaffinity(0, &mask); err != nil {
		return fmt.Errorf("sched_setaffinity to core %d: %w", core, err)
	}
	return nil
}
