//go:build !linux

package sys

// PinToCore is a no-op on platforms without sched_setaffinity.
func PinToCore(core int) error {
	return nil
}
