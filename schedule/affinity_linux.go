//go:build linux

package schedule

import "golang.org/x/sys/unix"

// pinCurrentThread binds the calling OS thread (the caller must already
// hold it via runtime.LockOSThread) to a single CPU, so each CPUPool
// worker keeps its cache locality across kernel dispatches.
func pinCurrentThread(cpu int) error {
	var mask unix.CPUSet
	mask.Set(cpu)
	return unix.SchedSetaffinity(0, &mask)
}
