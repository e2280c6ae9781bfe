// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in separate files guarded by build tags.

package affinity

// NoCPU leaves a thread unpinned.
const NoCPU = -1

// SetAffinity pins the current OS thread to cpuID. The caller must hold the
// thread with runtime.LockOSThread. NoCPU is a no-op.
func SetAffinity(cpuID int) error {
	if cpuID == NoCPU {
		return nil
	}
	return setAffinityPlatform(cpuID)
}
