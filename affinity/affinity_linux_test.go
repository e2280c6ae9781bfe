//go:build linux

package affinity

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPinToAllowedCPU(t *testing.T) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		runtime.LockOSThread()
		// the thread dies with the goroutine, taking the mask with it

		cpus, err := Allowed()
		require.NoError(t, err)
		require.NotEmpty(t, cpus)

		require.NoError(t, SetAffinity(cpus[0]))
		now, err := Allowed()
		require.NoError(t, err)
		assert.Equal(t, []int{cpus[0]}, now)
	}()
	<-done
}

func TestNoCPUIsNoop(t *testing.T) {
	assert.NoError(t, SetAffinity(NoCPU))
	assert.Error(t, SetAffinity(-5))
}
