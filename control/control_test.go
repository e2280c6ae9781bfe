// control/control_test.go
// Author: momentics <momentics@gmail.com>

package control

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-clink/api"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.Link.MaxInFlight)
	assert.Equal(t, 256, cfg.Link.IoCapacity)
	assert.Equal(t, -1, cfg.Reactor.ReadCPU)
	assert.Equal(t, -1, cfg.Reactor.WriteCPU)
}

func TestParseConfigOverridesDefaults(t *testing.T) {
	cfg, err := ParseConfig(`
[reactor]
workers = 2

[link]
max_in_flight = 8

[client]
search_timeout = "3s"
`)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Reactor.Workers)
	assert.Equal(t, 8, cfg.Link.MaxInFlight)
	assert.Equal(t, 256, cfg.Link.IoCapacity)
	assert.Equal(t, 3*time.Second, cfg.Client.SearchTimeout.Duration)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
}

func TestParseConfigRejects(t *testing.T) {
	for name, text := range map[string]string{
		"unknown key": "[link]\nbogus = 1\n",
		"in flight":   "[link]\nmax_in_flight = 255\n",
		"capacity":    "[link]\nio_capacity = 4\n",
		"workers":     "[reactor]\nworkers = 0\n",
		"port":        "[server]\nport = 70000\n",
		"cpu":         "[reactor]\nread_cpu = -2\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig(text)
			assert.ErrorIs(t, err, api.ErrInvalidArgument)
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clink.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = 4000\n"), 0o600))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Server.Port)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestMetricsRegistryCounters(t *testing.T) {
	mr := NewMetricsRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mr.Add(MetricPacketsSent, 1)
		}()
	}
	wg.Wait()
	mr.Set("mode", "test")
	assert.Equal(t, int64(10), mr.Counter(MetricPacketsSent))
	snap := mr.GetSnapshot()
	assert.Equal(t, int64(10), snap[MetricPacketsSent])
	assert.Equal(t, "test", snap["mode"])

	var none *MetricsRegistry
	none.Add(MetricBytesSent, 5)
	assert.Zero(t, none.Counter(MetricBytesSent))
}

func TestDebugProbes(t *testing.T) {
	dp := NewDebugProbes()
	dp.RegisterProbe("answer", func() any { return 42 })
	assert.Equal(t, map[string]any{"answer": 42}, dp.DumpState())
}

func TestDebugProbesNamesAndRemoval(t *testing.T) {
	dp := NewDebugProbes()
	dp.RegisterProbe("b", func() any { return 1 })
	dp.RegisterProbe("a", func() any { return dp.Names() })
	assert.Equal(t, []string{"a", "b"}, dp.Names())
	// a probe may query the registry itself
	assert.Equal(t, []string{"a", "b"}, dp.DumpState()["a"])

	dp.UnregisterProbe("b")
	assert.Equal(t, []string{"a"}, dp.Names())
}
