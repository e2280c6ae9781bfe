// File: internal/logging/logging.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Process-wide zerolog setup. Components take a child logger through
// Component so every line carries its origin.

package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Environment overrides.
const (
	EnvLevel     = "CLINK_LOG_LEVEL"
	EnvNoColor   = "CLINK_LOG_NOCOLOR"
	EnvTimestamp = "CLINK_LOG_TIMESTAMP"
)

var (
	mu   sync.RWMutex
	root = zerolog.Nop()
	once sync.Once
)

// Init configures the root logger for app, writing human-readable lines to
// out (stdout when nil).
func Init(app string, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}
	level := zerolog.InfoLevel
	if v := os.Getenv(EnvLevel); v != "" {
		if l, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = l
		}
	}
	noColor, _ := strconv.ParseBool(os.Getenv(EnvNoColor))
	stamp := true
	if v := os.Getenv(EnvTimestamp); v != "" {
		stamp, _ = strconv.ParseBool(v)
	}

	output := zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    noColor,
		TimeFormat: time.RFC3339,
	}
	ctx := zerolog.New(output).Level(level).With().Str("app", app)
	if stamp {
		ctx = ctx.Timestamp()
	}
	logger := ctx.Logger()

	mu.Lock()
	root = logger
	mu.Unlock()
	log.Logger = logger
	return logger
}

// Set replaces the root logger. Tests use it to capture output.
func Set(l zerolog.Logger) {
	mu.Lock()
	root = l
	mu.Unlock()
}

// Root returns the configured root logger. Until Init or Set is called it
// discards everything, except that CLINK_LOG_LEVEL alone enables stderr output.
func Root() zerolog.Logger {
	once.Do(func() {
		if os.Getenv(EnvLevel) == "" {
			return
		}
		mu.RLock()
		configured := root.GetLevel() != zerolog.Disabled
		mu.RUnlock()
		if !configured {
			Init("clink", os.Stderr)
		}
	})
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// Component returns a child logger tagged with name.
func Component(name string) zerolog.Logger {
	return Root().With().Str("component", name).Logger()
}
