// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, runtime metrics and debug introspection for links and the
// sample chat processes.
//
// Provides:
//   - TOML configuration with defaults and validation
//   - Counter registry fed by the dispatchers
//   - Named debug probes for state dumps
package control
