// Package facade
// Author: momentics <momentics@gmail.com>
//
// IoContext bundles the process-wide pieces every connection needs: the
// readiness reactor, configuration, metrics and debug probes. It is created
// explicitly and passed down instead of living in a global.
package facade
