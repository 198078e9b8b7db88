// Package log is the small logging layer used across ontosearch.
//
// Every component asks for a named logger once and keeps it around:
//
//	l := log.ForService("gateway")
//	l.Infof("backend %s ready", url)
//	l.Debugf("cache miss for %s", key) // only with debug enabled
//
// Each line carries a `[name>]` marker so output from the gateway, the cache
// and the search service can be told apart with grep.
//
// Debug output is off by default. It can be switched on for everything
// (SetGlobalDebug, the --debug flag) or for selected services only
// (EnableDebugFor, the `debug_services` config key, applied with Configure).
//
// Request scoped values are attached with With, which returns a derived logger
// that appends `key=value` pairs to every line it writes:
//
//	rl := l.With("request", id)
//	rl.Debugf("classified %q as %s", keyword, mode)
//
// SetOutput redirects all loggers, existing ones included. Tests use it with a
// bytes.Buffer to assert on log contents.
//
// All exported functions are safe for concurrent use.
package log
