// Package logging is the small -v/-vv verbosity helper the CLI mains
// use. It wraps stdlib log directly, the same plain log.Printf style
// the rest of this codebase's mains use for their own output; no
// structured logging library is introduced for what is a small CLI
// tool.
package logging

import "log"

var (
	verbose bool
	debug   bool
)

// SetLevel configures the package-level verbosity the CLI's -v/-vv
// flags select.
func SetLevel(v, d bool) {
	verbose = v
	debug = d
}

// Infof logs when -v or -vv was given.
func Infof(format string, args ...interface{}) {
	if verbose || debug {
		log.Printf(format, args...)
	}
}

// Debugf logs only when -vv was given.
func Debugf(format string, args ...interface{}) {
	if debug {
		log.Printf(format, args...)
	}
}
