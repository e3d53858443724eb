//go:build debug

// Package check holds programmer-error assertions. They panic only in
// binaries built with -tags debug and compile away otherwise.
package check

import "fmt"

// Assert panics with msg when cond is false.
func Assert(cond bool, msg string) {
	if cond {
		return
	}
	panic("aimonitor: assertion failed: " + msg)
}

// Assertf is Assert with a formatted message.
func Assertf(cond bool, format string, args ...any) {
	if cond {
		return
	}
	panic("aimonitor: assertion failed: " + fmt.Sprintf(format, args...))
}
