//go:build !debug

// Package check holds programmer-error assertions. They panic only in
// binaries built with -tags debug and compile away otherwise.
package check

func Assert(bool, string) {}

func Assertf(bool, string, ...any) {}
