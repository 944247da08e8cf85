//go:build debug

// Package debug provides assertions that panic with a caller-informative
// message when this module is built with `-tags debug`. Used by the
// stream package (a Stream drained twice) and cmn/cos (a nil error
// added to Errs) for invariants that must never fire in correct code.
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package debug

import "fmt"

func ON() bool { return true }

func Infof(format string, a ...any) { fmt.Printf("[debug] "+format+"\n", a...) }

func Assert(cond bool, a ...any) {
	if !cond {
		panic(fmt.Sprint("assertion failed: ", fmt.Sprint(a...)))
	}
}

func Assertf(cond bool, format string, a ...any) {
	if !cond {
		panic(fmt.Sprintf("assertion failed: "+format, a...))
	}
}

func AssertNoErr(err error) {
	if err != nil {
		panic("assertion failed: " + err.Error())
	}
}

func AssertFunc(fn func() bool, a ...any) {
	if !fn() {
		panic(fmt.Sprint("assertion failed: ", fmt.Sprint(a...)))
	}
}
