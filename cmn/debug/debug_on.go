//go:build debug

// Package debug provides build-tag gated assertions.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package debug

import (
	"fmt"
	"sync"
)

func ON() bool { return true }

func Func(f func()) { f() }

func Assert(cond bool, args ...any) {
	if !cond {
		panic(fmt.Sprintln(append([]any{"assertion failed:"}, args...)...))
	}
}

func Assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("assertion failed: "+format, args...))
	}
}

func AssertNoErr(err error) {
	if err != nil {
		panic(err)
	}
}

// AssertMutexLocked uses TryLock to detect a mutex that should already be
// held by the caller; it unlocks again immediately if it manages to lock.
func AssertMutexLocked(mu *sync.Mutex) {
	if mu.TryLock() {
		mu.Unlock()
		panic("mutex is not locked")
	}
}
