//go:build !debug

// Package debug provides build-tag gated assertions: a no-op build for
// production, a panicking build (debug_on.go) for development and tests.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package debug

import "sync"

func ON() bool { return false }

func Func(_ func()) {}

func Assert(_ bool, _ ...any)            {}
func Assertf(_ bool, _ string, _ ...any) {}
func AssertNoErr(_ error)                {}
func AssertMutexLocked(_ *sync.Mutex)    {}
