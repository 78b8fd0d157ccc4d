// Package mono provides monotonic timestamps for drain deadlines and
// durations without pulling in a runtime linkname hack.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package mono

import "time"

var start = time.Now()

// NanoTime returns a monotonic nanosecond counter suitable for computing
// durations; it is not wall-clock time and must not be serialized.
func NanoTime() int64 { return int64(time.Since(start)) }

// Since returns the elapsed duration since a NanoTime() reading.
func Since(t int64) time.Duration { return time.Duration(NanoTime() - t) }
