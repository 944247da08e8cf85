// Package mono provides low-level monotonic time used by the descriptor
// package's read-timeout bookkeeping.
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package mono

import "time"

// NanoTime returns a monotonic timestamp in nanoseconds. Reads the
// documented monotonic clock instead of linking against an undocumented
// runtime
// internal that a host build of this module has no business depending on.
func NanoTime() int64 { return int64(time.Since(epoch)) }

// epoch anchors NanoTime; time.Since on it uses the monotonic reading.
var epoch = time.Now()

// Since is a small convenience used in descriptor timeout arithmetic:
// elapsed duration since a NanoTime() reading.
func Since(t int64) time.Duration { return time.Duration(NanoTime() - t) }
