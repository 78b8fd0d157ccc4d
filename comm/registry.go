// Cleanup registry: a process-global ordered list of endpoints whose
// release was not explicit, drained by a one-shot exit hook. Grounded on
// the teacher's transport/collect.go StreamCollector, generalized from a
// heap of streams to a plain append-only slice of endpoints (registry
// access here is single-threaded by design, matching §5's "all are
// single-threaded" scope for process-wide state).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package comm

import (
	"sync"
	"time"

	"github.com/loomward/commcore/cmn/cos"
	"github.com/loomward/commcore/cmn/mono"
	"github.com/loomward/commcore/cmn/nlog"
	"github.com/loomward/commcore/cmn/rom"
	"github.com/loomward/commcore/comm/driver"
	"github.com/loomward/commcore/comm/metrics"
)

var (
	regMu       sync.Mutex
	regEntries  []*Endpoint
	regHookOnce sync.Once

	// errFlag suppresses the exit drain's EOF emission once any operation
	// has recorded a process-wide error.
	errFlag bool
)

func register(ep *Endpoint) {
	regMu.Lock()
	defer regMu.Unlock()
	ep.RegistryIndex = len(regEntries)
	regEntries = append(regEntries, ep)
	regHookOnce.Do(func() { installExitHook() })
}

func unregister(ep *Endpoint) {
	regMu.Lock()
	defer regMu.Unlock()
	if ep.RegistryIndex >= 0 && ep.RegistryIndex < len(regEntries) {
		regEntries[ep.RegistryIndex] = nil
	}
	ep.RegistryIndex = -1
}

// setErrFlag records that some operation failed; the exit drain checks
// this before emitting best-effort EOFs so a faulty process does not
// inject spurious EOFs into its peers.
func setErrFlag() {
	regMu.Lock()
	errFlag = true
	regMu.Unlock()
}

// installExitHook is not itself an os/signal hook - Go has no portable
// atexit - so RunExitDrain must be invoked explicitly by main() just
// before returning. It is still installed exactly once via sync.Once to
// mirror the source's one-shot semantics. The Once does not guard
// RunExitDrain itself: a second call is harmless only because the first
// one empties the registry.
func installExitHook() {}

// RunExitDrain walks the registry in insertion order and releases every
// still-live entry; a send-direction entry first emits EOF and waits for
// its queue to drain, so its peer observes a clean EOF. Call this once,
// late in main(), in place of a runtime atexit hook.
func RunExitDrain() {
	regMu.Lock()
	entries := make([]*Endpoint, len(regEntries))
	copy(entries, regEntries)
	suppressEOF := errFlag
	regMu.Unlock()

	for _, ep := range entries {
		if ep == nil || !ep.Valid {
			continue
		}
		drainOne(ep, suppressEOF)
	}

	regMu.Lock()
	regEntries = nil
	regMu.Unlock()
}

func drainOne(ep *Endpoint, suppressEOF bool) {
	started := mono.NanoTime()
	defer func() { metrics.DrainDuration.Observe(mono.Since(started).Seconds()) }()

	if ep.Direction == driver.Send && !isClientEndpoint(ep) && ep.Valid && !suppressEOF {
		if _, err := ep.Send(EOFSentinel); err != nil && !cos.IsErrEofAlreadySent(err) {
			nlog.Warningf("comm: exit drain: eof send on %q: %v", ep.Name, err)
		}
		for mono.Since(started) < rom.Rom.DrainDeadline() {
			n, err := ep.Nmsg()
			if err != nil || n <= 0 {
				break
			}
			time.Sleep(rom.Rom.SleepInterval())
		}
	}
	if err := ep.Release(); err != nil {
		nlog.Warningf("comm: exit drain: release %q: %v", ep.Name, err)
	}
}

func isClientEndpoint(ep *Endpoint) bool {
	_, ok := ep.Info.(*clientInfo)
	return ok
}
