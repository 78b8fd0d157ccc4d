// Exit-drain test: end-to-end scenario 6. Grounded on the teacher's
// transport/collect_test.go drain-on-shutdown coverage, adapted to comm's
// registry/RunExitDrain.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package comm_test

import (
	"errors"
	"testing"

	"github.com/loomward/commcore/comm"
	"github.com/loomward/commcore/comm/driver"
)

// TestExitDrainSendsEOF leaves both endpoints to RunExitDrain: the drain
// must flush the sender's pending frames plus a trailing EOF before
// releasing anything. The receiver runs concurrently, standing in for the
// peer process of the two-process scenario; it is opened second so the
// drain reaches the sender first.
func TestExitDrainSendsEOF(t *testing.T) {
	const addr = "t-drain"
	a, err := comm.Open("", addr, driver.Send, "ipc")
	if err != nil {
		t.Fatalf("open sender: %v", err)
	}
	b, err := comm.Open("", addr, driver.Recv, "ipc")
	if err != nil {
		t.Fatalf("open receiver: %v", err)
	}
	// Deliberately no Release calls: RunExitDrain owns both.

	for i := 0; i < 3; i++ {
		if _, err := a.Send([]byte{byte('a' + i)}); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	type result struct {
		frames []byte
		sawEOF bool
		err    error
	}
	done := make(chan result, 1)
	go func() {
		var res result
		for {
			out, n, err := b.Recv(make([]byte, 8), true)
			if errors.Is(err, comm.ErrEOF) {
				res.sawEOF = true
				done <- res
				return
			}
			if err != nil {
				res.err = err
				done <- res
				return
			}
			res.frames = append(res.frames, out[:n]...)
		}
	}()

	comm.RunExitDrain()

	res := <-done
	if res.err != nil {
		t.Fatalf("receiver: %v", res.err)
	}
	if !res.sawEOF {
		t.Fatal("expected a trailing EOF from the exit drain")
	}
	if string(res.frames) != "abc" {
		t.Fatalf("expected frames %q before the EOF, got %q", "abc", res.frames)
	}
}
