// RPC overlay tests: FIFO request/response correlation (scenario 3) and the
// pending-queue invariants. Grounded on the teacher's transport/msg_test.go
// style, as plain testing.T functions: the happy path checks the
// queue-depth invariant inline, and two edge cases follow.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package comm_test

import (
	"testing"

	"github.com/loomward/commcore/comm"
)

// TestClientServerRoundTrip is end-to-end scenario 3.
func TestClientServerRoundTrip(t *testing.T) {
	const addr = "t-rpc-svc"
	c, err := comm.NewClient("", addr, "ipc")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer c.Release()
	s, err := comm.NewServer("", addr, "ipc")
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	defer s.Release()

	if _, err := c.Send([]byte("q1")); err != nil {
		t.Fatalf("send q1: %v", err)
	}
	if _, err := c.Send([]byte("q2")); err != nil {
		t.Fatalf("send q2: %v", err)
	}
	if got := c.Pending(); got != 2 {
		t.Fatalf("want 2 pending replies, got %d", got)
	}

	buf := make([]byte, 64)
	out, n, err := s.Recv(buf, true)
	if err != nil || string(out[:n]) != "q1" {
		t.Fatalf("server recv 1: %q, err=%v", out[:n], err)
	}
	if _, err := s.Send([]byte("r1")); err != nil {
		t.Fatalf("server send r1: %v", err)
	}

	out, n, err = s.Recv(buf, true)
	if err != nil || string(out[:n]) != "q2" {
		t.Fatalf("server recv 2: %q, err=%v", out[:n], err)
	}
	if _, err := s.Send([]byte("r2")); err != nil {
		t.Fatalf("server send r2: %v", err)
	}

	out, n, err = c.Recv(buf, true)
	if err != nil || string(out[:n]) != "r1" {
		t.Fatalf("client recv 1: %q, err=%v", out[:n], err)
	}
	out, n, err = c.Recv(buf, true)
	if err != nil || string(out[:n]) != "r2" {
		t.Fatalf("client recv 2: %q, err=%v", out[:n], err)
	}
	if got := c.Pending(); got != 0 {
		t.Fatalf("want 0 pending replies after draining, got %d", got)
	}
}

// TestClientRecvWithoutPending: recv on a client with no outstanding
// request must fail with NoResponsePending, not block or panic.
func TestClientRecvWithoutPending(t *testing.T) {
	c, err := comm.NewClient("", "t-rpc-empty", "ipc")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer c.Release()
	_, _, err = c.Recv(make([]byte, 16), false)
	if err == nil {
		t.Fatal("expected NoResponsePending error")
	}
}

// TestClientReleaseEmitsEOF verifies the client overlay's release protocol:
// an EOF on the request sub-endpoint so the server observes termination.
func TestClientReleaseEmitsEOF(t *testing.T) {
	const addr = "t-rpc-release"
	c, err := comm.NewClient("", addr, "ipc")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	s, err := comm.NewServer("", addr, "ipc")
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	defer s.Release()

	if err := c.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	_, _, err = s.Recv(make([]byte, 16), false)
	if err == nil {
		t.Fatal("expected the server to observe an error or EOF on the request channel")
	}
}
