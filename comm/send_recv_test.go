// Grounded on the teacher's transport/msg_test.go table-driven + Example_
// style, adapted from HTTP stream fixtures to comm's in-process ipc driver.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package comm_test

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/loomward/commcore/comm"
	"github.com/loomward/commcore/comm/driver"
	"github.com/loomward/commcore/comm/serialize"
)

func mustOpen(t *testing.T, address string, dir driver.Direction, kind string) *comm.Endpoint {
	t.Helper()
	ep, err := comm.Open("", address, dir, kind)
	if err != nil {
		t.Fatalf("open %s %s: %v", kind, dir, err)
	}
	t.Cleanup(func() { ep.Release() })
	return ep
}

// TestSingleShortFrame is end-to-end scenario 1: a send of 5 bytes arrives
// whole on the peer.
func TestSingleShortFrame(t *testing.T) {
	a := mustOpen(t, "t-single", driver.Send, "ipc")
	b := mustOpen(t, "t-single", driver.Recv, "ipc")

	if _, err := a.Send([]byte("hello")); err != nil {
		t.Fatalf("send: %v", err)
	}
	buf := make([]byte, 16)
	out, n, err := b.Recv(buf, false)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if n != 5 || string(out[:n]) != "hello" {
		t.Fatalf("got %q (%d), want %q (5)", out[:n], n, "hello")
	}
	if !a.Used {
		t.Fatal("sender should be marked used after a successful framed send")
	}
}

// TestMultipartPayload is end-to-end scenario 2: a payload far larger than
// MaxMsgSize round-trips exactly via the ephemeral chunk channel.
func TestMultipartPayload(t *testing.T) {
	a := mustOpen(t, "t-multipart", driver.Send, "ipc")
	b := mustOpen(t, "t-multipart", driver.Recv, "ipc")

	payload := bytes.Repeat([]byte("0123456789"), 1000) // 10000 bytes, >> MaxMsgIPC default 2048
	if _, err := a.Send(payload); err != nil {
		t.Fatalf("send: %v", err)
	}
	out, n, err := b.Recv(make([]byte, 32), true)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if n != len(payload) || !bytes.Equal(out[:n], payload) {
		t.Fatalf("round-trip mismatch: got %d bytes, want %d", n, len(payload))
	}
}

// TestEOFTermination is end-to-end scenario 4.
func TestEOFTermination(t *testing.T) {
	a := mustOpen(t, "t-eof", driver.Send, "ipc")
	b := mustOpen(t, "t-eof", driver.Recv, "ipc")

	if _, err := a.Send([]byte("hi")); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := a.Send(comm.EOFSentinel); err != nil {
		t.Fatalf("send eof: %v", err)
	}

	buf := make([]byte, 16)
	_, n, err := b.Recv(buf, false)
	if err != nil || n != 2 {
		t.Fatalf("first recv: n=%d err=%v", n, err)
	}
	_, n, err = b.Recv(buf, false)
	if !errors.Is(err, comm.ErrEOF) || n != comm.StatusEOF {
		t.Fatalf("second recv: want EOF, got n=%d err=%v", n, err)
	}
	if !b.RecvEOF {
		t.Fatal("RecvEOF should be set after an EOF frame")
	}
}

// TestEofAlreadySent is the "EOF exactly once" law.
func TestEofAlreadySent(t *testing.T) {
	a := mustOpen(t, "t-eof-twice", driver.Send, "ipc")
	if _, err := a.Send(comm.EOFSentinel); err != nil {
		t.Fatalf("first eof send: %v", err)
	}
	_, err := a.Send(comm.EOFSentinel)
	if err == nil {
		t.Fatal("second EOF send should fail")
	}
}

// TestEmptyPayload checks the length-0 boundary case.
func TestEmptyPayload(t *testing.T) {
	a := mustOpen(t, "t-empty", driver.Send, "ipc")
	b := mustOpen(t, "t-empty", driver.Recv, "ipc")

	if _, err := a.Send([]byte{}); err != nil {
		t.Fatalf("send empty: %v", err)
	}
	out, n, err := b.Recv(make([]byte, 16), false)
	if err != nil {
		t.Fatalf("recv empty: %v", err)
	}
	if n != 0 {
		t.Fatalf("want length 0, got %d (%q)", n, out[:n])
	}
}

// TestEOFSubstringNotEOF: a payload that merely contains the sentinel as a
// substring must not be treated as end-of-stream.
func TestEOFSubstringNotEOF(t *testing.T) {
	a := mustOpen(t, "t-substr", driver.Send, "ipc")
	b := mustOpen(t, "t-substr", driver.Recv, "ipc")

	payload := []byte("prefix-" + string(comm.EOFSentinel) + "-suffix")
	if _, err := a.Send(payload); err != nil {
		t.Fatalf("send: %v", err)
	}
	out, n, err := b.Recv(make([]byte, 64), false)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if !bytes.Equal(out[:n], payload) {
		t.Fatalf("got %q, want %q", out[:n], payload)
	}
	if b.RecvEOF {
		t.Fatal("RecvEOF must not be set for a payload merely containing the sentinel")
	}
}

// TestReallocOnTinyBuffer exercises a 1-byte receive buffer with realloc
// permitted against a payload requiring multipart.
func TestReallocOnTinyBuffer(t *testing.T) {
	a := mustOpen(t, "t-realloc", driver.Send, "ipc")
	b := mustOpen(t, "t-realloc", driver.Recv, "ipc")

	payload := bytes.Repeat([]byte("x"), 50000)
	if _, err := a.Send(payload); err != nil {
		t.Fatalf("send: %v", err)
	}
	out, n, err := b.Recv(make([]byte, 1), true)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if n != len(payload) || !bytes.Equal(out[:n], payload) {
		t.Fatalf("round-trip mismatch, n=%d", n)
	}
}

// TestBufferTooSmallWithoutRealloc: without realloc permission, a too-small
// buffer on a multipart recv must fail, not silently truncate.
func TestBufferTooSmallWithoutRealloc(t *testing.T) {
	a := mustOpen(t, "t-toosmall", driver.Send, "ipc")
	b := mustOpen(t, "t-toosmall", driver.Recv, "ipc")

	payload := bytes.Repeat([]byte("y"), 10000)
	if _, err := a.Send(payload); err != nil {
		t.Fatalf("send: %v", err)
	}
	_, _, err := b.Recv(make([]byte, 4), false)
	if err == nil {
		t.Fatal("expected a buffer-too-small failure")
	}
}

// TestInlineBoundary covers payload lengths around max_msg_size (the ipc
// default is 2048); each first send carries a header.
func TestInlineBoundary(t *testing.T) {
	for _, n := range []int{1, 100, 2047, 2048, 2049} {
		n := n
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			a := mustOpen(t, fmt.Sprintf("t-bound-%d", n), driver.Send, "ipc")
			b := mustOpen(t, fmt.Sprintf("t-bound-%d", n), driver.Recv, "ipc")
			payload := bytes.Repeat([]byte("b"), n)
			if _, err := a.Send(payload); err != nil {
				t.Fatalf("send: %v", err)
			}
			out, got, err := b.Recv(make([]byte, 8), true)
			if err != nil {
				t.Fatalf("recv: %v", err)
			}
			if got != n || !bytes.Equal(out[:got], payload) {
				t.Fatalf("n=%d: got %d bytes", n, got)
			}
		})
	}
}

// TestSerializerNegotiation is end-to-end scenario 5.
func TestSerializerNegotiation(t *testing.T) {
	a, err := comm.Open("", "t-negotiate", driver.Send, "ipc")
	if err != nil {
		t.Fatalf("open sender: %v", err)
	}
	defer a.Release()
	a.Serializer.Update(serialize.Format, "%5.2f")

	b := mustOpen(t, "t-negotiate", driver.Recv, "ipc")

	if _, err := comm.VSend(a, 3.5); err != nil {
		t.Fatalf("vsend: %v", err)
	}
	buf := make([]byte, 64)
	if _, _, err := b.Recv(buf, true); err != nil {
		t.Fatalf("recv: %v", err)
	}
	if b.Serializer.Type() != serialize.Format {
		t.Fatalf("want negotiated type %v, got %v", serialize.Format, b.Serializer.Type())
	}
	if b.Serializer.Info() != "%5.2f" {
		t.Fatalf("want negotiated format string %q, got %q", "%5.2f", b.Serializer.Info())
	}
}

// TestTableFamilyNegotiationSimplifiesFormat verifies that, unlike the
// plain Format type, table-family negotiation strips width/precision so
// the recovered directive scans cleanly with fmt.Sscanf.
func TestTableFamilyNegotiationSimplifiesFormat(t *testing.T) {
	a, err := comm.Open("", "t-negotiate-table", driver.Send, "ipc")
	if err != nil {
		t.Fatalf("open sender: %v", err)
	}
	defer a.Release()
	a.Serializer.Update(serialize.AsciiTable, "%5.2f,%10s")

	b := mustOpen(t, "t-negotiate-table", driver.Recv, "ipc")

	if _, err := comm.VSend(a, 3.5, "hi"); err != nil {
		t.Fatalf("vsend: %v", err)
	}
	if _, _, err := b.Recv(make([]byte, 64), true); err != nil {
		t.Fatalf("recv: %v", err)
	}
	if strings.Contains(b.Serializer.Info(), "5.2") || strings.Contains(b.Serializer.Info(), "10s") {
		t.Fatalf("width/precision should have been stripped, got %q", b.Serializer.Info())
	}
}

func ExampleEndpoint_Send() {
	a, _ := comm.Open("", "ex-send", driver.Send, "ipc")
	b, _ := comm.Open("", "ex-send", driver.Recv, "ipc")
	defer a.Release()
	defer b.Release()

	a.Send([]byte("Lorem ipsum"))
	out, n, _ := b.Recv(make([]byte, 32), false)
	fmt.Println(string(out[:n]))
	// Output: Lorem ipsum
}
