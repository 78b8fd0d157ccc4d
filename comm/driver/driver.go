// Package driver defines the transport-driver contract and a
// registry of concrete drivers keyed by transport kind. comm.Endpoint
// dispatches to a Conn through this interface; the driver implementations
// (ipc, zmq, rpc, asciifile, asciitable, asciitablearray) self-register via
// init() in the style of database/sql drivers.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package driver

import (
	"sync"

	"github.com/loomward/commcore/cmn/cos"
)

// Direction mirrors an Endpoint's direction field.
type Direction int

const (
	Send Direction = iota
	Recv
)

func (d Direction) String() string {
	if d == Send {
		return "send"
	}
	return "recv"
}

// EOFSentinel is the literal frame payload that signals end-of-stream.
// File-backed drivers never emit it at the transport level - they
// special-case a send of it as a no-op instead.
var EOFSentinel = []byte("EOF!!!")

// Params is what a driver needs to construct a Conn; it intentionally
// carries only primitive fields (not *comm.Endpoint) to keep this package
// free of a dependency on comm and avoid an import cycle.
type Params struct {
	Name      string
	Address   string
	Direction Direction
}

// Conn is the opaque, driver-owned handle an Endpoint holds.
type Conn interface {
	Address() string
	MaxMsgSize() int
	Nmsg() (int, error)
	Send(b []byte) error
	// Recv reads one frame. If len(buf) is insufficient and allowRealloc is
	// true, Recv returns a grown buffer; otherwise it fails with
	// cos.ErrBufferTooSmall. The returned slice is only valid until the
	// next Recv call.
	Recv(buf []byte, allowRealloc bool) (out []byte, n int, err error)
	Close() error
}

// Driver is the per-transport-kind factory.
type Driver interface {
	Kind() string
	NewAddress() (string, error)
	Init(p Params) (Conn, error)
}

var (
	mu       sync.Mutex
	registry = map[string]Driver{}
)

// Register installs a Driver under its Kind(); drivers call this from an
// init() function.
func Register(d Driver) {
	mu.Lock()
	defer mu.Unlock()
	registry[d.Kind()] = d
}

// Get looks up a registered driver by kind. Unknown kind is a programming
// error and is reported, not panicked.
func Get(kind string) (Driver, error) {
	mu.Lock()
	defer mu.Unlock()
	d, ok := registry[kind]
	if !ok {
		return nil, &cos.ErrUnsupportedKind{Kind: kind}
	}
	return d, nil
}

// Kinds lists every registered transport kind, sorted is not guaranteed;
// used by diagnostics and tests.
func Kinds() []string {
	mu.Lock()
	defer mu.Unlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	return out
}
