// Package comm is the polymorphic messaging core: a common Endpoint object,
// header-framed multipart send/recv, serializer negotiation, a client/server
// RPC overlay, and a process-wide cleanup registry. Grounded on the
// teacher's transport/api.go (Endpoint-equivalent: "Stream"), transport/pdu.go
// (header framing), transport/sendmsg.go (multipart chunking), and
// transport/collect.go (the registry/exit-hook pattern, here generalized
// from a stream heap to an arbitrary endpoint list).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package comm

import (
	"os"
	"sync"
	"time"

	"github.com/loomward/commcore/cmn/cos"
	"github.com/loomward/commcore/cmn/debug"
	"github.com/loomward/commcore/cmn/nlog"
	"github.com/loomward/commcore/comm/driver"
	"github.com/loomward/commcore/comm/metrics"
	"github.com/loomward/commcore/comm/serialize"
)

// EOFSentinel is the literal payload that signals end-of-stream.
var EOFSentinel = driver.EOFSentinel

// Endpoint ties an identity to one direction of one transport instance.
// Fields mirror the data model's Endpoint record one for one; see the
// invariants called out alongside each field below.
type Endpoint struct {
	Name      string
	Address   string
	Direction driver.Direction
	Kind      string

	Serializer *serialize.Serializer // nil only while !Valid
	Handle     driver.Conn           // nil only while !Valid

	// Info carries overlay-specific state: *clientInfo marks a client's
	// request sub-endpoint (the exit drain leaves its EOF protocol to
	// Client.Release), nil otherwise.
	Info any

	MaxMsgSize int

	SentEOF bool // monotonic once true
	RecvEOF bool // monotonic once true
	Used    bool // monotonic once true

	AlwaysSendHeader bool // forced true for client/server endpoints
	IsFile           bool // suppresses serializer negotiation

	Valid bool // false on construction failure; all ops then reject

	LastSend time.Time

	RegistryIndex int // back-index into the registry, -1 if absent

	// RPC overlay hooks: consumed and cleared by the next sendMultipart
	// call. Set by Client.Send/Server.Send, never by ordinary callers.
	rpcRequestID    string
	rpcResponseAddr string
	rpcIDOverride   string

	// lastRecvHeader is the most recently decoded header, kept around so
	// the server overlay can read back response_address/request_id after
	// a plain Recv.
	lastRecvHeader Header

	mu    sync.Mutex
	stats metrics.EndpointStats
}

// Open constructs and initialises an Endpoint of the given kind, resolving
// address from the environment when name is set and address is not, then
// registers it with the process-wide cleanup registry.
func Open(name, address string, dir driver.Direction, kind string) (*Endpoint, error) {
	ep, err := openUnregistered(name, address, dir, kind, false)
	if err != nil {
		return ep, err
	}
	register(ep)
	return ep, nil
}

// openEphemeral builds an address-only endpoint (no name) for multipart
// chunk transport or RPC reply channels. Ephemerals never emit EOF and are
// never registered with the cleanup registry: they are stack-scoped to one
// send/recv call or to one request/response pair.
func openEphemeral(kind string, dir driver.Direction) (*Endpoint, error) {
	return openEphemeralAt(kind, dir, "")
}

// openEphemeralAt attaches to an already-allocated chunk/reply address
// (the recv side of multipart and the server side of RPC correlation both
// connect to an address the peer advertised, rather than minting a fresh
// one).
func openEphemeralAt(kind string, dir driver.Direction, address string) (*Endpoint, error) {
	ep, err := openUnregistered("", address, dir, kind, true)
	if err != nil {
		return ep, err
	}
	ep.SentEOF = true
	ep.RecvEOF = true
	return ep, nil
}

func openUnregistered(name, address string, dir driver.Direction, kind string, ephemeral bool) (*Endpoint, error) {
	drv, err := driver.Get(kind)
	if err != nil {
		nlog.Errorf("comm: %v", err)
		return &Endpoint{Valid: false}, err
	}

	if address == "" {
		if name != "" && !ephemeral {
			address = os.Getenv(name)
		}
		if address == "" {
			address, err = drv.NewAddress()
			if err != nil {
				nlog.Errorf("comm: new address for kind %q: %v", kind, err)
				return &Endpoint{Valid: false}, &cos.ErrAllocationFailure{Reason: err.Error()}
			}
		}
	}

	conn, err := drv.Init(driver.Params{Name: name, Address: address, Direction: dir})
	if err != nil {
		nlog.Errorf("comm: init endpoint %q (%s): %v", name, kind, err)
		return &Endpoint{Valid: false}, err
	}

	ep := &Endpoint{
		Name:          name,
		Address:       address,
		Direction:     dir,
		Kind:          kind,
		Handle:        conn,
		MaxMsgSize:    conn.MaxMsgSize(),
		IsFile:        isFileKind(kind),
		Valid:         true,
		RegistryIndex: -1,
	}
	// File transports skip negotiation but still serialize: the table
	// kinds default to their matching row/table serializer so VSend/VRecv
	// work out of the box once the caller supplies column directives.
	switch kind {
	case "ascii_table":
		ep.Serializer = serialize.New(serialize.AsciiTable, "")
	case "ascii_table_array":
		ep.Serializer = serialize.New(serialize.AsciiTableArray, "")
	default:
		ep.Serializer = serialize.New(serialize.Direct, "")
	}
	return ep, nil
}

func isFileKind(kind string) bool {
	switch kind {
	case "ascii_file", "ascii_table", "ascii_table_array":
		return true
	default:
		return false
	}
}

// lock is a debug-only reentrancy guard: the data model does not promise
// safety under concurrent access to the same endpoint, so this merely
// catches accidental double-entry from the same goroutine.
func (ep *Endpoint) lock() {
	debug.Assert(ep.mu.TryLock(), "endpoint ", ep.Name, " entered twice")
}

func (ep *Endpoint) unlock() { ep.mu.Unlock() }

// Nmsg reports the transport's pending-frame count.
func (ep *Endpoint) Nmsg() (int, error) {
	if !ep.Valid {
		return -1, &cos.ErrInvalidEndpoint{Name: ep.Name}
	}
	return ep.Handle.Nmsg()
}

// Release frees the endpoint's transport handle and nulls its registry
// slot. Idempotent: a second call on an already-invalid endpoint is a
// no-op, matching the "idempotent release" law.
func (ep *Endpoint) Release() error {
	if !ep.Valid {
		return nil
	}
	ep.Valid = false
	err := ep.Handle.Close()
	if ep.RegistryIndex >= 0 {
		unregister(ep)
	}
	return err
}
