// Client overlay: wraps the framing layer with a request sub-endpoint and
// an ordered queue of pending response sub-endpoints, giving FIFO
// request/response correlation without the framing layer itself knowing
// about RPC. Grounded on the request/reply bookkeeping pattern in the
// teacher's transport/handler.go dispatch, adapted from stream handlers to
// an explicit client object.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package comm

import (
	"github.com/loomward/commcore/cmn/cos"
	"github.com/loomward/commcore/comm/driver"
	"github.com/loomward/commcore/comm/serialize"
)

// clientInfo marks an Endpoint's Info field so the exit drain can tell a
// client's request sub-endpoint apart from an ordinary send endpoint (the
// drain's own EOF logic is skipped for it; Client.Release handles EOF).
type clientInfo struct{}

// Client is a request/response overlay over one service address: every
// Send allocates a fresh ephemeral reply endpoint and appends it to a
// FIFO; every Recv pairs with the oldest outstanding request.
type Client struct {
	name  string
	kind  string
	req   *Endpoint
	queue []*Endpoint
	valid bool

	// lastReplySerializer is the reply sub-endpoint's serializer, captured
	// just before Recv releases it, so VRecvClient can deserialize with
	// whatever that endpoint negotiated.
	lastReplySerializer *serialize.Serializer
}

// NewClient opens a send-direction request sub-endpoint addressed by name
// (or address, if given) and returns a Client ready to correlate replies.
func NewClient(name, address, kind string) (*Client, error) {
	req, err := Open(name, address, driver.Send, kind)
	if err != nil {
		return &Client{valid: false}, err
	}
	// First client created in the process seeds the id generator from its
	// own request address, unless an id was already drawn (GenID seeds
	// from the clock, e.g. when Open allocated an ipc address above).
	cos.SeedOnce(cos.Checksum64([]byte(req.Address)))
	req.AlwaysSendHeader = true
	req.Info = &clientInfo{}
	return &Client{name: name, kind: kind, req: req, valid: true}, nil
}

// Send allocates a fresh reply endpoint, appends it to the pending FIFO,
// and forwards payload on the request sub-endpoint with the reply address
// and a fresh request id embedded in the header.
func (c *Client) Send(payload []byte) (int, error) {
	if !c.valid {
		return StatusFail, &cos.ErrInvalidEndpoint{Name: c.name}
	}
	reply, err := openEphemeral(c.kind, driver.Recv)
	if err != nil {
		return StatusFail, &cos.ErrAllocationFailure{Reason: err.Error()}
	}
	c.req.rpcResponseAddr = reply.Address
	c.req.rpcRequestID = cos.GenID()
	n, err := c.req.Send(payload)
	if err != nil {
		reply.Release()
		return StatusFail, err
	}
	c.queue = append(c.queue, reply)
	return n, nil
}

// Recv receives on the oldest outstanding reply endpoint, releases it, and
// dequeues it - the N-th Recv pairs with the N-th preceding Send.
func (c *Client) Recv(buf []byte, allowRealloc bool) ([]byte, int, error) {
	if !c.valid {
		return buf, StatusFail, &cos.ErrInvalidEndpoint{Name: c.name}
	}
	if len(c.queue) == 0 {
		return buf, StatusFail, &cos.ErrNoResponsePending{Name: c.name}
	}
	front := c.queue[0]
	out, n, err := front.Recv(buf, allowRealloc)
	c.lastReplySerializer = front.Serializer
	front.Release()
	c.queue = c.queue[1:]
	return out, n, err
}

// RequestSerializer returns the request sub-endpoint's serializer, the
// effective serializer VSend uses for a client (never the client's own,
// since Client has no serializer field of its own).
func (c *Client) RequestSerializer() *serialize.Serializer { return c.req.Serializer }

// Pending reports the current length of the reply FIFO.
func (c *Client) Pending() int { return len(c.queue) }

// Release emits EOF on the request sub-endpoint so the peer server
// observes termination, then releases the request sub-endpoint and any
// still-pending reply sub-endpoints.
func (c *Client) Release() error {
	if !c.valid {
		return nil
	}
	c.valid = false
	c.req.Send(EOFSentinel) // best-effort: release proceeds regardless of the outcome
	err := c.req.Release()
	for _, p := range c.queue {
		p.Release()
	}
	c.queue = nil
	return err
}
