// Server overlay: the mirror of the client overlay. A server receives a
// request, remembers the reply address and request id the header carried,
// and routes its next Send to that address via a short-lived ephemeral
// reply endpoint. Resolved per the open question in the design notes: the
// server wraps a request sub-endpoint symmetric to the client's, confirmed
// by requiring the same header fields the client overlay writes.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package comm

import (
	"github.com/loomward/commcore/cmn/cos"
	"github.com/loomward/commcore/comm/driver"
	"github.com/loomward/commcore/comm/serialize"
)

// Server is the recv-direction counterpart to Client: it owns one
// recv-direction request sub-endpoint and, between a Recv and the matching
// Send, the reply address/request id extracted from the last request's
// header.
type Server struct {
	name string
	kind string
	req  *Endpoint

	replyAddr string
	requestID string
	valid     bool
}

// NewServer opens a recv-direction request sub-endpoint addressed by name
// (or address, if given).
func NewServer(name, address, kind string) (*Server, error) {
	req, err := Open(name, address, driver.Recv, kind)
	if err != nil {
		return &Server{valid: false}, err
	}
	req.AlwaysSendHeader = true
	return &Server{name: name, kind: kind, req: req, valid: true}, nil
}

// Recv receives the next request and remembers its reply address/request
// id for the next Send.
func (s *Server) Recv(buf []byte, allowRealloc bool) ([]byte, int, error) {
	if !s.valid {
		return buf, StatusFail, &cos.ErrInvalidEndpoint{Name: s.name}
	}
	out, n, err := s.req.Recv(buf, allowRealloc)
	if err == nil {
		s.replyAddr = s.req.lastRecvHeader.ResponseAddr
		s.requestID = s.req.lastRecvHeader.RequestID
	}
	return out, n, err
}

// Send routes payload to the reply address remembered from the most
// recent Recv, via a short-lived ephemeral send endpoint, using the
// endpoint's own address as the header's correlation id.
func (s *Server) Send(payload []byte) (int, error) {
	if !s.valid {
		return StatusFail, &cos.ErrInvalidEndpoint{Name: s.name}
	}
	if s.replyAddr == "" {
		return StatusFail, &cos.ErrNoResponsePending{Name: s.name}
	}
	reply, err := openEphemeralAt(s.kind, driver.Send, s.replyAddr)
	if err != nil {
		return StatusFail, &cos.ErrAllocationFailure{Reason: err.Error()}
	}
	defer reply.Release()

	reply.AlwaysSendHeader = true
	reply.rpcIDOverride = s.req.Address
	reply.rpcRequestID = s.requestID
	s.replyAddr = ""
	return reply.Send(payload)
}

// RequestSerializer returns the request sub-endpoint's serializer, the
// effective serializer VSend/VRecv use for a server.
func (s *Server) RequestSerializer() *serialize.Serializer { return s.req.Serializer }

// Release releases the server's request sub-endpoint.
func (s *Server) Release() error {
	if !s.valid {
		return nil
	}
	s.valid = false
	return s.req.Release()
}
