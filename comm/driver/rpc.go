// Package driver: the "rpc" transport. Same wire shape as "zmq" (a
// length-prefixed TCP byte stream) but scoped to exactly one peer: the
// recv side accepts a single connection and reads frames on demand rather
// than pumping them into a background inbox, so at most one frame is ever
// buffered ahead of the caller.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package driver

import (
	"fmt"
	"net"
	"sync"

	"github.com/pkg/errors"

	"github.com/loomward/commcore/cmn/cos"
	"github.com/loomward/commcore/cmn/rom"
)

func init() { Register(&rpcDriver{}) }

type rpcDriver struct{}

func (*rpcDriver) Kind() string                { return "rpc" }
func (*rpcDriver) NewAddress() (string, error) { return freeTCPPort() }

func (*rpcDriver) Init(p Params) (Conn, error) {
	c := &rpcConn{addr: p.Address, dir: p.Direction}
	if p.Direction == Recv {
		ln, err := net.Listen("tcp", p.Address)
		if err != nil {
			return nil, &cos.ErrTransportFailure{Kind: "rpc", Op: "listen", Err: errors.Wrapf(err, "rpc: listen on %s", p.Address)}
		}
		c.ln = ln
		accepted := make(chan net.Conn, 1)
		go func() {
			nc, err := ln.Accept()
			if err == nil {
				accepted <- nc
			}
		}()
		c.accepted = accepted
	}
	return c, nil
}

type rpcConn struct {
	addr     string
	dir      Direction
	ln       net.Listener
	accepted chan net.Conn

	mu   sync.Mutex
	conn net.Conn
}

// ensureConn resolves the single peer connection: the recv side waits for
// the one accepted connection, the send side dials with retry (the peer
// may not have bound yet, see the dial constants in zmq.go).
func (c *rpcConn) ensureConn() error {
	if c.conn != nil {
		return nil
	}
	if c.dir == Recv {
		if c.accepted == nil {
			return fmt.Errorf("rpc: not listening")
		}
		c.conn = <-c.accepted
		return nil
	}
	conn, err := dialWithRetry("rpc", c.addr)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

func (c *rpcConn) Address() string    { return c.addr }
func (c *rpcConn) MaxMsgSize() int    { return rom.Rom.MaxMsgDefault() }
func (c *rpcConn) Nmsg() (int, error) { return 0, nil } // no background buffering

func (c *rpcConn) Send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureConn(); err != nil {
		return &cos.ErrTransportFailure{Kind: "rpc", Op: "send", Err: err}
	}
	if err := writeFrame(c.conn, b); err != nil {
		return &cos.ErrTransportFailure{Kind: "rpc", Op: "send", Err: err}
	}
	return nil
}

func (c *rpcConn) Recv(buf []byte, allowRealloc bool) ([]byte, int, error) {
	c.mu.Lock()
	if err := c.ensureConn(); err != nil {
		c.mu.Unlock()
		return buf, 0, &cos.ErrTransportFailure{Kind: "rpc", Op: "recv", Err: err}
	}
	conn := c.conn
	c.mu.Unlock()

	frame, err := readFrame(conn)
	if err != nil {
		return buf, 0, &cos.ErrTransportFailure{Kind: "rpc", Op: "recv", Err: err}
	}

	if len(buf) < len(frame) {
		if !allowRealloc {
			return buf, 0, &cos.ErrBufferTooSmall{Have: len(buf), Need: len(frame)}
		}
		buf = make([]byte, len(frame))
	}
	n := copy(buf, frame)
	return buf, n, nil
}

func (c *rpcConn) Close() error {
	if c.conn != nil {
		c.conn.Close()
	}
	if c.ln != nil {
		c.ln.Close()
	}
	return nil
}
