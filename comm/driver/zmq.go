// Package driver: the "zmq" transport. No ZeroMQ binding appears anywhere
// in the retrieved corpus, so this renders the same "send bytes, receive
// bytes" contract over a length-prefixed TCP byte stream instead of
// wrapping a real libzmq socket; see DESIGN.md for the divergence.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package driver

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/loomward/commcore/cmn/cos"
	"github.com/loomward/commcore/cmn/rom"
)

func init() { Register(&zmqDriver{}) }

// The send side dials lazily, on the first Send, and retries until the
// peer binds: multipart chunk channels and fresh RPC reply channels both
// advertise an address before the receiving end has had a chance to
// listen on it.
const (
	dialDeadline      = 5 * time.Second
	dialRetryInterval = 10 * time.Millisecond
)

type zmqDriver struct{}

func (*zmqDriver) Kind() string { return "zmq" }

func (*zmqDriver) NewAddress() (string, error) { return freeTCPPort() }

func (*zmqDriver) Init(p Params) (Conn, error) {
	c := &sockConn{addr: p.Address, dir: p.Direction, kind: "zmq"}
	if p.Direction == Recv {
		ln, err := net.Listen("tcp", p.Address)
		if err != nil {
			return nil, &cos.ErrTransportFailure{Kind: "zmq", Op: "listen", Err: errors.Wrapf(err, "zmq: listen on %s", p.Address)}
		}
		c.ln = ln
		c.inbox = make(chan []byte, rom.Rom.MsgBuf())
		go c.acceptLoop()
	}
	return c, nil
}

// sockConn frames each Send/Recv with a 4-byte big-endian length prefix
// beneath comm's own ASCII header, matching what a byte-oriented
// transport owes ("send bytes, receive bytes" - framing above this is
// comm's job, not the driver's). The recv side accepts any number of
// peers and fans their frames into one inbox.
type sockConn struct {
	addr string
	dir  Direction
	kind string

	mu     sync.Mutex
	ln     net.Listener
	conn   net.Conn
	inbox  chan []byte
	closed bool
}

func (c *sockConn) acceptLoop() {
	for {
		nc, err := c.ln.Accept()
		if err != nil {
			return
		}
		go c.readLoop(nc)
	}
}

func (c *sockConn) readLoop(nc net.Conn) {
	for {
		frame, err := readFrame(nc)
		if err != nil {
			return
		}
		c.inbox <- frame
	}
}

func (c *sockConn) Address() string { return c.addr }
func (c *sockConn) MaxMsgSize() int { return rom.Rom.MaxMsgDefault() }

func (c *sockConn) Nmsg() (int, error) {
	if c.inbox == nil {
		return 0, nil
	}
	return len(c.inbox), nil
}

func (c *sockConn) Send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		conn, err := dialWithRetry(c.kind, c.addr)
		if err != nil {
			return &cos.ErrTransportFailure{Kind: c.kind, Op: "dial", Err: err}
		}
		c.conn = conn
	}
	if err := writeFrame(c.conn, b); err != nil {
		return &cos.ErrTransportFailure{Kind: c.kind, Op: "send", Err: err}
	}
	return nil
}

func (c *sockConn) Recv(buf []byte, allowRealloc bool) ([]byte, int, error) {
	if c.inbox == nil {
		return buf, 0, &cos.ErrTransportFailure{Kind: c.kind, Op: "recv", Err: fmt.Errorf("not listening")}
	}
	frame := <-c.inbox
	if len(buf) < len(frame) {
		if !allowRealloc {
			return buf, 0, &cos.ErrBufferTooSmall{Have: len(buf), Need: len(frame)}
		}
		buf = make([]byte, len(frame))
	}
	n := copy(buf, frame)
	return buf, n, nil
}

func (c *sockConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.conn != nil {
		c.conn.Close()
	}
	if c.ln != nil {
		c.ln.Close()
	}
	return nil
}

func writeFrame(w io.Writer, b []byte) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(b)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func dialWithRetry(kind, addr string) (net.Conn, error) {
	var lastErr error
	deadline := time.Now().Add(dialDeadline)
	for time.Now().Before(deadline) {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		time.Sleep(dialRetryInterval)
	}
	return nil, errors.Wrapf(lastErr, "%s: dial %s", kind, addr)
}

// freeTCPPort allocates a loopback address by binding port 0 and letting
// it go again; used by the zmq and rpc NewAddress implementations.
func freeTCPPort() (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	_, port, _ := net.SplitHostPort(ln.Addr().String())
	ln.Close()
	return "127.0.0.1:" + port, nil
}
