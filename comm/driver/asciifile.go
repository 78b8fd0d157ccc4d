// Package driver: the "asciifile" transport - a line-oriented text file.
// Files carry their own format (the is_file flag suppresses serializer
// negotiation at the comm layer) and never propagate EOF at the transport
// level: a send of driver.EOFSentinel is a silent no-op.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package driver

import (
	"bufio"
	"bytes"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/loomward/commcore/cmn/cos"
	"github.com/loomward/commcore/cmn/rom"
)

func init() { Register(&asciiFileDriver{}) }

type asciiFileDriver struct{}

func (*asciiFileDriver) Kind() string { return "ascii_file" }

func (*asciiFileDriver) NewAddress() (string, error) {
	f, err := os.CreateTemp("", "commcore-asciifile-*.txt")
	if err != nil {
		return "", err
	}
	path := f.Name()
	f.Close()
	return path, nil
}

func (*asciiFileDriver) Init(p Params) (Conn, error) {
	c := &asciiFileConn{addr: p.Address, dir: p.Direction}
	if p.Direction == Send {
		f, err := os.OpenFile(p.Address, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, &cos.ErrTransportFailure{Kind: "ascii_file", Op: "open", Err: errors.Wrapf(err, "open %s for write", p.Address)}
		}
		c.wf = f
	} else {
		if _, err := os.OpenFile(p.Address, os.O_CREATE|os.O_RDONLY, 0o644); err != nil {
			return nil, &cos.ErrTransportFailure{Kind: "ascii_file", Op: "open", Err: errors.Wrapf(err, "open %s for read", p.Address)}
		}
	}
	return c, nil
}

type asciiFileConn struct {
	addr string
	dir  Direction
	wf   *os.File

	mu     sync.Mutex
	offset int64
}

func (c *asciiFileConn) Address() string    { return c.addr }
func (c *asciiFileConn) MaxMsgSize() int    { return rom.Rom.MaxMsgDefault() }
func (c *asciiFileConn) Nmsg() (int, error) { return 0, nil } // files always report zero pending

func (c *asciiFileConn) Send(b []byte) error {
	if bytes.Equal(b, EOFSentinel) {
		return nil // files never propagate EOF at the transport level
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.wf.Write(append(append([]byte{}, b...), '\n')); err != nil {
		return &cos.ErrTransportFailure{Kind: "ascii_file", Op: "send", Err: err}
	}
	return nil
}

func (c *asciiFileConn) Recv(buf []byte, allowRealloc bool) ([]byte, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.Open(c.addr)
	if err != nil {
		return buf, 0, &cos.ErrTransportFailure{Kind: "ascii_file", Op: "recv", Err: err}
	}
	defer f.Close()
	if _, err := f.Seek(c.offset, 0); err != nil {
		return buf, 0, &cos.ErrTransportFailure{Kind: "ascii_file", Op: "recv", Err: err}
	}
	r := bufio.NewReader(f)
	line, err := r.ReadBytes('\n')
	if len(line) == 0 && err != nil {
		return buf, 0, &cos.ErrTransportFailure{Kind: "ascii_file", Op: "recv", Err: err}
	}
	line = bytes.TrimSuffix(line, []byte{'\n'})
	c.offset += int64(len(line))
	if err == nil {
		c.offset++ // the newline ReadBytes consumed
	}

	if len(buf) < len(line) {
		if !allowRealloc {
			return buf, 0, &cos.ErrBufferTooSmall{Have: len(buf), Need: len(line)}
		}
		buf = make([]byte, len(line))
	}
	n := copy(buf, line)
	return buf, n, nil
}

func (c *asciiFileConn) Close() error {
	if c.wf != nil {
		return c.wf.Close()
	}
	return nil
}
