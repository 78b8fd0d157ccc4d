// Package driver: the "ascii_table" transport - one CSV row per send/recv.
// No third-party CSV or fixed-width table parser appears anywhere in the
// retrieved corpus, so this one stays on the standard library's
// encoding/csv; see DESIGN.md for the justification.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package driver

import (
	"bytes"
	"encoding/csv"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/loomward/commcore/cmn/cos"
	"github.com/loomward/commcore/cmn/rom"
)

func init() { Register(&asciiTableDriver{}) }

// fieldSep is how comm/serialize's ascii-table serializer hands the driver
// a row: fields joined by \x1f so the driver can quote/escape them as real
// CSV without needing to know the serializer's format string.
const fieldSep = "\x1f"

type asciiTableDriver struct{}

func (*asciiTableDriver) Kind() string { return "ascii_table" }

func (*asciiTableDriver) NewAddress() (string, error) { return (&asciiFileDriver{}).NewAddress() }

func (*asciiTableDriver) Init(p Params) (Conn, error) {
	c := &asciiTableConn{addr: p.Address, dir: p.Direction}
	if p.Direction == Send {
		f, err := os.OpenFile(p.Address, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, &cos.ErrTransportFailure{Kind: "ascii_table", Op: "open", Err: errors.Wrapf(err, "open %s for write", p.Address)}
		}
		c.wf = f
	} else if _, err := os.OpenFile(p.Address, os.O_CREATE|os.O_RDONLY, 0o644); err != nil {
		return nil, &cos.ErrTransportFailure{Kind: "ascii_table", Op: "open", Err: errors.Wrapf(err, "open %s for read", p.Address)}
	}
	return c, nil
}

type asciiTableConn struct {
	addr string
	dir  Direction
	wf   *os.File

	mu      sync.Mutex
	nrecord int
}

func (c *asciiTableConn) Address() string    { return c.addr }
func (c *asciiTableConn) MaxMsgSize() int    { return rom.Rom.MaxMsgDefault() }
func (c *asciiTableConn) Nmsg() (int, error) { return 0, nil }

func (c *asciiTableConn) Send(b []byte) error {
	if bytes.Equal(b, EOFSentinel) {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fields := bytes.Split(b, []byte(fieldSep))
	record := make([]string, len(fields))
	for i, f := range fields {
		record[i] = string(f)
	}
	w := csv.NewWriter(c.wf)
	if err := w.Write(record); err != nil {
		return &cos.ErrTransportFailure{Kind: "ascii_table", Op: "send", Err: err}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &cos.ErrTransportFailure{Kind: "ascii_table", Op: "send", Err: err}
	}
	return nil
}

func (c *asciiTableConn) Recv(buf []byte, allowRealloc bool) ([]byte, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.Open(c.addr)
	if err != nil {
		return buf, 0, &cos.ErrTransportFailure{Kind: "ascii_table", Op: "recv", Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var record []string
	for i := 0; i <= c.nrecord; i++ {
		record, err = r.Read()
		if err != nil {
			return buf, 0, &cos.ErrTransportFailure{Kind: "ascii_table", Op: "recv", Err: err}
		}
	}
	c.nrecord++

	joined := []byte(joinFields(record))
	if len(buf) < len(joined) {
		if !allowRealloc {
			return buf, 0, &cos.ErrBufferTooSmall{Have: len(buf), Need: len(joined)}
		}
		buf = make([]byte, len(joined))
	}
	n := copy(buf, joined)
	return buf, n, nil
}

func joinFields(fields []string) string {
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += fieldSep
		}
		out += f
	}
	return out
}

func (c *asciiTableConn) Close() error {
	if c.wf != nil {
		return c.wf.Close()
	}
	return nil
}
