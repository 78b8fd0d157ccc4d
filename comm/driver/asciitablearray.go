// Package driver: the "ascii_table_array" transport - like ascii_table but
// one send/recv transfers an entire table (every row) as a single logical
// message, matching comm.serializer.type == ascii_table_array
// (whole-table decode instead of row-at-a-time).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package driver

import (
	"bytes"
	"encoding/csv"
	"os"

	"github.com/pkg/errors"

	"github.com/loomward/commcore/cmn/cos"
	"github.com/loomward/commcore/cmn/rom"
)

func init() { Register(&asciiTableArrayDriver{}) }

// rowSep joins whole rows (each already fieldSep-joined) into one message.
const rowSep = "\x1e"

type asciiTableArrayDriver struct{}

func (*asciiTableArrayDriver) Kind() string { return "ascii_table_array" }

func (*asciiTableArrayDriver) NewAddress() (string, error) { return (&asciiFileDriver{}).NewAddress() }

func (*asciiTableArrayDriver) Init(p Params) (Conn, error) {
	return &asciiTableArrayConn{addr: p.Address, dir: p.Direction}, nil
}

type asciiTableArrayConn struct {
	addr string
	dir  Direction
	read bool // recv side: whole file is delivered exactly once
}

func (c *asciiTableArrayConn) Address() string    { return c.addr }
func (c *asciiTableArrayConn) MaxMsgSize() int    { return rom.Rom.MaxMsgDefault() }
func (c *asciiTableArrayConn) Nmsg() (int, error) {
	if c.dir == Recv && !c.read {
		return 1, nil
	}
	return 0, nil
}

func (c *asciiTableArrayConn) Send(b []byte) error {
	if bytes.Equal(b, EOFSentinel) {
		return nil
	}
	rows := bytes.Split(b, []byte(rowSep))
	w := &bytes.Buffer{}
	cw := csv.NewWriter(w)
	for _, row := range rows {
		fields := bytes.Split(row, []byte(fieldSep))
		record := make([]string, len(fields))
		for i, f := range fields {
			record[i] = string(f)
		}
		if err := cw.Write(record); err != nil {
			return &cos.ErrTransportFailure{Kind: "ascii_table_array", Op: "send", Err: err}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return &cos.ErrTransportFailure{Kind: "ascii_table_array", Op: "send", Err: err}
	}
	if err := os.WriteFile(c.addr, w.Bytes(), 0o644); err != nil {
		return &cos.ErrTransportFailure{Kind: "ascii_table_array", Op: "send", Err: errors.Wrapf(err, "write %s", c.addr)}
	}
	return nil
}

func (c *asciiTableArrayConn) Recv(buf []byte, allowRealloc bool) ([]byte, int, error) {
	f, err := os.Open(c.addr)
	if err != nil {
		return buf, 0, &cos.ErrTransportFailure{Kind: "ascii_table_array", Op: "recv", Err: errors.Wrapf(err, "open %s", c.addr)}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return buf, 0, &cos.ErrTransportFailure{Kind: "ascii_table_array", Op: "recv", Err: err}
	}
	c.read = true

	rows := make([]string, len(records))
	for i, rec := range records {
		rows[i] = joinFields(rec)
	}
	joined := []byte(joinRows(rows))

	if len(buf) < len(joined) {
		if !allowRealloc {
			return buf, 0, &cos.ErrBufferTooSmall{Have: len(buf), Need: len(joined)}
		}
		buf = make([]byte, len(joined))
	}
	n := copy(buf, joined)
	return buf, n, nil
}

func joinRows(rows []string) string {
	out := ""
	for i, r := range rows {
		if i > 0 {
			out += rowSep
		}
		out += r
	}
	return out
}

func (c *asciiTableArrayConn) Close() error { return nil }
