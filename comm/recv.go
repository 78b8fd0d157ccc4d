// Framing layer, recv side: header parsing, serializer negotiation, and
// multipart chunk assembly. Grounded on transport/recv.go's header-then-
// body parse loop.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package comm

import (
	"bytes"

	"github.com/loomward/commcore/cmn/cos"
	"github.com/loomward/commcore/cmn/nlog"
	"github.com/loomward/commcore/cmn/rom"
	"github.com/loomward/commcore/comm/driver"
	"github.com/loomward/commcore/comm/metrics"
	"github.com/loomward/commcore/comm/serialize"
)

// Recv reads one logical message, reassembling it from an ephemeral
// chunk channel if the sender took the multipart path. It returns the
// buffer actually holding the payload (which may be a reallocated buffer
// distinct from the one passed in), the payload length, and ErrEOF in
// place of a payload when the frame was the EOF sentinel.
//
// The physical frame is read into a scratch buffer grown as needed, so
// allowRealloc governs only whether buf may be replaced to fit the
// payload - header overhead never counts against the caller's buffer.
func (ep *Endpoint) Recv(buf []byte, allowRealloc bool) ([]byte, int, error) {
	if !ep.Valid {
		return buf, StatusFail, &cos.ErrInvalidEndpoint{Name: ep.Name}
	}
	ep.lock()
	defer ep.unlock()

	scratch, n, err := ep.Handle.Recv(make([]byte, rom.Rom.MsgBuf()), true)
	if err != nil {
		setErrFlag()
		return buf, StatusFail, err
	}
	frame := scratch[:n]

	if bytes.Equal(frame, EOFSentinel) {
		ep.RecvEOF = true
		return buf, StatusEOF, ErrEOF
	}

	var body []byte
	if hasHeader(frame) {
		h, err := DecodeHeader(frame)
		if err != nil {
			setErrFlag()
			return buf, StatusFail, err
		}
		ep.negotiate(h)
		ep.lastRecvHeader = h

		if h.Multipart {
			out, total, err := ep.recvMultipart(h, buf, allowRealloc)
			if err != nil {
				setErrFlag()
				return out, StatusFail, err
			}
			ep.markRecv(total)
			return out, total, nil
		}
		body = frame[h.Bodybeg:]
		if h.HasChecksum && cos.Checksum64(body) != h.Checksum {
			setErrFlag()
			return buf, StatusFail, &cos.ErrHeaderParse{Reason: "checksum mismatch on inline body"}
		}
	} else {
		// Post-first-use short frames travel bare; the whole frame is
		// the body.
		body = frame
	}

	if len(buf) < len(body) {
		if !allowRealloc {
			return buf, StatusFail, &cos.ErrBufferTooSmall{Have: len(buf), Need: len(body)}
		}
		buf = make([]byte, len(body))
	}
	copy(buf, body)
	ep.markRecv(len(body))
	return buf, len(body), nil
}

func (ep *Endpoint) markRecv(total int) {
	ep.Used = true
	ep.stats.AddRecv(total)
	metrics.FramesRecv.WithLabelValues(ep.Kind).Inc()
	metrics.BytesRecv.WithLabelValues(ep.Kind).Add(float64(total))
}

// hasHeader reports whether the frame leads with a header block. Encode
// always emits the SIZE token first, so the prefix plus the record
// terminator identify one; a raw payload that happens to start with
// "SIZE=" and contain the terminator would misparse, the inherent
// ambiguity of a delimiter-based wire format.
func hasHeader(frame []byte) bool {
	return bytes.HasPrefix(frame, []byte("SIZE=")) && bytes.Contains(frame, []byte(recordSep))
}

// recvMultipart opens an ephemeral recv endpoint at the address the sender
// advertised in the header and pulls chunks until the on-wire size is
// assembled, reporting bytes-so-far on partial failure. If the sender
// lz4-compressed the body (Header.Compressed), the wire bytes are
// decompressed into the caller's buffer only after the full frame arrives.
func (ep *Endpoint) recvMultipart(h Header, buf []byte, allowRealloc bool) ([]byte, int, error) {
	wireSize := h.Size
	if h.Compressed {
		wireSize = h.CompSize
	}

	eph, err := openEphemeralAt(ep.Kind, driver.Recv, h.Address)
	if err != nil {
		return buf, 0, &cos.ErrAllocationFailure{Reason: err.Error()}
	}
	defer eph.Release()

	wire := make([]byte, wireSize)
	assembled := 0
	chunk := make([]byte, ep.MaxMsgSize)
	for assembled < wireSize {
		out, n, err := eph.Handle.Recv(chunk, true)
		if err != nil {
			return buf, assembled, &cos.ErrTransportFailure{Kind: ep.Kind, Op: "recv-chunk", Err: err}
		}
		copy(wire[assembled:], out[:n])
		assembled += n
		chunk = out
	}

	need := h.Size + 1
	if len(buf) < need {
		if !allowRealloc {
			return buf, 0, &cos.ErrBufferTooSmall{Have: len(buf), Need: need}
		}
		buf = make([]byte, need)
	}

	if !h.Compressed {
		copy(buf, wire)
		return buf, h.Size, nil
	}
	decoded, err := decompressLZ4(wire, h.Size)
	if err != nil {
		return buf, 0, err
	}
	copy(buf, decoded)
	return buf, h.Size, nil
}

// negotiate adopts the header's serializer fields on the first framed recv
// from a non-file endpoint whose own serializer is still uninitialised
// (Direct with no info), per the negotiation protocol. Table-family
// serializers additionally adopt the endpoint's own name as the table's
// logical address and simplify the recovered format specifiers for the
// local decoder.
func (ep *Endpoint) negotiate(h Header) {
	if ep.IsFile || ep.Used || !h.HasSerializer {
		return
	}
	if ep.Serializer.Type() != serialize.Direct || ep.Serializer.Info() != "" {
		return
	}
	info := h.FormatStr
	switch h.SerializerType {
	case serialize.AsciiTable, serialize.AsciiTableArray:
		info = serialize.SimplifyFormats(info)
	}
	ep.Serializer.Update(h.SerializerType, info)
	switch h.SerializerType {
	case serialize.AsciiTable, serialize.AsciiTableArray:
		ep.Serializer.SetAddr(ep.Name)
	}
	nlog.Infof("comm: endpoint %q adopted serializer %s from first recv", ep.Name, h.SerializerType)
}
