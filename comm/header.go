// Header codec: a deterministic ASCII structure prefixing the body so a
// receiver can recover bodybeg/bodysiz without a length-prefixed binary
// scheme. Grounded on the teacher's fixed-binary transport/pdu.go header,
// rendered here as ASCII KEY=VALUE tokens per the wire format this repo
// settled on.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package comm

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/loomward/commcore/cmn/cos"
	"github.com/loomward/commcore/comm/serialize"
)

// unitSep separates KEY=VALUE tokens; recordSep plus a newline terminates
// the header block so bodybeg = index(recordSep) + len(recordSep).
const (
	unitSep   = "\x1f"
	recordSep = "\x1e\n"
)

// Header is a value type: built fresh per send, parsed fresh per recv,
// never shared or mutated in place after decode.
type Header struct {
	Size           int
	Multipart      bool
	Address        string // chunk-transport address, multipart only
	ID             string
	RequestID      string // RPC correlation, may be empty
	ResponseAddr   string // RPC correlation, may be empty
	SerializerType serialize.Type
	FormatStr      string
	Checksum       uint64 // xxhash of the inline tail, 0 if absent
	HasChecksum    bool
	HasSerializer  bool // negotiation fields present on this frame

	Compressed bool // true if the multipart chunk stream is lz4-framed
	CompSize   int  // on-wire byte count when Compressed, else unused

	Bodybeg int
	Bodysiz int
	Valid   bool
}

// Encode renders h as the ASCII header block. Body bytes, if any, are
// appended by the caller immediately after the returned slice.
func (h *Header) Encode() []byte {
	tokens := make([]string, 0, 8)
	tokens = append(tokens, "SIZE="+strconv.Itoa(h.Size))
	if h.Multipart {
		tokens = append(tokens, "MULTI=1")
	}
	if h.Address != "" {
		tokens = append(tokens, "ADDR="+h.Address)
	}
	if h.ID != "" {
		tokens = append(tokens, "ID="+h.ID)
	}
	if h.RequestID != "" {
		tokens = append(tokens, "RID="+h.RequestID)
	}
	if h.ResponseAddr != "" {
		tokens = append(tokens, "RADDR="+h.ResponseAddr)
	}
	if h.HasSerializer {
		tokens = append(tokens, "STYPE="+strconv.Itoa(int(h.SerializerType)))
		if h.FormatStr != "" {
			tokens = append(tokens, "SFMT="+base64.StdEncoding.EncodeToString([]byte(h.FormatStr)))
		}
	}
	if h.HasChecksum {
		tokens = append(tokens, "CKSUM="+strconv.FormatUint(h.Checksum, 16))
	}
	if h.Compressed {
		tokens = append(tokens, "COMP=1")
		tokens = append(tokens, "CSIZE="+strconv.Itoa(h.CompSize))
	}
	var buf bytes.Buffer
	buf.WriteString(strings.Join(tokens, unitSep))
	buf.WriteString(recordSep)
	return buf.Bytes()
}

// DecodeHeader parses the header block prefixing buf and reports bodybeg:
// the offset where caller-visible body bytes start.
func DecodeHeader(buf []byte) (Header, error) {
	idx := bytes.Index(buf, []byte(recordSep))
	if idx < 0 {
		return Header{}, &cos.ErrHeaderParse{Reason: "missing record terminator"}
	}
	h := Header{Bodybeg: idx + len(recordSep)}
	raw := string(buf[:idx])
	if raw == "" {
		return Header{}, &cos.ErrHeaderParse{Reason: "empty header block"}
	}
	for _, tok := range strings.Split(raw, unitSep) {
		key, val, ok := strings.Cut(tok, "=")
		if !ok {
			return Header{}, &cos.ErrHeaderParse{Reason: fmt.Sprintf("malformed token %q", tok)}
		}
		switch key {
		case "SIZE":
			n, err := strconv.Atoi(val)
			if err != nil {
				return Header{}, &cos.ErrHeaderParse{Reason: "bad SIZE: " + err.Error()}
			}
			h.Size = n
		case "MULTI":
			h.Multipart = val == "1"
		case "ADDR":
			h.Address = val
		case "ID":
			h.ID = val
		case "RID":
			h.RequestID = val
		case "RADDR":
			h.ResponseAddr = val
		case "STYPE":
			n, err := strconv.Atoi(val)
			if err != nil {
				return Header{}, &cos.ErrHeaderParse{Reason: "bad STYPE: " + err.Error()}
			}
			h.SerializerType = serialize.Type(n)
			h.HasSerializer = true
		case "SFMT":
			raw, err := base64.StdEncoding.DecodeString(val)
			if err != nil {
				return Header{}, &cos.ErrHeaderParse{Reason: "bad SFMT: " + err.Error()}
			}
			h.FormatStr = string(raw)
		case "CKSUM":
			n, err := strconv.ParseUint(val, 16, 64)
			if err != nil {
				return Header{}, &cos.ErrHeaderParse{Reason: "bad CKSUM: " + err.Error()}
			}
			h.Checksum = n
			h.HasChecksum = true
		case "COMP":
			h.Compressed = val == "1"
		case "CSIZE":
			n, err := strconv.Atoi(val)
			if err != nil {
				return Header{}, &cos.ErrHeaderParse{Reason: "bad CSIZE: " + err.Error()}
			}
			h.CompSize = n
		default:
			// forward-compatible: unknown keys are ignored rather than fatal
		}
	}
	h.Bodysiz = len(buf) - h.Bodybeg
	h.Valid = true
	return h, nil
}
