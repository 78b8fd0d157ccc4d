// Package serialize implements the serializer contract: converting
// between typed argument tuples and byte buffers, and the five serializer
// "types" the header codec negotiates: direct, format, array,
// ascii_table, ascii_table_array.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package serialize

import (
	"github.com/loomward/commcore/cmn/cos"
)

// Type is the wire tag negotiated in the header's STYPE field.
type Type int

const (
	Direct Type = iota
	Format
	Array
	AsciiTable
	AsciiTableArray
)

func (t Type) String() string {
	switch t {
	case Direct:
		return "direct"
	case Format:
		return "format"
	case Array:
		return "array"
	case AsciiTable:
		return "ascii_table"
	case AsciiTableArray:
		return "ascii_table_array"
	default:
		return "unknown"
	}
}

// Serializer is the handle every endpoint holds ({type, info, size_info}
// in the data model). It is a concrete struct, not an interface, so that
// Update can swap the underlying codec in place: recv-side negotiation
// mutates the very serializer the endpoint already references, and the
// next Serialize/Deserialize behaves per the adopted type.
type Serializer struct {
	typ      Type
	info     string
	addr     string // table-family logical address, set at negotiation
	sizeInfo int
	codec    codec
}

// codec is the per-type encode/decode behavior behind a Serializer; each
// implementation reads the parent's info rather than caching its own copy,
// so Update never leaves a stale format string behind.
type codec interface {
	serialize(s *Serializer, buf []byte, args []any) ([]byte, int, error)
	deserialize(s *Serializer, buf []byte, outArgs []any) (int, error)
}

// New constructs the serializer for t. info is the format string for
// Format/AsciiTable/AsciiTableArray, unused for Direct/Array.
func New(t Type, info string) *Serializer {
	s := &Serializer{}
	s.Update(t, info)
	return s
}

func (s *Serializer) Type() Type    { return s.typ }
func (s *Serializer) Info() string  { return s.info }
func (s *Serializer) SizeInfo() int { return s.sizeInfo }

// Addr is the table-family logical address; empty for every other type.
func (s *Serializer) Addr() string     { return s.addr }
func (s *Serializer) SetAddr(a string) { s.addr = a }

// Update mutates the serializer in place to adopt a new type/info - used
// by recv-side negotiation when an endpoint starts out untyped and learns
// its serializer from the first header it receives. An unknown wire tag
// falls back to Direct.
func (s *Serializer) Update(t Type, info string) {
	s.info = info
	switch t {
	case Format:
		s.codec = &formatCodec{}
	case Array:
		s.codec = &arrayCodec{}
	case AsciiTable:
		s.codec = &asciiTableCodec{}
	case AsciiTableArray:
		s.codec = &asciiTableArrayCodec{}
	default:
		t = Direct
		s.codec = &directCodec{}
	}
	s.typ = t
}

// Serialize encodes args into buf (or a freshly allocated buffer if buf is
// too small) and reports how many of args it consumed.
func (s *Serializer) Serialize(buf []byte, args []any) ([]byte, int, error) {
	return s.codec.serialize(s, buf, args)
}

func (s *Serializer) Deserialize(buf []byte, outArgs []any) (int, error) {
	return s.codec.deserialize(s, buf, outArgs)
}

// SimplifyFormats strips scanf-style width/precision/length modifiers from
// format fragments, e.g. "%5.2f" -> "%f",
// "%10s" -> "%s", "%ld" -> "%d". Used during table-family negotiation so a
// format string authored for one language's decoder still scans cleanly
// with Go's fmt.Sscanf.
func SimplifyFormats(s string) string {
	out := make([]byte, 0, len(s))
	i := 0
	for i < len(s) {
		if s[i] != '%' {
			out = append(out, s[i])
			i++
			continue
		}
		out = append(out, '%')
		i++
		// skip flags, width, precision, and length modifiers
		for i < len(s) && isFormatModifier(s[i]) {
			i++
		}
		if i < len(s) {
			out = append(out, s[i])
			i++
		}
	}
	return string(out)
}

func isFormatModifier(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c == '.' || c == '-' || c == '+' || c == ' ' || c == '#':
		return true
	case c == 'l' || c == 'h' || c == 'L' || c == 'q' || c == 'j' || c == 'z' || c == 't':
		return true
	}
	return false
}

func ensureCap(buf []byte, need int) []byte {
	if cap(buf) >= need {
		return buf[:need]
	}
	return make([]byte, need)
}

func errSerialize(reason string) error { return &cos.ErrSerializerFailure{Reason: reason} }
