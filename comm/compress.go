// Optional lz4 compression of oversized multipart bodies, the same role
// Extra.Compression/initCompression plays around transport.Stream in the
// teacher, here scoped to the one place commcore ever moves a large body:
// the ephemeral chunk channel a true multipart send opens.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package comm

import (
	"bytes"
	"io"

	"github.com/pierrec/lz4/v3"

	"github.com/loomward/commcore/cmn/cos"
)

// compressLZ4 returns the lz4-framed encoding of payload.
func compressLZ4(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		return nil, &cos.ErrAllocationFailure{Reason: "lz4 compress: " + err.Error()}
	}
	if err := zw.Close(); err != nil {
		return nil, &cos.ErrAllocationFailure{Reason: "lz4 compress: " + err.Error()}
	}
	return buf.Bytes(), nil
}

// decompressLZ4 decodes wire, an lz4 frame, into a buffer of exactly size
// bytes - size is always known up front since it travels in the header.
func decompressLZ4(wire []byte, size int) ([]byte, error) {
	zr := lz4.NewReader(bytes.NewReader(wire))
	out := make([]byte, size)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, &cos.ErrAllocationFailure{Reason: "lz4 decompress: " + err.Error()}
	}
	return out, nil
}
