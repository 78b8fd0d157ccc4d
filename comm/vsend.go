// Variadic convenience layer: serialises a tuple of typed arguments before
// send, and deserialises bytes back into caller-provided destinations
// after recv. Grounded on transport/sendmsg.go's SendV/RecvV helpers that
// wrap the raw framing calls with a codec step.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package comm

import (
	"github.com/loomward/commcore/cmn/cos"
	"github.com/loomward/commcore/cmn/rom"
	"github.com/loomward/commcore/comm/serialize"
)

const vsendScratch = 256

// VSend serializes args with ep's own serializer and sends the result.
// Returns the number of args consumed.
func VSend(ep *Endpoint, args ...any) (int, error) {
	if !ep.Valid {
		return StatusFail, &cos.ErrInvalidEndpoint{Name: ep.Name}
	}
	return vsendWith(ep.Serializer, ep.Send, args)
}

// VSendClient serializes args with the client's request sub-endpoint
// serializer (not a serializer of the client's own) and sends via the
// client overlay.
func VSendClient(c *Client, args ...any) (int, error) {
	return vsendWith(c.RequestSerializer(), c.Send, args)
}

// VSendServer serializes args with the server's request sub-endpoint
// serializer and sends via the server overlay.
func VSendServer(s *Server, args ...any) (int, error) {
	return vsendWith(s.RequestSerializer(), s.Send, args)
}

func vsendWith(ser *serialize.Serializer, send func([]byte) (int, error), args []any) (int, error) {
	buf, consumed, err := ser.Serialize(make([]byte, 0, vsendScratch), args)
	if err != nil {
		return StatusFail, err
	}
	if _, err := send(buf); err != nil {
		return StatusFail, err
	}
	return consumed, nil
}

// VRecv receives a frame on ep and deserializes it into outArgs with ep's
// own serializer.
func VRecv(ep *Endpoint, outArgs ...any) (int, error) {
	if !ep.Valid {
		return StatusFail, &cos.ErrInvalidEndpoint{Name: ep.Name}
	}
	out, n, err := ep.Recv(make([]byte, rom.Rom.MsgBuf()), true)
	if err != nil {
		return StatusOf(err), err
	}
	return ep.Serializer.Deserialize(out[:n], outArgs)
}

// VRecvClient receives the next reply on the client overlay and
// deserializes it with the reply sub-endpoint's negotiated serializer.
func VRecvClient(c *Client, outArgs ...any) (int, error) {
	out, n, err := c.Recv(make([]byte, rom.Rom.MsgBuf()), true)
	if err != nil {
		return StatusOf(err), err
	}
	return c.lastReplySerializer.Deserialize(out[:n], outArgs)
}

// VRecvServer receives the next request on the server overlay and
// deserializes it with the request sub-endpoint's serializer.
func VRecvServer(s *Server, outArgs ...any) (int, error) {
	out, n, err := s.Recv(make([]byte, rom.Rom.MsgBuf()), true)
	if err != nil {
		return StatusOf(err), err
	}
	return s.RequestSerializer().Deserialize(out[:n], outArgs)
}
