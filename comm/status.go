package comm

import "errors"

// Status codes for callers that want the integer-status convention instead
// of Go's (value, error): non-negative on success, StatusFail on generic
// failure, StatusEOF reserved for "EOF received".
const (
	StatusFail = -1
	StatusEOF  = -2
)

// ErrEOF is returned by Recv when the frame received is the EOF sentinel.
var ErrEOF = errors.New("comm: EOF received")

// StatusOf maps an error returned by Send/Recv/VSend/VRecv to the
// distinguished integer status codes callers outside this package (e.g.
// cmd/commpipe) may want instead of idiomatic error handling.
func StatusOf(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, ErrEOF) {
		return StatusEOF
	}
	return StatusFail
}
