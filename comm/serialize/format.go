package serialize

import "fmt"

// formatCodec renders/scans a single record with a printf/scanf-style
// format string, the same convention Format negotiation carries in
// Serializer.info. The stored info keeps its width/precision verbatim;
// simplification happens only at render/scan time so Go's fmt verbs apply.
type formatCodec struct{}

func (*formatCodec) serialize(s *Serializer, buf []byte, args []any) ([]byte, int, error) {
	text := fmt.Sprintf(SimplifyFormats(s.info), args...)
	buf = ensureCap(buf, len(text))
	copy(buf, text)
	return buf, len(args), nil
}

func (*formatCodec) deserialize(s *Serializer, buf []byte, outArgs []any) (int, error) {
	n, err := fmt.Sscanf(string(buf), SimplifyFormats(s.info), outArgs...)
	if err != nil {
		return n, errSerialize(err.Error())
	}
	return n, nil
}
