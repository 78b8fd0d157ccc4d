package serialize

import jsoniter "github.com/json-iterator/go"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// directCodec is the fallback used whenever neither side committed to a
// typed format: each argument round-trips through JSON, one value at a
// time, so the payload stays self-describing without a shared schema.
type directCodec struct{}

func (*directCodec) serialize(_ *Serializer, buf []byte, args []any) ([]byte, int, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return buf, 0, errSerialize(err.Error())
	}
	buf = ensureCap(buf, len(raw))
	copy(buf, raw)
	return buf, len(args), nil
}

func (*directCodec) deserialize(_ *Serializer, buf []byte, outArgs []any) (int, error) {
	var raw []jsoniter.RawMessage
	if err := json.Unmarshal(buf, &raw); err != nil {
		return 0, errSerialize(err.Error())
	}
	n := len(raw)
	if n > len(outArgs) {
		n = len(outArgs)
	}
	for i := 0; i < n; i++ {
		if outArgs[i] == nil {
			continue
		}
		if err := json.Unmarshal(raw[i], outArgs[i]); err != nil {
			return i, errSerialize(err.Error())
		}
	}
	return n, nil
}
