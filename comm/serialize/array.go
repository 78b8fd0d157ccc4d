package serialize

import "github.com/tinylib/msgp/msgp"

// arrayCodec encodes a heterogeneous argument tuple as a msgpack array of
// (kind-tag, value) pairs. Only the scalar kinds commcore's variadic layer
// actually passes - string, []byte, int64, float64, bool - need a tag;
// anything else is an error rather than silently falling back to
// reflection-based encoding.
type arrayCodec struct{}

const (
	kindString = iota
	kindBytes
	kindInt64
	kindFloat64
	kindBool
)

func (*arrayCodec) serialize(_ *Serializer, buf []byte, args []any) ([]byte, int, error) {
	out := msgp.AppendArrayHeader(buf[:0], uint32(len(args)))
	for _, a := range args {
		switch v := a.(type) {
		case string:
			out = msgp.AppendUint8(out, kindString)
			out = msgp.AppendString(out, v)
		case []byte:
			out = msgp.AppendUint8(out, kindBytes)
			out = msgp.AppendBytes(out, v)
		case int64:
			out = msgp.AppendUint8(out, kindInt64)
			out = msgp.AppendInt64(out, v)
		case int:
			out = msgp.AppendUint8(out, kindInt64)
			out = msgp.AppendInt64(out, int64(v))
		case float64:
			out = msgp.AppendUint8(out, kindFloat64)
			out = msgp.AppendFloat64(out, v)
		case bool:
			out = msgp.AppendUint8(out, kindBool)
			out = msgp.AppendBool(out, v)
		default:
			return buf, 0, errSerialize("array serializer: unsupported argument type")
		}
	}
	return out, len(args), nil
}

func (*arrayCodec) deserialize(_ *Serializer, buf []byte, outArgs []any) (int, error) {
	count, remaining, err := msgp.ReadArrayHeaderBytes(buf)
	if err != nil {
		return 0, errSerialize(err.Error())
	}
	n := int(count)
	if n > len(outArgs) {
		n = len(outArgs)
	}
	for i := 0; i < n; i++ {
		var kind uint8
		kind, remaining, err = msgp.ReadUint8Bytes(remaining)
		if err != nil {
			return i, errSerialize(err.Error())
		}
		switch kind {
		case kindString:
			var v string
			v, remaining, err = msgp.ReadStringBytes(remaining)
			if err == nil {
				assignPtr(outArgs[i], v)
			}
		case kindBytes:
			var v []byte
			v, remaining, err = msgp.ReadBytesBytes(remaining, nil)
			if err == nil {
				assignPtr(outArgs[i], v)
			}
		case kindInt64:
			var v int64
			v, remaining, err = msgp.ReadInt64Bytes(remaining)
			if err == nil {
				assignPtr(outArgs[i], v)
			}
		case kindFloat64:
			var v float64
			v, remaining, err = msgp.ReadFloat64Bytes(remaining)
			if err == nil {
				assignPtr(outArgs[i], v)
			}
		case kindBool:
			var v bool
			v, remaining, err = msgp.ReadBoolBytes(remaining)
			if err == nil {
				assignPtr(outArgs[i], v)
			}
		default:
			return i, errSerialize("array serializer: unknown kind tag on wire")
		}
		if err != nil {
			return i, errSerialize(err.Error())
		}
	}
	return n, nil
}

func assignPtr(dst any, v any) {
	switch p := dst.(type) {
	case *string:
		*p = v.(string)
	case *[]byte:
		*p = v.([]byte)
	case *int64:
		*p = v.(int64)
	case *float64:
		*p = v.(float64)
	case *bool:
		*p = v.(bool)
	case *any:
		*p = v
	}
}
