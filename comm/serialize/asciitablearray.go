package serialize

import "strings"

// asciiTableArrayCodec serializes/deserializes an entire table at once:
// args[0] must be a [][]string when serializing, and outArgs[0] must be a
// *[][]string when deserializing.
type asciiTableArrayCodec struct{}

func (*asciiTableArrayCodec) serialize(_ *Serializer, buf []byte, args []any) ([]byte, int, error) {
	rows, ok := args[0].([][]string)
	if !ok {
		return buf, 0, errSerialize("ascii_table_array serializer: expected [][]string argument")
	}
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = strings.Join(row, FieldSep)
	}
	text := strings.Join(out, RowSep)
	buf = ensureCap(buf, len(text))
	copy(buf, text)
	return buf, 1, nil
}

func (*asciiTableArrayCodec) deserialize(_ *Serializer, buf []byte, outArgs []any) (int, error) {
	dst, ok := outArgs[0].(*[][]string)
	if !ok {
		return 0, errSerialize("ascii_table_array serializer: expected *[][]string out-argument")
	}
	if len(buf) == 0 {
		*dst = nil
		return 1, nil
	}
	rowsText := strings.Split(string(buf), RowSep)
	rows := make([][]string, len(rowsText))
	for i, rt := range rowsText {
		rows[i] = strings.Split(rt, FieldSep)
	}
	*dst = rows
	return 1, nil
}
