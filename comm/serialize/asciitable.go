package serialize

import (
	"fmt"
	"strings"
)

// FieldSep and RowSep are the conventions the ascii_table and
// ascii_table_array drivers expect a serialized payload to already be split
// on: fields within a row, and rows within a whole-table message.
const (
	FieldSep = "\x1f"
	RowSep   = "\x1e"
)

// asciiTableCodec renders/scans one row at a time. info is a
// comma-separated list of scanf-style column directives, e.g. "%d,%s,%f".
// Columns are split lazily and cached; Update installs a fresh codec, so
// the cache never outlives an info change.
type asciiTableCodec struct {
	columns []string
}

func (c *asciiTableCodec) cols(s *Serializer) []string {
	if c.columns == nil {
		c.columns = strings.Split(SimplifyFormats(s.info), ",")
	}
	return c.columns
}

func (c *asciiTableCodec) serialize(s *Serializer, buf []byte, args []any) ([]byte, int, error) {
	cols := c.cols(s)
	n := len(args)
	if n > len(cols) {
		n = len(cols)
	}
	fields := make([]string, n)
	for i := 0; i < n; i++ {
		fields[i] = fmt.Sprintf(strings.TrimSpace(cols[i]), args[i])
	}
	text := strings.Join(fields, FieldSep)
	buf = ensureCap(buf, len(text))
	copy(buf, text)
	return buf, n, nil
}

func (c *asciiTableCodec) deserialize(s *Serializer, buf []byte, outArgs []any) (int, error) {
	cols := c.cols(s)
	fields := strings.Split(string(buf), FieldSep)
	n := len(fields)
	if n > len(outArgs) {
		n = len(outArgs)
	}
	for i := 0; i < n && i < len(cols); i++ {
		if outArgs[i] == nil {
			continue
		}
		if _, err := fmt.Sscanf(fields[i], strings.TrimSpace(cols[i]), outArgs[i]); err != nil {
			return i, errSerialize(err.Error())
		}
	}
	return n, nil
}
