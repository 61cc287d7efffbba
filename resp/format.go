package resp

import (
	"strconv"
	"strings"
)

// Format renders v the way redis-cli prints replies.
func Format(v Value) string {
	var sb strings.Builder
	format(&sb, v, "")
	return sb.String()
}

func format(sb *strings.Builder, v Value, indent string) {
	if v.Null {
		sb.WriteString("(nil)")
		return
	}

	switch v.Kind {
	case KindSimpleString:
		sb.Write(v.Str)
	case KindError:
		sb.WriteString("(error) ")
		sb.Write(v.Str)
	case KindInteger:
		sb.WriteString("(integer) ")
		sb.WriteString(strconv.FormatInt(v.Int, 10))
	case KindBulkString:
		sb.WriteString(strconv.Quote(string(v.Str)))
	case KindArray:
		if len(v.Array) == 0 {
			sb.WriteString("(empty array)")
			return
		}
		width := len(strconv.Itoa(len(v.Array)))
		for i, e := range v.Array {
			if i > 0 {
				sb.WriteByte('\n')
				sb.WriteString(indent)
			}
			num := strconv.Itoa(i + 1)
			sb.WriteString(strings.Repeat(" ", width-len(num)))
			sb.WriteString(num)
			sb.WriteString(") ")
			format(sb, e, indent+strings.Repeat(" ", width+2))
		}
	}
}
