package term

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

func formatInt(v int64) string   { return strconv.FormatInt(v, 10) }
func formatUint(v uint64) string { return strconv.FormatUint(v, 10) }

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if strings.ContainsAny(s, "IN") {
		return s
	}
	if e := strings.IndexByte(s, 'e'); e >= 0 {
		if !strings.Contains(s[:e], ".") {
			s = s[:e] + ".0" + s[e:]
		}
		return s
	}
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func isBareAtom(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case i == 0 && (r < 'a' || r > 'z'):
			return false
		case r == '_' || r == '@':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func formatAtom(name string) string {
	if isBareAtom(name) {
		return name
	}
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range name {
		switch r {
		case '\'', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

func printable(data []byte) bool {
	if !utf8.Valid(data) {
		return false
	}
	for _, r := range string(data) {
		if !unicode.IsPrint(r) && r != '\n' && r != '\t' && r != '\r' {
			return false
		}
	}
	return true
}

func formatBinary(data []byte) string {
	if printable(data) {
		return strconv.Quote(string(data))
	}
	var b strings.Builder
	b.WriteString("<<")
	for i, c := range data {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(int(c)))
	}
	b.WriteString(">>")
	return b.String()
}

func formatSeq(open, close byte, elems []Term) string {
	var b strings.Builder
	b.WriteByte(open)
	for i, e := range elems {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(e.String())
	}
	b.WriteByte(close)
	return b.String()
}

func formatMap(pairs []Pair) string {
	var b strings.Builder
	b.WriteString("%{")
	for i, p := range pairs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Key.String())
		b.WriteString(" => ")
		b.WriteString(p.Value.String())
	}
	b.WriteByte('}')
	return b.String()
}
