// Package rrdata renders RDATA in presentation format.
package rrdata

import (
	"fmt"
	"strings"
)

// decodeDomainName reads one uncompressed wire-format name from the start of b
// and returns it with a trailing dot, plus the number of bytes consumed.
func decodeDomainName(b []byte) (string, int, error) {
	var sb strings.Builder
	i := 0
	for {
		if i >= len(b) {
			return "", 0, fmt.Errorf("invalid domain name encoding")
		}
		labelLen := int(b[i])
		if labelLen == 0 {
			i++
			break
		}
		if labelLen > 63 {
			return "", 0, fmt.Errorf("invalid label length %d", labelLen)
		}
		i++
		if i+labelLen > len(b) {
			return "", 0, fmt.Errorf("invalid domain name encoding")
		}
		for _, c := range b[i : i+labelLen] {
			writeNameByte(&sb, c)
		}
		sb.WriteByte('.')
		i += labelLen
	}
	if sb.Len() == 0 {
		return ".", i, nil
	}
	return sb.String(), i, nil
}

// decodeSingleName decodes RDATA consisting of exactly one domain name.
func decodeSingleName(b []byte) (string, error) {
	name, n, err := decodeDomainName(b)
	if err != nil {
		return "", err
	}
	if n != len(b) {
		return "", fmt.Errorf("%d trailing bytes after name", len(b)-n)
	}
	return name, nil
}

func writeNameByte(sb *strings.Builder, c byte) {
	switch {
	case c == '.' || c == '\\':
		sb.WriteByte('\\')
		sb.WriteByte(c)
	case c < 0x21 || c > 0x7E:
		fmt.Fprintf(sb, "\\%03d", c)
	default:
		sb.WriteByte(c)
	}
}

// quoteCharString renders a <character-string> in double quotes, escaping
// quotes, backslashes and non-printable bytes.
func quoteCharString(b []byte) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, c := range b {
		switch {
		case c == '"' || c == '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c < 0x20 || c > 0x7E:
			fmt.Fprintf(&sb, "\\%03d", c)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
