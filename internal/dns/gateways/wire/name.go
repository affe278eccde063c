package wire

import (
	"encoding/binary"
	"strings"
)

const (
	maxLabelLen = 63
	maxNameLen  = 255
)

// appendName appends the uncompressed wire form of a presentation-format name.
// Both "example.com" and "example.com." are accepted; "" and "." are the root.
// Escapes follow RFC 1035 §5.1: "\X" for a literal X and "\DDD" for a decimal byte.
func appendName(b []byte, name string) ([]byte, error) {
	if name == "" || name == "." {
		return append(b, 0), nil
	}
	start := len(b)
	label := make([]byte, 0, maxLabelLen)

	flush := func() error {
		if len(label) == 0 {
			return ErrEmptyLabel
		}
		b = append(b, byte(len(label)))
		b = append(b, label...)
		label = label[:0]
		return nil
	}

	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '.':
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		case c == '\\':
			if i+1 >= len(name) {
				return nil, ErrBadEscape
			}
			if isDigit(name[i+1]) {
				if i+3 >= len(name) || !isDigit(name[i+2]) || !isDigit(name[i+3]) {
					return nil, ErrBadEscape
				}
				v := int(name[i+1]-'0')*100 + int(name[i+2]-'0')*10 + int(name[i+3]-'0')
				if v > 255 {
					return nil, ErrBadEscape
				}
				c = byte(v)
				i += 3
			} else {
				c = name[i+1]
				i++
			}
		case c <= ' ' || c >= 0x7F:
			return nil, ErrInvalidChar
		}
		if len(label) == maxLabelLen {
			return nil, ErrLabelTooLong
		}
		label = append(label, c)
	}
	if len(label) > 0 {
		if err := flush(); err != nil {
			return nil, err
		}
	}
	b = append(b, 0)
	if len(b)-start > maxNameLen {
		return nil, ErrNameTooLong
	}
	return b, nil
}

// unpackName reads the name at off, following compression pointers, and
// returns its uncompressed wire form plus the offset just past the name as it
// sits in msg. Pointers must point strictly backwards, which rules out loops.
func unpackName(msg []byte, off int) ([]byte, int, error) {
	wire := make([]byte, 0, 32)
	cur := off
	floor := off // a pointer must target an offset below this
	next := -1
	for {
		if cur >= len(msg) {
			return nil, 0, ErrTruncated
		}
		c := int(msg[cur])
		switch c & 0xC0 {
		case 0x00:
			if c == 0 {
				wire = append(wire, 0)
				if len(wire) > maxNameLen {
					return nil, 0, ErrNameTooLong
				}
				if next < 0 {
					next = cur + 1
				}
				return wire, next, nil
			}
			if cur+1+c > len(msg) {
				return nil, 0, ErrTruncated
			}
			wire = append(wire, msg[cur:cur+1+c]...)
			if len(wire) > maxNameLen {
				return nil, 0, ErrNameTooLong
			}
			cur += 1 + c
		case 0xC0:
			if cur+1 >= len(msg) {
				return nil, 0, ErrTruncated
			}
			ptr := int(binary.BigEndian.Uint16(msg[cur:]) & 0x3FFF)
			if ptr >= floor {
				return nil, 0, ErrBadPointer
			}
			if next < 0 {
				next = cur + 2
			}
			floor = ptr
			cur = ptr
		default:
			return nil, 0, ErrLabelType
		}
	}
}

// nameString renders an uncompressed wire name in presentation form with a
// trailing dot. The input must come from unpackName.
func nameString(wire []byte) string {
	if len(wire) <= 1 {
		return "."
	}
	var sb strings.Builder
	for i := 0; i < len(wire) && wire[i] != 0; {
		n := int(wire[i])
		for _, c := range wire[i+1 : i+1+n] {
			writeEscaped(&sb, c)
		}
		sb.WriteByte('.')
		i += 1 + n
	}
	return sb.String()
}

func writeEscaped(sb *strings.Builder, c byte) {
	switch {
	case c == '.' || c == '\\':
		sb.WriteByte('\\')
		sb.WriteByte(c)
	case c <= ' ' || c >= 0x7F:
		sb.WriteByte('\\')
		sb.WriteByte('0' + c/100)
		sb.WriteByte('0' + c/10%10)
		sb.WriteByte('0' + c%10)
	default:
		sb.WriteByte(c)
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
