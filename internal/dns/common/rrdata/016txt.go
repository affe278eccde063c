package rrdata

import (
	"fmt"
	"strings"
)

// decodeTXTData renders each <character-string> quoted, separated by spaces.
// See RFC 1035 section 3.3.14.
func decodeTXTData(b []byte) (string, error) {
	if len(b) == 0 {
		return "", fmt.Errorf("TXT record must contain at least one segment")
	}
	var segments []string
	for i := 0; i < len(b); {
		n := int(b[i])
		i++
		if i+n > len(b) {
			return "", fmt.Errorf("TXT segment overruns record: want %d bytes, have %d", n, len(b)-i)
		}
		segments = append(segments, quoteCharString(b[i:i+n]))
		i += n
	}
	return strings.Join(segments, " "), nil
}
