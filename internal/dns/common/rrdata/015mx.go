package rrdata

import (
	"encoding/binary"
	"fmt"
)

// decodeMXData decodes MX (Mail Exchange) record data into "preference exchange".
func decodeMXData(b []byte) (string, error) {
	if len(b) < 3 {
		return "", fmt.Errorf("invalid MX data length: %d", len(b))
	}
	pref := binary.BigEndian.Uint16(b[:2])
	exchange, err := decodeSingleName(b[2:])
	if err != nil {
		return "", fmt.Errorf("invalid MX exchange domain: %v", err)
	}
	return fmt.Sprintf("%d %s", pref, exchange), nil
}
