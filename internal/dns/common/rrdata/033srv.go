package rrdata

import (
	"encoding/binary"
	"fmt"
)

// decodeSRVData decodes an SRV record into "priority weight port target".
func decodeSRVData(b []byte) (string, error) {
	if len(b) < 7 {
		return "", fmt.Errorf("invalid SRV data length: %d", len(b))
	}
	priority := binary.BigEndian.Uint16(b[0:2])
	weight := binary.BigEndian.Uint16(b[2:4])
	port := binary.BigEndian.Uint16(b[4:6])
	target, err := decodeSingleName(b[6:])
	if err != nil {
		return "", fmt.Errorf("invalid SRV target: %v", err)
	}
	return fmt.Sprintf("%d %d %d %s", priority, weight, port, target), nil
}
