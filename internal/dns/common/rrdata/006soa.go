package rrdata

import (
	"encoding/binary"
	"fmt"
)

// decodeSOAData decodes an SOA record into "mname rname serial refresh retry expire minimum".
func decodeSOAData(b []byte) (string, error) {
	mname, n, err := decodeDomainName(b)
	if err != nil {
		return "", fmt.Errorf("invalid SOA mname: %v", err)
	}
	offset := n

	rname, n, err := decodeDomainName(b[offset:])
	if err != nil {
		return "", fmt.Errorf("invalid SOA rname: %v", err)
	}
	offset += n

	if len(b[offset:]) != 20 {
		return "", fmt.Errorf("SOA record has %d bytes of integer fields, want 20", len(b[offset:]))
	}

	// serial, refresh, retry, expire, minimum
	var u32 [5]uint32
	for i := 0; i < 5; i++ {
		u32[i] = binary.BigEndian.Uint32(b[offset+i*4:])
	}
	return fmt.Sprintf("%s %s %d %d %d %d %d", mname, rname, u32[0], u32[1], u32[2], u32[3], u32[4]), nil
}
