package rrdata

import (
	"fmt"
	"net/netip"
)

// decodeAAAAData decodes an AAAA record's 16-byte address.
func decodeAAAAData(b []byte) (string, error) {
	if len(b) != 16 {
		return "", fmt.Errorf("invalid AAAA record length: %d", len(b))
	}
	return netip.AddrFrom16([16]byte(b)).String(), nil
}
