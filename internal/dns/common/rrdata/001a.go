package rrdata

import (
	"fmt"
	"net/netip"
)

// decodeAData decodes an A record's 4-byte address.
func decodeAData(b []byte) (string, error) {
	if len(b) != 4 {
		return "", fmt.Errorf("invalid A record length: %d", len(b))
	}
	return netip.AddrFrom4([4]byte(b)).String(), nil
}
