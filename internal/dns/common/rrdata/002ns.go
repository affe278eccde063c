package rrdata

import "fmt"

func decodeNSData(b []byte) (string, error) {
	name, err := decodeSingleName(b)
	if err != nil {
		return "", fmt.Errorf("invalid NS record: %v", err)
	}
	return name, nil
}
