package rrdata

import "fmt"

func decodeCNAMEData(b []byte) (string, error) {
	name, err := decodeSingleName(b)
	if err != nil {
		return "", fmt.Errorf("invalid CNAME record: %v", err)
	}
	return name, nil
}
