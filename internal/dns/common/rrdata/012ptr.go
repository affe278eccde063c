package rrdata

import "fmt"

func decodePTRData(b []byte) (string, error) {
	name, err := decodeSingleName(b)
	if err != nil {
		return "", fmt.Errorf("invalid PTR record: %v", err)
	}
	return name, nil
}
