package rrdata

import "fmt"

// decodeCAAData decodes the binary representation of a CAA record into `flag tag "value"`.
func decodeCAAData(data []byte) (string, error) {
	if len(data) < 2 {
		return "", fmt.Errorf("invalid CAA record length: %d", len(data))
	}

	flag := data[0]
	tagLen := int(data[1])
	if tagLen == 0 || len(data) < 2+tagLen {
		return "", fmt.Errorf("invalid CAA tag length: %d", tagLen)
	}
	tag := string(data[2 : 2+tagLen])

	// The value is opaque (a CA domain or a URI); it is quoted but never canonicalized.
	value := quoteCharString(data[2+tagLen:])

	return fmt.Sprintf("%d %s %s", flag, tag, value), nil
}
