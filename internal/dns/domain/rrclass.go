package domain

import "fmt"

// RRClass represents a DNS class (usually IN for Internet).
type RRClass uint16

// DNS Resource Record Class constants
const (
	RRClassIN   RRClass = 1   // IN - Internet
	RRClassCH   RRClass = 3   // CH - Chaos
	RRClassHS   RRClass = 4   // HS - Hesiod
	RRClassNONE RRClass = 254 // NONE - No class
	RRClassANY  RRClass = 255 // ANY - Any class (query only)
)

// String returns the mnemonic of the class, or "CLASS<n>" when it has none.
func (c RRClass) String() string {
	switch c {
	case RRClassIN:
		return "IN"
	case RRClassCH:
		return "CH"
	case RRClassHS:
		return "HS"
	case RRClassNONE:
		return "NONE"
	case RRClassANY:
		return "ANY"
	default:
		return fmt.Sprintf("CLASS%d", uint16(c))
	}
}
