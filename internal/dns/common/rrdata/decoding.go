package rrdata

import (
	"encoding/hex"
	"fmt"

	"github.com/haukened/rr-doh/internal/dns/domain"
)

// Decode renders RDATA of the given type in presentation format. Types without
// a dedicated decoder use the RFC 3597 generic form.
func Decode(rrType domain.RRType, data []byte) (string, error) {
	switch rrType {
	case domain.RRTypeA: // 1
		return decodeAData(data)
	case domain.RRTypeNS: // 2
		return decodeNSData(data)
	case domain.RRTypeCNAME: // 5
		return decodeCNAMEData(data)
	case domain.RRTypeSOA: // 6
		return decodeSOAData(data)
	case domain.RRTypePTR: // 12
		return decodePTRData(data)
	case domain.RRTypeMX: // 15
		return decodeMXData(data)
	case domain.RRTypeTXT: // 16
		return decodeTXTData(data)
	case domain.RRTypeAAAA: // 28
		return decodeAAAAData(data)
	case domain.RRTypeSRV: // 33
		return decodeSRVData(data)
	case domain.RRTypeCAA: // 257
		return decodeCAAData(data)
	default:
		return Generic(data), nil
	}
}

// Generic renders data in the RFC 3597 unknown-type form: \# <len> <hex>.
func Generic(data []byte) string {
	if len(data) == 0 {
		return `\# 0`
	}
	return fmt.Sprintf(`\# %d %s`, len(data), hex.EncodeToString(data))
}
