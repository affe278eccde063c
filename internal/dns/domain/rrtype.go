package domain

import "fmt"

// RRType represents a DNS resource record type (e.g. A, AAAA, MX).
// See IANA DNS Parameters for assigned codes.
type RRType uint16

// DNS Resource Record Type constants
const (
	RRTypeA      RRType = 1   // A - IPv4 address
	RRTypeNS     RRType = 2   // NS - Name server
	RRTypeCNAME  RRType = 5   // CNAME - Canonical name
	RRTypeSOA    RRType = 6   // SOA - Start of authority
	RRTypePTR    RRType = 12  // PTR - Pointer
	RRTypeMX     RRType = 15  // MX - Mail exchange
	RRTypeTXT    RRType = 16  // TXT - Text
	RRTypeAAAA   RRType = 28  // AAAA - IPv6 address
	RRTypeSRV    RRType = 33  // SRV - Service
	RRTypeNAPTR  RRType = 35  // NAPTR - Naming authority pointer
	RRTypeOPT    RRType = 41  // OPT - EDNS option
	RRTypeDS     RRType = 43  // DS - Delegation signer
	RRTypeRRSIG  RRType = 46  // RRSIG - Resource record signature
	RRTypeNSEC   RRType = 47  // NSEC - Next secure
	RRTypeDNSKEY RRType = 48  // DNSKEY - DNS key
	RRTypeTLSA   RRType = 52  // TLSA - TLS association
	RRTypeSVCB   RRType = 64  // SVCB - Service binding
	RRTypeHTTPS  RRType = 65  // HTTPS - HTTPS binding
	RRTypeANY    RRType = 255 // ANY - Any type (query only)
	RRTypeCAA    RRType = 257 // CAA - Certificate authority authorization
)

var rrTypeNames = map[RRType]string{
	RRTypeA:      "A",
	RRTypeNS:     "NS",
	RRTypeCNAME:  "CNAME",
	RRTypeSOA:    "SOA",
	RRTypePTR:    "PTR",
	RRTypeMX:     "MX",
	RRTypeTXT:    "TXT",
	RRTypeAAAA:   "AAAA",
	RRTypeSRV:    "SRV",
	RRTypeNAPTR:  "NAPTR",
	RRTypeOPT:    "OPT",
	RRTypeDS:     "DS",
	RRTypeRRSIG:  "RRSIG",
	RRTypeNSEC:   "NSEC",
	RRTypeDNSKEY: "DNSKEY",
	RRTypeTLSA:   "TLSA",
	RRTypeSVCB:   "SVCB",
	RRTypeHTTPS:  "HTTPS",
	RRTypeANY:    "ANY",
	RRTypeCAA:    "CAA",
}

// String returns the mnemonic of the type, or the RFC 3597 generic form
// "TYPE<n>" for types without one.
func (t RRType) String() string {
	if name, ok := rrTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TYPE%d", uint16(t))
}
