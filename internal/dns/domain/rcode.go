package domain

import "fmt"

// RCode represents a DNS response code indicating the result of a query.
// Only the 4-bit header RCODE is modelled; extended codes need EDNS0.
type RCode uint8

const (
	RCodeNoError  RCode = 0
	RCodeFormErr  RCode = 1
	RCodeServFail RCode = 2
	RCodeNXDomain RCode = 3
	RCodeNotImp   RCode = 4
	RCodeRefused  RCode = 5
)

var rcodeNames = [...]string{
	"NOERROR", "FORMERR", "SERVFAIL", "NXDOMAIN", "NOTIMP", "REFUSED",
	"YXDOMAIN", "YXRRSET", "NXRRSET", "NOTAUTH", "NOTZONE",
}

// IsValid returns true if the RCode fits in the 4-bit header field.
func (r RCode) IsValid() bool {
	return r <= 0x0F
}

// String returns the textual representation of the RCode.
func (r RCode) String() string {
	if int(r) < len(rcodeNames) {
		return rcodeNames[r]
	}
	return fmt.Sprintf("RCODE%d", r)
}
