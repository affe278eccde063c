package domain

import "strings"

// Opcode is the 4-bit kind-of-query field of the header.
type Opcode uint8

const (
	OpcodeQuery  Opcode = 0
	OpcodeIQuery Opcode = 1
	OpcodeStatus Opcode = 2
	OpcodeNotify Opcode = 4
	OpcodeUpdate Opcode = 5
)

// Header holds the fixed fields of a DNS message header (RFC 1035 §4.1.1).
// Section counts are not stored; they are derived from the Message sections.
type Header struct {
	ID                 uint16
	Response           bool // QR
	Opcode             Opcode
	Authoritative      bool // AA
	Truncated          bool // TC
	RecursionDesired   bool // RD
	RecursionAvailable bool // RA
	Zero               bool // Z, must be zero on the wire but preserved
	AuthenticatedData  bool // AD (RFC 4035)
	CheckingDisabled   bool // CD (RFC 4035)
	RCode              RCode
}

// Message is a complete DNS message.
type Message struct {
	Header
	Questions  []Question
	Answers    []ResourceRecord
	Authority  []ResourceRecord
	Additional []ResourceRecord
}

// Counts returns QDCOUNT, ANCOUNT, NSCOUNT and ARCOUNT as they appear in the header.
func (m Message) Counts() (qd, an, ns, ar int) {
	return len(m.Questions), len(m.Answers), len(m.Authority), len(m.Additional)
}

// Question returns the first question, or false if the message has none.
func (m Message) Question() (Question, bool) {
	if len(m.Questions) == 0 {
		return Question{}, false
	}
	return m.Questions[0], true
}

// Refused builds the REFUSED reply to m: same ID, opcode and questions, RD copied,
// QR and RA set, no records.
func (m Message) Refused() Message {
	return Message{
		Header: Header{
			ID:                 m.ID,
			Response:           true,
			Opcode:             m.Opcode,
			RecursionDesired:   m.RecursionDesired,
			RecursionAvailable: true,
			CheckingDisabled:   m.CheckingDisabled,
			RCode:              RCodeRefused,
		},
		Questions: append([]Question(nil), m.Questions...),
	}
}

// FQDN returns name with exactly one trailing dot. The empty name maps to the root.
func FQDN(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || name == "." {
		return "."
	}
	if strings.HasSuffix(name, ".") && !escapedAt(name, len(name)-1) {
		return name
	}
	return name + "."
}

// escapedAt reports whether the byte at i is preceded by an odd run of backslashes.
func escapedAt(s string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}
