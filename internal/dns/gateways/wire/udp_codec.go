package wire

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/haukened/rr-doh/internal/dns/common/log"
	"github.com/haukened/rr-doh/internal/dns/domain"
)

const (
	headerLen = 12
	// smallest possible question: root name + type + class
	minQuestionLen = 5
	// smallest possible record: root name + type + class + ttl + rdlength
	minRecordLen = 11
	maxCount     = 0xFFFF
)

// udpCodec implements Codec for the plain RFC 1035 wire format.
type udpCodec struct {
	logger log.Logger
	newID  func() uint16
}

var _ Codec = (*udpCodec)(nil)

// NewUDPCodec returns a Codec that logs through logger.
func NewUDPCodec(logger log.Logger) *udpCodec {
	return &udpCodec{
		logger: logger,
		newID:  randomID,
	}
}

// randomID draws a message ID from crypto/rand. A failed read leaves the ID at zero.
func randomID() uint16 {
	var b [2]byte
	_, _ = rand.Read(b[:])
	return binary.BigEndian.Uint16(b[:])
}

// BuildAQuery returns a recursive A/IN query for name with a fresh random ID.
func (c *udpCodec) BuildAQuery(name string) (domain.Message, error) {
	fqdn := domain.FQDN(name)
	if fqdn == "." {
		return domain.Message{}, &CodecError{Op: "build", Offset: -1, Err: ErrEmptyName}
	}
	if _, err := appendName(nil, fqdn); err != nil {
		return domain.Message{}, &CodecError{Op: "build", Offset: -1, Err: fmt.Errorf("%q: %w", name, err)}
	}
	return domain.Message{
		Header: domain.Header{
			ID:               c.newID(),
			Opcode:           domain.OpcodeQuery,
			RecursionDesired: true,
		},
		Questions: []domain.Question{{
			Name:  fqdn,
			Type:  domain.RRTypeA,
			Class: domain.RRClassIN,
		}},
	}, nil
}

// Encode serialises msg without name compression.
func (c *udpCodec) Encode(msg domain.Message) ([]byte, error) {
	if msg.Opcode > 0x0F {
		return nil, encodeError(fmt.Errorf("opcode %d: %w", msg.Opcode, ErrHeaderField))
	}
	if msg.RCode > 0x0F {
		return nil, encodeError(fmt.Errorf("rcode %d: %w", msg.RCode, ErrHeaderField))
	}
	qd, an, ns, ar := msg.Counts()
	for _, n := range []int{qd, an, ns, ar} {
		if n > maxCount {
			return nil, encodeError(ErrTooManyRecords)
		}
	}

	b := make([]byte, headerLen, 512)
	binary.BigEndian.PutUint16(b[0:], msg.ID)
	binary.BigEndian.PutUint16(b[2:], packFlags(msg.Header))
	binary.BigEndian.PutUint16(b[4:], uint16(qd))
	binary.BigEndian.PutUint16(b[6:], uint16(an))
	binary.BigEndian.PutUint16(b[8:], uint16(ns))
	binary.BigEndian.PutUint16(b[10:], uint16(ar))

	var err error
	for i, q := range msg.Questions {
		if b, err = appendName(b, q.Name); err != nil {
			return nil, encodeError(fmt.Errorf("question %d name %q: %w", i, q.Name, err))
		}
		b = binary.BigEndian.AppendUint16(b, uint16(q.Type))
		b = binary.BigEndian.AppendUint16(b, uint16(q.Class))
	}

	sections := []struct {
		name    string
		records []domain.ResourceRecord
	}{
		{"answer", msg.Answers},
		{"authority", msg.Authority},
		{"additional", msg.Additional},
	}
	for _, s := range sections {
		for i, rr := range s.records {
			if b, err = appendRecord(b, rr); err != nil {
				return nil, encodeError(fmt.Errorf("%s %d: %w", s.name, i, err))
			}
		}
	}

	c.logger.Debug(map[string]any{
		"id":           msg.ID,
		"final_packet": len(b),
	}, "Encoded DNS message")
	return b, nil
}

func appendRecord(b []byte, rr domain.ResourceRecord) ([]byte, error) {
	if len(rr.Data) > maxCount {
		return nil, ErrRDataTooLong
	}
	b, err := appendName(b, rr.Name)
	if err != nil {
		return nil, fmt.Errorf("name %q: %w", rr.Name, err)
	}
	b = binary.BigEndian.AppendUint16(b, uint16(rr.Type))
	b = binary.BigEndian.AppendUint16(b, uint16(rr.Class))
	b = binary.BigEndian.AppendUint32(b, rr.TTL)
	b = binary.BigEndian.AppendUint16(b, uint16(len(rr.Data)))
	return append(b, rr.Data...), nil
}

// Decode parses a complete DNS message. Trailing bytes after the last record are ignored.
func (c *udpCodec) Decode(data []byte) (domain.Message, error) {
	if len(data) < headerLen {
		return domain.Message{}, decodeError(len(data), ErrTruncated)
	}
	var msg domain.Message
	msg.ID = binary.BigEndian.Uint16(data[0:])
	msg.Header = unpackFlags(msg.ID, binary.BigEndian.Uint16(data[2:]))
	qd := int(binary.BigEndian.Uint16(data[4:]))
	an := int(binary.BigEndian.Uint16(data[6:]))
	ns := int(binary.BigEndian.Uint16(data[8:]))
	ar := int(binary.BigEndian.Uint16(data[10:]))

	// reject absurd counts before allocating anything for them
	if headerLen+qd*minQuestionLen+(an+ns+ar)*minRecordLen > len(data) {
		return domain.Message{}, decodeError(headerLen, ErrCountMismatch)
	}

	off := headerLen
	if qd > 0 {
		msg.Questions = make([]domain.Question, 0, qd)
	}
	for i := 0; i < qd; i++ {
		q, next, err := unpackQuestion(data, off)
		if err != nil {
			return domain.Message{}, decodeError(off, fmt.Errorf("question %d: %w", i, err))
		}
		msg.Questions = append(msg.Questions, q)
		off = next
	}

	var err error
	if msg.Answers, off, err = unpackSection(data, off, an, "answer"); err != nil {
		return domain.Message{}, err
	}
	if msg.Authority, off, err = unpackSection(data, off, ns, "authority"); err != nil {
		return domain.Message{}, err
	}
	if msg.Additional, off, err = unpackSection(data, off, ar, "additional"); err != nil {
		return domain.Message{}, err
	}

	if off < len(data) {
		c.logger.Debug(map[string]any{
			"id":       msg.ID,
			"trailing": len(data) - off,
		}, "Ignoring trailing bytes after DNS message")
	}
	return msg, nil
}

func unpackQuestion(data []byte, off int) (domain.Question, int, error) {
	wire, next, err := unpackName(data, off)
	if err != nil {
		return domain.Question{}, 0, err
	}
	if next+4 > len(data) {
		return domain.Question{}, 0, ErrTruncated
	}
	return domain.Question{
		Name:  nameString(wire),
		Type:  domain.RRType(binary.BigEndian.Uint16(data[next:])),
		Class: domain.RRClass(binary.BigEndian.Uint16(data[next+2:])),
	}, next + 4, nil
}

func unpackSection(data []byte, off, count int, section string) ([]domain.ResourceRecord, int, error) {
	if count == 0 {
		return nil, off, nil
	}
	records := make([]domain.ResourceRecord, 0, count)
	for i := 0; i < count; i++ {
		rr, next, err := unpackRecord(data, off)
		if err != nil {
			return nil, 0, decodeError(off, fmt.Errorf("%s %d: %w", section, i, err))
		}
		records = append(records, rr)
		off = next
	}
	return records, off, nil
}

func unpackRecord(data []byte, off int) (domain.ResourceRecord, int, error) {
	wire, next, err := unpackName(data, off)
	if err != nil {
		return domain.ResourceRecord{}, 0, err
	}
	if next+10 > len(data) {
		return domain.ResourceRecord{}, 0, ErrTruncated
	}
	rr := domain.ResourceRecord{
		Name:  nameString(wire),
		Type:  domain.RRType(binary.BigEndian.Uint16(data[next:])),
		Class: domain.RRClass(binary.BigEndian.Uint16(data[next+2:])),
		TTL:   binary.BigEndian.Uint32(data[next+4:]),
	}
	rdlen := int(binary.BigEndian.Uint16(data[next+8:]))
	start := next + 10
	end := start + rdlen
	if end > len(data) {
		return domain.ResourceRecord{}, 0, ErrTruncated
	}
	if rdlen > 0 {
		rr.Data, err = unpackRData(data, start, end, rr.Type)
		if err != nil {
			return domain.ResourceRecord{}, 0, fmt.Errorf("%s rdata: %w", rr.Type, err)
		}
	}
	return rr, end, nil
}

// unpackRData copies the RDATA in data[start:end]. For types whose RDATA
// embeds domain names, compression pointers are expanded so the returned
// bytes stand on their own.
func unpackRData(data []byte, start, end int, t domain.RRType) ([]byte, error) {
	var layout []int // fixed-width fields (>0) and names (0), in order
	switch t {
	case domain.RRTypeNS, domain.RRTypeCNAME, domain.RRTypePTR:
		layout = []int{0}
	case domain.RRTypeMX:
		layout = []int{2, 0}
	case domain.RRTypeSRV:
		layout = []int{6, 0}
	case domain.RRTypeSOA:
		layout = []int{0, 0, 20}
	default:
		return append([]byte(nil), data[start:end]...), nil
	}

	// names are only allowed to reach back into the message, never past the rdata
	bounded := data[:end]
	out := make([]byte, 0, end-start)
	off := start
	for _, width := range layout {
		if width > 0 {
			if off+width > end {
				return nil, ErrRDataLength
			}
			out = append(out, data[off:off+width]...)
			off += width
			continue
		}
		wire, next, err := unpackName(bounded, off)
		if err != nil {
			return nil, err
		}
		out = append(out, wire...)
		off = next
	}
	if off != end {
		return nil, ErrRDataLength
	}
	return out, nil
}

func packFlags(h domain.Header) uint16 {
	var f uint16
	if h.Response {
		f |= 1 << 15
	}
	f |= uint16(h.Opcode&0x0F) << 11
	if h.Authoritative {
		f |= 1 << 10
	}
	if h.Truncated {
		f |= 1 << 9
	}
	if h.RecursionDesired {
		f |= 1 << 8
	}
	if h.RecursionAvailable {
		f |= 1 << 7
	}
	if h.Zero {
		f |= 1 << 6
	}
	if h.AuthenticatedData {
		f |= 1 << 5
	}
	if h.CheckingDisabled {
		f |= 1 << 4
	}
	return f | uint16(h.RCode&0x0F)
}

func unpackFlags(id, f uint16) domain.Header {
	return domain.Header{
		ID:                 id,
		Response:           f&(1<<15) != 0,
		Opcode:             domain.Opcode(f>>11) & 0x0F,
		Authoritative:      f&(1<<10) != 0,
		Truncated:          f&(1<<9) != 0,
		RecursionDesired:   f&(1<<8) != 0,
		RecursionAvailable: f&(1<<7) != 0,
		Zero:               f&(1<<6) != 0,
		AuthenticatedData:  f&(1<<5) != 0,
		CheckingDisabled:   f&(1<<4) != 0,
		RCode:              domain.RCode(f & 0x0F),
	}
}
