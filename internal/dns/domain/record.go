package domain

import "time"

// ResourceRecord represents a DNS resource record as carried on the wire.
// Data holds the raw RDATA; names embedded in it are stored uncompressed.
type ResourceRecord struct {
	Name  string
	Type  RRType
	Class RRClass
	TTL   uint32
	Data  []byte
}

// TTLDuration returns the record TTL as a time.Duration.
func (rr ResourceRecord) TTLDuration() time.Duration {
	return time.Duration(rr.TTL) * time.Second
}
