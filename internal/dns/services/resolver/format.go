package resolver

import (
	"fmt"

	"github.com/haukened/rr-doh/internal/dns/common/rrdata"
	"github.com/haukened/rr-doh/internal/dns/domain"
)

// FormatRecord renders rr as one tab-separated line: name, ttl, class, type, rdata.
// RDATA that cannot be parsed for its type falls back to the RFC 3597 generic form.
func FormatRecord(rr domain.ResourceRecord) string {
	data, err := rrdata.Decode(rr.Type, rr.Data)
	if err != nil {
		data = rrdata.Generic(rr.Data)
	}
	return fmt.Sprintf("%s\t%d\t%s\t%s\t%s", rr.Name, rr.TTL, rr.Class, rr.Type, data)
}
