package blocklist

import "github.com/haukened/rr-doh/internal/dns/domain"

// Noop is used when no blocklist is configured. It never blocks.
type Noop struct{}

func (Noop) Decide(string) domain.BlockDecision {
	return domain.BlockDecision{}
}
