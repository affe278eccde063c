package forwarder

import (
	"context"

	"github.com/haukened/rr-doh/internal/dns/domain"
)

// Upstream exchanges a raw DNS message with a DoH server.
type Upstream interface {
	Send(ctx context.Context, upstreamURL string, query []byte) ([]byte, error)
}

// Blocklist decides whether a name must not be forwarded.
type Blocklist interface {
	Decide(name string) domain.BlockDecision
}
