package resolver

import "context"

// UpstreamClient exchanges a raw DNS message with a DoH server.
type UpstreamClient interface {
	Send(ctx context.Context, upstreamURL string, query []byte) ([]byte, error)
}
