// Package resolver performs a single A lookup through a DoH upstream.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/haukened/rr-doh/internal/dns/common/log"
	"github.com/haukened/rr-doh/internal/dns/domain"
	"github.com/haukened/rr-doh/internal/dns/gateways/wire"
)

type Resolver struct {
	codec       wire.Codec
	logger      log.Logger
	upstream    UpstreamClient
	upstreamURL string
}

type ResolverOptions struct {
	Codec       wire.Codec
	Logger      log.Logger
	Upstream    UpstreamClient
	UpstreamURL string
}

func NewResolver(opts ResolverOptions) (*Resolver, error) {
	if opts.Codec == nil {
		return nil, errors.New("resolver: codec is required")
	}
	if opts.Upstream == nil {
		return nil, errors.New("resolver: upstream is required")
	}
	if opts.UpstreamURL == "" {
		return nil, errors.New("resolver: upstream URL is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.GetLogger()
	}
	return &Resolver{
		codec:       opts.Codec,
		logger:      opts.Logger,
		upstream:    opts.Upstream,
		upstreamURL: opts.UpstreamURL,
	}, nil
}

// Resolve asks the upstream for the A records of name and returns the answer
// section in response order. A response with a non-NOERROR rcode is logged
// and yields no records. Codec and transport failures are returned wrapped,
// so callers can match *wire.CodecError and *doh.TransportError with errors.As.
func (r *Resolver) Resolve(ctx context.Context, name string) ([]domain.ResourceRecord, error) {
	query, err := r.codec.BuildAQuery(name)
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	packet, err := r.codec.Encode(query)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	r.logger.Debug(map[string]any{
		"name":     query.Questions[0].Name,
		"query_id": query.ID,
		"upstream": r.upstreamURL,
	}, "Sending DoH query")

	body, err := r.upstream.Send(ctx, r.upstreamURL, packet)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", r.upstreamURL, err)
	}

	resp, err := r.codec.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.ID != query.ID {
		r.logger.Warn(map[string]any{
			"query_id": query.ID,
			"reply_id": resp.ID,
		}, "Upstream reply ID does not match query")
	}
	if resp.RCode != domain.RCodeNoError {
		r.logger.Warn(map[string]any{
			"name":  query.Questions[0].Name,
			"rcode": resp.RCode.String(),
		}, "Upstream answered with an error rcode")
		return nil, nil
	}
	return resp.Answers, nil
}
