// Package forwarder relays validated plain-DNS queries to a DoH upstream and
// hands the upstream's answer back untouched.
package forwarder

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/haukened/rr-doh/internal/dns/common/log"
	"github.com/haukened/rr-doh/internal/dns/common/utils"
	"github.com/haukened/rr-doh/internal/dns/gateways/transport"
	"github.com/haukened/rr-doh/internal/dns/gateways/wire"
)

// Forwarder implements transport.RequestHandler.
type Forwarder struct {
	upstream    Upstream
	upstreamURL string
	codec       wire.Codec
	blocklist   Blocklist
	logger      log.Logger
}

var _ transport.RequestHandler = (*Forwarder)(nil)

// Options configures a Forwarder. Blocklist may be nil.
type Options struct {
	Upstream    Upstream
	UpstreamURL string
	Codec       wire.Codec
	Blocklist   Blocklist
	Logger      log.Logger
}

// New returns a Forwarder, or an error when a required collaborator is missing.
func New(opts Options) (*Forwarder, error) {
	if opts.Upstream == nil {
		return nil, errors.New("forwarder: upstream is required")
	}
	if opts.UpstreamURL == "" {
		return nil, errors.New("forwarder: upstream URL is required")
	}
	if opts.Codec == nil {
		return nil, errors.New("forwarder: codec is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.GetLogger()
	}
	return &Forwarder{
		upstream:    opts.Upstream,
		upstreamURL: opts.UpstreamURL,
		codec:       opts.Codec,
		blocklist:   opts.Blocklist,
		logger:      opts.Logger,
	}, nil
}

// HandleRequest forwards the raw query bytes and returns the upstream body
// verbatim. Blocked names get a locally built REFUSED reply instead.
func (f *Forwarder) HandleRequest(ctx context.Context, req transport.Request) ([]byte, error) {
	if reply, blocked, err := f.refuseIfBlocked(req); blocked {
		return reply, err
	}

	body, err := f.upstream.Send(ctx, f.upstreamURL, req.Raw)
	if err != nil {
		return nil, fmt.Errorf("upstream exchange: %w", err)
	}

	if len(body) < 2 {
		f.logger.Warn(map[string]any{
			"client":   clientString(req),
			"query_id": req.Query.ID,
			"size":     len(body),
		}, "Upstream reply too short to carry an ID")
	} else if id := binary.BigEndian.Uint16(body); id != req.Query.ID {
		f.logger.Warn(map[string]any{
			"client":   clientString(req),
			"query_id": req.Query.ID,
			"reply_id": id,
		}, "Upstream reply ID does not match query")
	}
	return body, nil
}

func (f *Forwarder) refuseIfBlocked(req transport.Request) ([]byte, bool, error) {
	if f.blocklist == nil {
		return nil, false, nil
	}
	q, ok := req.Query.Question()
	if !ok {
		return nil, false, nil
	}
	decision := f.blocklist.Decide(q.Name)
	if !decision.Blocked {
		return nil, false, nil
	}

	f.logger.Info(map[string]any{
		"client":   clientString(req),
		"query_id": req.Query.ID,
		"name":     q.Name,
		"zone":     utils.Zone(q.Name),
		"rule":     decision.MatchedRule,
		"source":   decision.Source,
		"kind":     decision.Kind.String(),
	}, "Refusing blocked DNS query")

	reply, err := f.codec.Encode(req.Query.Refused())
	if err != nil {
		return nil, true, fmt.Errorf("encode refused reply: %w", err)
	}
	return reply, true, nil
}

func clientString(req transport.Request) string {
	if req.Client == nil {
		return ""
	}
	return req.Client.String()
}
