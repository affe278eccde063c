// Package transport accepts plain DNS queries from the network and hands them,
// validated, to a RequestHandler that produces the raw reply.
package transport

import (
	"context"
	"net"

	"github.com/haukened/rr-doh/internal/dns/domain"
)

// ServerTransport is a listener that feeds incoming DNS queries to a handler.
type ServerTransport interface {
	// Start binds the socket and begins serving in the background.
	// Failing to bind is the only error it returns.
	Start(ctx context.Context, handler RequestHandler) error

	// Stop closes the socket and waits for in-flight requests to finish.
	Stop() error

	// Address returns the bound address, or the configured one before Start.
	Address() string
}

// Request is a single validated query.
type Request struct {
	// Raw holds the datagram exactly as received.
	Raw []byte
	// Query is the decoded form of Raw.
	Query  domain.Message
	Client net.Addr
}

// RequestHandler turns a query into the bytes sent back to the client.
// Returning an error means no reply is sent.
type RequestHandler interface {
	HandleRequest(ctx context.Context, req Request) ([]byte, error)
}

// HandlerFunc adapts a function to RequestHandler.
type HandlerFunc func(ctx context.Context, req Request) ([]byte, error)

func (f HandlerFunc) HandleRequest(ctx context.Context, req Request) ([]byte, error) {
	return f(ctx, req)
}
