package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/haukened/rr-doh/internal/dns/common/log"
	"github.com/haukened/rr-doh/internal/dns/common/utils"
	"github.com/haukened/rr-doh/internal/dns/gateways/wire"
)

const (
	// DefaultMaxUDPSize is the classic RFC 1035 limit for DNS over UDP.
	DefaultMaxUDPSize = 512
	DefaultWorkers    = 64
)

// UDPTransport implements ServerTransport for DNS over UDP (RFC 1035).
// Each datagram is served by its own goroutine; a weighted semaphore caps how
// many run at once, and the read loop waits for a slot when all are busy.
type UDPTransport struct {
	addr    string
	codec   wire.Codec
	logger  log.Logger
	maxSize int
	sem     *semaphore.Weighted

	mu      sync.RWMutex
	conn    *net.UDPConn
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup // listen loop plus in-flight workers
}

var _ ServerTransport = (*UDPTransport)(nil)

// Options configures a UDPTransport.
type Options struct {
	Addr   string
	Codec  wire.Codec
	Logger log.Logger
	// MaxUDPSize is the largest datagram accepted. Defaults to 512.
	MaxUDPSize int
	// Workers bounds concurrent requests. Defaults to 64.
	Workers int
}

// NewUDPTransport creates a UDP transport. Nothing is bound until Start.
func NewUDPTransport(opts Options) *UDPTransport {
	if opts.MaxUDPSize <= 0 {
		opts.MaxUDPSize = DefaultMaxUDPSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Logger == nil {
		opts.Logger = log.GetLogger()
	}
	return &UDPTransport{
		addr:    opts.Addr,
		codec:   opts.Codec,
		logger:  opts.Logger,
		maxSize: opts.MaxUDPSize,
		sem:     semaphore.NewWeighted(int64(opts.Workers)),
	}
}

// Start binds the UDP socket and starts the read loop.
func (t *UDPTransport) Start(ctx context.Context, handler RequestHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return fmt.Errorf("UDP transport already running")
	}

	udpAddr, err := net.ResolveUDPAddr("udp", t.addr)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address %s: %w", t.addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("failed to bind UDP socket on %s: %w", t.addr, err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	// unblock a pending read when the caller's context ends
	context.AfterFunc(loopCtx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})

	t.conn = conn
	t.cancel = cancel
	t.running = true

	t.logger.Info(map[string]any{
		"transport":    "udp",
		"address":      conn.LocalAddr().String(),
		"max_udp_size": t.maxSize,
	}, "DNS transport started")

	t.wg.Add(1)
	go t.listenLoop(loopCtx, conn, handler)
	return nil
}

// Stop closes the socket and blocks until the read loop and every in-flight
// request have returned. Calling it more than once is safe.
func (t *UDPTransport) Stop() error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil
	}
	t.running = false
	t.cancel()
	closeErr := t.conn.Close()
	t.mu.Unlock()

	if closeErr != nil {
		t.logger.Warn(map[string]any{
			"error": closeErr.Error(),
		}, "Error closing UDP connection")
	}

	t.wg.Wait()

	t.logger.Info(map[string]any{
		"transport": "udp",
		"address":   t.Address(),
	}, "DNS transport stopped")
	return closeErr
}

// Address returns the bound address once started, so ":0" resolves to the real port.
func (t *UDPTransport) Address() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.conn != nil {
		return t.conn.LocalAddr().String()
	}
	return t.addr
}

func (t *UDPTransport) listenLoop(ctx context.Context, conn *net.UDPConn, handler RequestHandler) {
	defer t.wg.Done()

	// in-flight requests outlive a cancelled loop; they are bounded by the upstream timeout
	workerCtx := context.WithoutCancel(ctx)
	// one extra byte tells an oversized datagram apart from one that exactly fits
	buffer := make([]byte, t.maxSize+1)

	for {
		n, clientAddr, err := conn.ReadFromUDP(buffer)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				t.logger.Debug(nil, "UDP transport read loop exiting")
				return
			}
			t.logger.Warn(map[string]any{
				"stage": "receive",
				"error": err.Error(),
			}, "Failed to read UDP packet")
			continue
		}

		if n > t.maxSize {
			t.logger.Warn(map[string]any{
				"client": clientAddr.String(),
				"stage":  "receive",
				"limit":  t.maxSize,
			}, "Dropping oversized UDP datagram")
			continue
		}

		packet := make([]byte, n)
		copy(packet, buffer[:n])

		if err := t.sem.Acquire(ctx, 1); err != nil {
			return
		}
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			defer t.sem.Release(1)
			t.handlePacket(workerCtx, conn, packet, clientAddr, handler)
		}()
	}
}

// handlePacket validates one datagram, asks the handler for a reply and sends it.
func (t *UDPTransport) handlePacket(ctx context.Context, conn *net.UDPConn, data []byte, clientAddr *net.UDPAddr, handler RequestHandler) {
	client := clientAddr.String()

	query, err := t.codec.Decode(data)
	if err != nil {
		t.logger.Warn(map[string]any{
			"client": client,
			"stage":  "decode",
			"size":   len(data),
			"error":  err.Error(),
		}, "Failed to decode DNS query")
		return
	}

	fields := map[string]any{
		"client":   client,
		"query_id": query.ID,
		"size":     len(data),
	}
	if q, ok := query.Question(); ok {
		fields["name"] = q.Name
		fields["type"] = q.Type.String()
		fields["zone"] = utils.Zone(q.Name)
	}
	t.logger.Debug(fields, "Received DNS query")

	reply, err := handler.HandleRequest(ctx, Request{Raw: data, Query: query, Client: clientAddr})
	if err != nil {
		t.logger.Error(map[string]any{
			"client":   client,
			"stage":    "forward",
			"query_id": query.ID,
			"error":    err.Error(),
		}, "Failed to handle DNS query")
		return
	}

	if _, err := conn.WriteToUDP(reply, clientAddr); err != nil {
		t.logger.Error(map[string]any{
			"client":   client,
			"stage":    "reply",
			"query_id": query.ID,
			"error":    err.Error(),
		}, "Failed to send DNS response")
		return
	}

	t.logger.Debug(map[string]any{
		"client":   client,
		"query_id": query.ID,
		"size":     len(reply),
	}, "Sent DNS response")
}
