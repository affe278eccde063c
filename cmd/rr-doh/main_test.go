package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/haukened/rr-doh/internal/dns/common/log"
	"github.com/haukened/rr-doh/internal/dns/config"
)

// stubDoH answers every A question with addr and counts requests. While
// unavailable is set it replies 503 instead.
type stubDoH struct {
	*httptest.Server
	addr        string
	calls       atomic.Int64
	unavailable atomic.Bool
}

func newStubDoH(t *testing.T, addr string) *stubDoH {
	t.Helper()
	s := &stubDoH{addr: addr}
	s.Server = httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		body, err := io.ReadAll(r.Body)
		if s.unavailable.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		if err != nil || r.Header.Get("Content-Type") != "application/dns-message" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		var q dns.Msg
		if err := q.Unpack(body); err != nil {
			http.Error(w, "bad message", http.StatusBadRequest)
			return
		}
		m := new(dns.Msg)
		m.SetReply(&q)
		if len(q.Question) == 1 && q.Question[0].Qtype == dns.TypeA {
			m.Answer = append(m.Answer, &dns.A{
				Hdr: dns.RR_Header{Name: q.Question[0].Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 300},
				A:   net.ParseIP(s.addr).To4(),
			})
		}
		out, err := m.Pack()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/dns-message")
		_, _ = w.Write(out)
	}))
	t.Cleanup(s.Close)
	return s
}

func testConfig(upstream string) config.AppConfig {
	cfg := config.DEFAULT_APP_CONFIG
	cfg.DNSServer = upstream
	cfg.ListenAddr = "127.0.0.1"
	cfg.Port = 0
	cfg.UpstreamTimeout = 2 * time.Second
	cfg.Workers = 4
	return cfg
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    invocation
		wantErr bool
	}{
		{"resolve", []string{"resolve", "example.com"}, invocation{mode: "resolve", domain: "example.com"}, false},
		{"forward", []string{"forward"}, invocation{mode: "forward"}, false},
		{"config flag", []string{"-config", "gw.toml", "forward"}, invocation{configPath: "gw.toml", mode: "forward"}, false},
		{"no mode", nil, invocation{}, true},
		{"resolve without domain", []string{"resolve"}, invocation{}, true},
		{"resolve two domains", []string{"resolve", "a.example", "b.example"}, invocation{}, true},
		{"forward with extra", []string{"forward", "x"}, invocation{}, true},
		{"unknown mode", []string{"serve"}, invocation{}, true},
		{"unknown flag", []string{"-nope", "forward"}, invocation{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			got, err := parseArgs(tt.args, &stderr)
			if tt.wantErr {
				require.ErrorIs(t, err, errUsage)
				assert.Contains(t, stderr.String(), "Usage:")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRun_ExitCodes(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitUsage, run([]string{"bogus"}, &stdout, &stderr))
	assert.Empty(t, stdout.String())

	t.Setenv("DOH_DNS_SERVER", "http://insecure.example/dns-query")
	stderr.Reset()
	assert.Equal(t, exitError, run([]string{"resolve", "example.com"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Configuration error")
}

func TestRun_ResolveUpstreamFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()
	cfg := testConfig(ts.URL)
	log.SetLogger(log.NewNoopLogger())

	var stdout bytes.Buffer
	err := runResolve(context.Background(), cfg, ts.Client(), "example.com", &stdout)
	require.Error(t, err)
	assert.Empty(t, stdout.String())
}

func TestRunResolve_PrintsAnswer(t *testing.T) {
	stub := newStubDoH(t, "93.184.216.34")
	log.SetLogger(log.NewNoopLogger())

	var stdout bytes.Buffer
	err := runResolve(context.Background(), testConfig(stub.URL), stub.Client(), "example.com", &stdout)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(stdout.String(), "\n"), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "93.184.216.34")
	assert.Equal(t, "example.com.\t300\tIN\tA\t93.184.216.34", lines[0])
}

func TestRunResolve_InvalidName(t *testing.T) {
	stub := newStubDoH(t, "192.0.2.1")
	log.SetLogger(log.NewNoopLogger())

	err := runResolve(context.Background(), testConfig(stub.URL), stub.Client(), strings.Repeat("a", 64)+".example", io.Discard)
	require.Error(t, err)
	assert.Equal(t, int64(0), stub.calls.Load())
}

func TestBuildBlocklist(t *testing.T) {
	cfg := testConfig("https://doh.example/dns-query")

	filter, closer, err := buildBlocklist(cfg, log.NewNoopLogger())
	require.NoError(t, err)
	assert.False(t, filter.Decide("ads.example.com").Blocked)
	require.NoError(t, closer.Close())

	dir := t.TempDir()
	list := filepath.Join(dir, "list.txt")
	require.NoError(t, os.WriteFile(list, []byte("*.ads.example.com\n"), 0o644))
	cfg.BlocklistFiles = []string{list}
	cfg.BlocklistDB = filepath.Join(dir, "bl.db")

	core, logs := observer.New(zap.InfoLevel)
	filter, closer, err = buildBlocklist(cfg, log.FromZap(zap.New(core)))
	require.NoError(t, err)
	defer closer.Close()
	d := filter.Decide("img.ads.example.com")
	assert.True(t, d.Blocked)
	assert.Equal(t, "ads.example.com", d.MatchedRule)
	assert.Equal(t, list, d.Source)

	ready := logs.FilterMessage("Query filter ready").All()
	require.Len(t, ready, 1)
	fields := ready[0].ContextMap()
	assert.Equal(t, int64(1), fields["rules"])
	assert.Equal(t, uint64(1), fields["suffix_keys"])
	assert.Equal(t, uint64(0), fields["exact_keys"])
	assert.Equal(t, uint64(1), fields["version"])
	assert.Equal(t, cfg.BlocklistDB, fields["db"])

	cfg.BlocklistFiles = []string{filepath.Join(dir, "missing.txt")}
	_, _, err = buildBlocklist(cfg, log.NewNoopLogger())
	assert.Error(t, err)
}

func TestApplication_BindFailure(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	cfg := testConfig("https://doh.example/dns-query")
	cfg.Port = pc.LocalAddr().(*net.UDPAddr).Port

	app, err := buildApplication(cfg, http.DefaultClient, log.NewNoopLogger())
	require.NoError(t, err)
	err = app.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start UDP transport")
}
