package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DEFAULT_APP_CONFIG.DNSServer, cfg.DNSServer)
	assert.Equal(t, 53, cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.ListenAddr)
	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 64, cfg.Workers)
	assert.Equal(t, 512, cfg.MaxUDPSize)
	assert.Empty(t, cfg.BlocklistFiles)
	assert.Equal(t, "/var/lib/rr-doh/blocklist.db", cfg.BlocklistDB)
	assert.Equal(t, 1000, cfg.BlocklistCacheSize)
	assert.Equal(t, 0.01, cfg.BlocklistFPRate)
	assert.Equal(t, "0.0.0.0:53", cfg.ListenAddress())
}

func TestLoad_EnvOverrides(t *testing.T) {
	a := writeFile(t, "a.txt", "ads.example.com\n")
	b := writeFile(t, "hosts", "0.0.0.0 t.example.com\n")

	t.Setenv("DOH_DNS_SERVER", "https://dns.google/dns-query")
	t.Setenv("DOH_PORT", "5353")
	t.Setenv("DOH_LISTEN_ADDR", "127.0.0.1")
	t.Setenv("DOH_ENV", "dev")
	t.Setenv("DOH_LOG_LEVEL", "debug")
	t.Setenv("DOH_UPSTREAM_TIMEOUT", "2s")
	t.Setenv("DOH_WORKERS", "8")
	t.Setenv("DOH_MAX_UDP_SIZE", "1232")
	t.Setenv("DOH_BLOCKLIST_FILES", a+","+b)
	t.Setenv("DOH_BLOCKLIST_CACHE_SIZE", "0")
	t.Setenv("DOH_BLOCKLIST_FP_RATE", "0.001")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://dns.google/dns-query", cfg.DNSServer)
	assert.Equal(t, "127.0.0.1:5353", cfg.ListenAddress())
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 1232, cfg.MaxUDPSize)
	assert.Equal(t, []string{a, b}, cfg.BlocklistFiles)
	assert.Equal(t, 0, cfg.BlocklistCacheSize)
	assert.Equal(t, 0.001, cfg.BlocklistFPRate)
}

func TestLoad_TOMLFile(t *testing.T) {
	p := writeFile(t, "gw.toml", `
dns_server = "https://doh.example/dns-query"
port = 8053
upstream_timeout = "750ms"
log_level = "warn"
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "https://doh.example/dns-query", cfg.DNSServer)
	assert.Equal(t, 8053, cfg.Port)
	assert.Equal(t, 750*time.Millisecond, cfg.UpstreamTimeout)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 64, cfg.Workers)
}

func TestLoad_YAMLFileWithEnvPrecedence(t *testing.T) {
	p := writeFile(t, "gw.yml", "dns_server: https://doh.example/q\nport: 8053\nworkers: 4\n")
	t.Setenv("DOH_PORT", "9053")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "https://doh.example/q", cfg.DNSServer)
	assert.Equal(t, 9053, cfg.Port)
	assert.Equal(t, 4, cfg.Workers)
}

func TestLoad_JSONFile(t *testing.T) {
	p := writeFile(t, "gw.json", `{"dns_server": "https://doh.example/q", "max_udp_size": 1232}`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "https://doh.example/q", cfg.DNSServer)
	assert.Equal(t, 1232, cfg.MaxUDPSize)
}

func TestLoad_DefaultFileInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte("port = 1053\n"), 0o644))
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 1053, cfg.Port)
}

func TestLoad_FileErrors(t *testing.T) {
	_, err := Load(writeFile(t, "gw.ini", "port=1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config file extension")

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error loading config file")

	_, err = Load(writeFile(t, "bad.toml", "port = = 1"))
	require.Error(t, err)
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"http upstream", "DOH_DNS_SERVER", "http://dns.example/dns-query"},
		{"relative upstream", "DOH_DNS_SERVER", "/dns-query"},
		{"empty upstream", "DOH_DNS_SERVER", ""},
		{"port zero", "DOH_PORT", "0"},
		{"port too big", "DOH_PORT", "65536"},
		{"port not a number", "DOH_PORT", "not_a_number"},
		{"listen not ip", "DOH_LISTEN_ADDR", "localhost"},
		{"bad env", "DOH_ENV", "staging"},
		{"bad level", "DOH_LOG_LEVEL", "trace"},
		{"timeout too small", "DOH_UPSTREAM_TIMEOUT", "50ms"},
		{"no workers", "DOH_WORKERS", "0"},
		{"udp size too small", "DOH_MAX_UDP_SIZE", "256"},
		{"missing blocklist file", "DOH_BLOCKLIST_FILES", "/nonexistent/list.txt"},
		{"negative cache", "DOH_BLOCKLIST_CACHE_SIZE", "-1"},
		{"fp rate one", "DOH_BLOCKLIST_FP_RATE", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestValidDoHURL(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"https://cloudflare-dns.com/dns-query", true},
		{"https://1.1.1.1/dns-query", true},
		{"https://[2606:4700::1111]/dns-query", true},
		{"https://dns.example:8443/q", true},
		{"http://dns.example/q", false},
		{"https:///dns-query", false},
		{"dns.example/q", false},
		{"", false},
		{"::not a url", false},
	}

	validate := validator.New()
	require.NoError(t, validate.RegisterValidation("doh_url", validDoHURL))
	type S struct {
		URL string `validate:"doh_url"`
	}
	for _, tc := range cases {
		err := validate.Struct(S{URL: tc.input})
		assert.Equal(t, tc.want, err == nil, "validDoHURL(%q)", tc.input)
	}
}

func TestLoad_LoaderErrors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("defaults", func(t *testing.T) {
		orig := defaultLoader
		defer func() { defaultLoader = orig }()
		defaultLoader = func(*koanf.Koanf) error { return boom }
		_, err := Load("")
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "error loading default config")
	})

	t.Run("env", func(t *testing.T) {
		orig := envLoader
		defer func() { envLoader = orig }()
		envLoader = func(*koanf.Koanf) error { return boom }
		_, err := Load("")
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "error loading env")
	})

	t.Run("validation registration", func(t *testing.T) {
		orig := registerValidation
		defer func() { registerValidation = orig }()
		registerValidation = func(*validator.Validate) error { return boom }
		_, err := Load("")
		assert.ErrorIs(t, err, boom)
	})
}
