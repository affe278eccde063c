package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigFile is read when no path is given and it exists.
const DefaultConfigFile = "config.toml"

// AppConfig holds the gateway configuration. It is built once by Load and
// passed by value afterwards.
type AppConfig struct {
	// DNSServer is the upstream DoH endpoint, an absolute https URL.
	DNSServer string `koanf:"dns_server" validate:"required,doh_url"`
	// Port is the UDP port forward mode listens on.
	Port int `koanf:"port" validate:"required,gte=1,lte=65535"`
	// ListenAddr is the local IP forward mode binds to.
	ListenAddr string `koanf:"listen_addr" validate:"required,ip"`
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`
	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`
	// UpstreamTimeout bounds each DoH exchange.
	UpstreamTimeout time.Duration `koanf:"upstream_timeout" validate:"gte=100ms"`
	Workers         int           `koanf:"workers" validate:"gte=1,lte=4096"`
	MaxUDPSize      int           `koanf:"max_udp_size" validate:"gte=512,lte=65535"`

	// Blocklist settings. The filter is off when BlocklistFiles is empty.
	BlocklistFiles     []string `koanf:"blocklist_files" validate:"dive,file"`
	BlocklistDB        string   `koanf:"blocklist_db" validate:"required_with=BlocklistFiles"`
	BlocklistCacheSize int      `koanf:"blocklist_cache_size" validate:"gte=0"`
	BlocklistFPRate    float64  `koanf:"blocklist_fp_rate" validate:"gt=0,lt=1"`
}

// DEFAULT_APP_CONFIG defines the defaults every other source overrides.
var DEFAULT_APP_CONFIG = AppConfig{
	DNSServer:          "https://cloudflare-dns.com/dns-query",
	Port:               53,
	ListenAddr:         "0.0.0.0",
	Env:                "prod",
	LogLevel:           "info",
	UpstreamTimeout:    5 * time.Second,
	Workers:            64,
	MaxUDPSize:         512,
	BlocklistFiles:     []string{},
	BlocklistDB:        "/var/lib/rr-doh/blocklist.db",
	BlocklistCacheSize: 1000,
	BlocklistFPRate:    0.01,
}

// ListenAddress joins ListenAddr and Port for net.ResolveUDPAddr.
func (c AppConfig) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.ListenAddr, c.Port)
}

// validDoHURL accepts absolute https URLs with a host.
func validDoHURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	return u.Scheme == "https" && u.Host != "" && u.Hostname() != ""
}

// envLoader loads DOH_ prefixed variables. Keys are lower-cased with the
// prefix removed; values holding spaces or commas become lists.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "DOH_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "DOH_"))
			value = strings.TrimSpace(value)
			if value == "" {
				return key, value
			}
			if strings.Contains(value, " ") || strings.Contains(value, ",") {
				return key, strings.FieldsFunc(value, func(r rune) bool {
					return r == ' ' || r == ','
				})
			}
			return key, value
		},
	}), nil)
}

var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// fileLoader loads path with the parser matching its extension.
var fileLoader = func(k *koanf.Koanf, path string) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		return k.Load(file.Provider(path), toml.Parser())
	case ".yaml", ".yml":
		return k.Load(file.Provider(path), yaml.Parser())
	case ".json":
		return k.Load(file.Provider(path), json.Parser())
	default:
		return fmt.Errorf("unsupported config file extension %q", ext)
	}
}

var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("doh_url", validDoHURL)
}

// resolvePath returns the file to load: path when given, otherwise
// DefaultConfigFile if it exists, otherwise "".
func resolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return DefaultConfigFile, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	return "", nil
}

// Load builds an AppConfig from defaults, an optional file and the
// environment, in that order of precedence, then validates it.
func Load(path string) (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	path, err := resolvePath(path)
	if err != nil {
		return nil, fmt.Errorf("error locating config file: %w", err)
	}
	if path != "" {
		if err := fileLoader(k, path); err != nil {
			return nil, fmt.Errorf("error loading config file %s: %w", path, err)
		}
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidation(validate); err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return &cfg, nil
}
