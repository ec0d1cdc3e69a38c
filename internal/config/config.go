package config

import (
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/danmuck/nslisting/internal/logging"
	"github.com/danmuck/nslisting/internal/protocol"
	"github.com/danmuck/nslisting/internal/protocol/protocols"
	"github.com/pelletier/go-toml/v2"
)

const (
	StoreMemory = "memory"
	StorePebble = "pebble"
)

// ServerConfig configures nsd. TrustedProxies are IPs or CIDRs whose
// forwarding headers are believed.
type ServerConfig struct {
	ID             string       `toml:"id"`
	Addr           string       `toml:"addr"`
	Protocol       string       `toml:"protocol"`
	Store          string       `toml:"store"`
	DataDir        string       `toml:"data_dir"`
	LogLevel       string       `toml:"log_level"`
	WriteToken     string       `toml:"write_token"`
	TLSCertFile    string       `toml:"tls_cert_file"`
	TLSKeyFile     string       `toml:"tls_key_file"`
	CorsOrigins    []string     `toml:"cors_origins"`
	TrustedProxies []string     `toml:"trusted_proxies"`
	Namespaces     []string     `toml:"namespaces"`
	Limits         LimitsConfig `toml:"limits"`
}

// LimitsConfig overrides decode limits. Zero keeps the default.
type LimitsConfig struct {
	MaxStringBytes    int64 `toml:"max_string_bytes"`
	MaxContainerItems int64 `toml:"max_container_items"`
	MaxDepth          int   `toml:"max_depth"`
}

// Protocol resolves the decode limits, falling back to protocol defaults.
func (l LimitsConfig) Protocol() protocol.Limits {
	out := protocol.DefaultLimits()
	if l.MaxStringBytes > 0 {
		out.MaxStringBytes = int(l.MaxStringBytes)
	}
	if l.MaxContainerItems > 0 {
		out.MaxContainerItems = int(l.MaxContainerItems)
	}
	if l.MaxDepth > 0 {
		out.MaxDepth = l.MaxDepth
	}
	return out
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ID:             "nsd",
		Addr:           ":9400",
		Protocol:       "binary",
		Store:          StoreMemory,
		TrustedProxies: []string{"127.0.0.1", "::1"},
	}
}

func LoadServerConfig(path string) (ServerConfig, error) {
	var cfg ServerConfig
	if err := loadToml(path, &cfg); err != nil {
		return ServerConfig{}, err
	}
	applyServerDefaults(&cfg)
	if err := ValidateServerConfig(cfg); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

// ParseServerConfig is LoadServerConfig over an in-memory document.
func ParseServerConfig(data []byte) (ServerConfig, error) {
	var cfg ServerConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("config parse failed: %w", err)
	}
	applyServerDefaults(&cfg)
	if err := ValidateServerConfig(cfg); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

func applyServerDefaults(cfg *ServerConfig) {
	def := DefaultServerConfig()
	if cfg.ID == "" {
		cfg.ID = def.ID
	}
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.Protocol == "" {
		cfg.Protocol = def.Protocol
	}
	if cfg.Store == "" {
		cfg.Store = def.Store
	}
	if cfg.TrustedProxies == nil {
		cfg.TrustedProxies = def.TrustedProxies
	}
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateServerConfig(cfg ServerConfig) error {
	if strings.TrimSpace(cfg.ID) == "" {
		return fmt.Errorf("server config missing id")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("server config missing addr")
	}
	if _, err := protocols.Lookup(cfg.Protocol); err != nil {
		return fmt.Errorf("server config protocol: %w", err)
	}
	switch cfg.Store {
	case StoreMemory:
	case StorePebble:
		if strings.TrimSpace(cfg.DataDir) == "" {
			return fmt.Errorf("server config store=pebble requires data_dir")
		}
	default:
		return fmt.Errorf("server config unknown store %q", cfg.Store)
	}
	if cfg.LogLevel != "" {
		if _, ok := logging.ParseLevel(cfg.LogLevel); !ok {
			return fmt.Errorf("server config unknown log_level %q", cfg.LogLevel)
		}
	}
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return fmt.Errorf("server config tls_cert_file and tls_key_file must be set together")
	}
	if cfg.Limits.MaxStringBytes < 0 || cfg.Limits.MaxContainerItems < 0 || cfg.Limits.MaxDepth < 0 {
		return fmt.Errorf("server config limits must not be negative")
	}
	for i, p := range cfg.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				return fmt.Errorf("trusted_proxies[%d] is not an IP or CIDR: %q", i, p)
			}
		}
	}
	for i, ns := range cfg.Namespaces {
		if !strings.HasPrefix(strings.TrimSpace(ns), "/") {
			return fmt.Errorf("namespaces[%d] must be absolute: %q", i, ns)
		}
	}
	return nil
}

// TLSEnabled reports whether nsd should serve HTTPS.
func (cfg ServerConfig) TLSEnabled() bool {
	return cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""
}
