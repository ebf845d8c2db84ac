// Package config loads the environment-variable table from spec.md §6,
// the way internal/config in Howard-nolan-llmrouter loads its gateway
// config: godotenv for an optional local .env, koanf's env provider
// layered on top of coded defaults, unmarshalled into a typed struct.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the full set of environment-tunable knobs for both
// protocols plus the shared redirect/concurrency settings.
type Config struct {
	Gopher ProtocolConfig `koanf:"gopher"`
	Gemini GeminiConfig   `koanf:"gemini"`

	MaxRedirects              int `koanf:"max_redirects"`
	MaxConcurrentConnections  int `koanf:"max_concurrent_connections"`
}

// ProtocolConfig holds the settings shared by both protocols (spec.md
// §6's GOPHER_* table, mirrored by GEMINI_*).
type ProtocolConfig struct {
	MaxResponseSize   int    `koanf:"max_response_size"`
	TimeoutSeconds    int    `koanf:"timeout_seconds"`
	CacheEnabled      bool   `koanf:"cache_enabled"`
	CacheTTLSeconds   int    `koanf:"cache_ttl_seconds"`
	MaxCacheEntries   int    `koanf:"max_cache_entries"`
	AllowedHosts      string `koanf:"allowed_hosts"`
	MaxSelectorLength int    `koanf:"max_selector_length"`
	MaxSearchLength   int    `koanf:"max_search_length"`
}

// GeminiConfig extends ProtocolConfig with the Gemini-only TLS/TOFU/cert
// knobs. Fields are flattened rather than embedded so koanf's plain
// Unmarshal (no mapstructure squash tricks) can populate them directly.
type GeminiConfig struct {
	MaxResponseSize   int    `koanf:"max_response_size"`
	TimeoutSeconds    int    `koanf:"timeout_seconds"`
	CacheEnabled      bool   `koanf:"cache_enabled"`
	CacheTTLSeconds   int    `koanf:"cache_ttl_seconds"`
	MaxCacheEntries   int    `koanf:"max_cache_entries"`
	AllowedHosts      string `koanf:"allowed_hosts"`
	MaxSelectorLength int    `koanf:"max_selector_length"`
	MaxSearchLength   int    `koanf:"max_search_length"`

	TLSVersion            string `koanf:"tls_version"`
	TLSVerifyHostname     bool   `koanf:"tls_verify_hostname"`
	TOFUEnabled           bool   `koanf:"tofu_enabled"`
	ClientCertsEnabled    bool   `koanf:"client_certs_enabled"`
	TOFUStoragePath       string `koanf:"tofu_storage_path"`
	ClientCertStoragePath string `koanf:"client_cert_storage_path"`
}

// Timeout returns the configured per-fetch deadline as a time.Duration.
func (p ProtocolConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// CacheTTL returns the configured cache lifetime as a time.Duration.
func (p ProtocolConfig) CacheTTL() time.Duration {
	return time.Duration(p.CacheTTLSeconds) * time.Second
}

// Timeout returns the configured per-fetch deadline as a time.Duration.
func (g GeminiConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// CacheTTL returns the configured cache lifetime as a time.Duration.
func (g GeminiConfig) CacheTTL() time.Duration {
	return time.Duration(g.CacheTTLSeconds) * time.Second
}

func defaults(homeDir string) map[string]interface{} {
	return map[string]interface{}{
		"gopher.max_response_size":    1048576,
		"gopher.timeout_seconds":      30,
		"gopher.cache_enabled":        true,
		"gopher.cache_ttl_seconds":    300,
		"gopher.max_cache_entries":    1000,
		"gopher.allowed_hosts":        "",
		"gopher.max_selector_length":  1024,
		"gopher.max_search_length":    256,

		"gemini.max_response_size":   1048576,
		"gemini.timeout_seconds":     30,
		"gemini.cache_enabled":       true,
		"gemini.cache_ttl_seconds":   300,
		"gemini.max_cache_entries":   1000,
		"gemini.allowed_hosts":       "",
		"gemini.max_selector_length": 1024,
		"gemini.max_search_length":   256,

		"gemini.tls_version":                "TLSv1.2",
		"gemini.tls_verify_hostname":         true,
		"gemini.tofu_enabled":                true,
		"gemini.client_certs_enabled":        true,
		"gemini.tofu_storage_path":           homeDir + "/.gopher-mcp/tofu",
		"gemini.client_cert_storage_path":    homeDir + "/.gopher-mcp/certs",

		"max_redirects":                5,
		"max_concurrent_connections":   10,
	}
}

// envKeyToPath maps GOPHER_MAX_RESPONSE_SIZE -> gopher.max_response_size,
// GEMINI_TLS_VERSION -> gemini.tls_version, MAX_REDIRECTS ->
// max_redirects, and so on, per spec.md §6's naming convention.
func envKeyToPath(s string) string {
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "gopher_"):
		return "gopher." + strings.TrimPrefix(lower, "gopher_")
	case strings.HasPrefix(lower, "gemini_"):
		return "gemini." + strings.TrimPrefix(lower, "gemini_")
	default:
		return lower
	}
}

// Load reads the spec.md §6 table, layering in order: coded defaults,
// an optional YAML config file, an optional local .env file, then
// environment variables (highest precedence, per spec.md §6).
func Load(homeDir string) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(homeDir), "."), nil); err != nil {
		return nil, err
	}

	if yamlPath := configFilePath(homeDir); yamlPath != "" {
		if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyToPath), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// configFilePath returns the path to an optional YAML config overlay if
// one exists, checking ./gopher-mcp.yaml before the per-user config
// directory. It returns "" when neither is present, which Load treats
// as "no file layer".
func configFilePath(homeDir string) string {
	candidates := []string{
		"gopher-mcp.yaml",
		filepath.Join(homeDir, ".gopher-mcp", "config.yaml"),
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
