package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Tiliavir/boat-time-tracker/internal/storage"
)

// Config is the root configuration for btt, stored in ~/.btt/config.json.
// The file supports single-line // comments for documentation purposes.
type Config struct {
	Resources []string      `json:"resources"`
	Storage   StorageConfig `json:"storage"`
	Mirror    MirrorConfig  `json:"mirror"`
	Proxy     ProxyConfig   `json:"proxy"`
}

// StorageConfig selects the durable local store.
type StorageConfig struct {
	// Backend is "file" (one JSON file per key) or "sqlite".
	Backend string `json:"backend"`
	// Path overrides the default location under the btt home directory.
	Path string `json:"path"`
}

// MirrorConfig holds the spreadsheet mirror settings.
type MirrorConfig struct {
	// URL is the destination web app. Empty disables the mirror.
	URL string `json:"url"`
	// Transport is "beacon", "post" or "proxy".
	Transport string `json:"transport"`
	// ProxyURL is the forwarding endpoint used by the proxy transport.
	ProxyURL       string     `json:"proxy_url"`
	TimeoutSeconds int        `json:"timeout_seconds"`
	LegacyCombined bool       `json:"legacy_combined"`
	Token          string     `json:"token"`
	Auth           AuthConfig `json:"auth"`
}

// AuthConfig enables OAuth-authenticated delivery when ClientID is set.
type AuthConfig struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// ProxyConfig configures `btt proxy serve`.
type ProxyConfig struct {
	Addr string `json:"addr"`
}

const (
	DefaultBackend   = "file"
	DefaultTransport = "beacon"
	DefaultTimeout   = 10
	DefaultProxyAddr = ":4000"
)

// DefaultResources are the boats offered when none are configured.
var DefaultResources = []string{"Båt 1", "Båt 2", "Båt 3", "Båt 4"}

// Timeout returns the soft timeout as a duration.
func (m MirrorConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// defaultConfig returns a Config pre-filled with sensible defaults.
func defaultConfig() Config {
	var c Config
	c.applyDefaults()
	return c
}

// applyDefaults fills zero-value fields so callers always get a usable
// Config even if the user only partially fills in the file.
func (c *Config) applyDefaults() {
	if len(c.Resources) == 0 {
		c.Resources = append([]string(nil), DefaultResources...)
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = DefaultBackend
	}
	if c.Mirror.Transport == "" {
		c.Mirror.Transport = DefaultTransport
	}
	if c.Mirror.TimeoutSeconds <= 0 {
		c.Mirror.TimeoutSeconds = DefaultTimeout
	}
	if c.Proxy.Addr == "" {
		c.Proxy.Addr = DefaultProxyAddr
	}
}

// Validate rejects settings that cannot work.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("storage.backend must be \"file\" or \"sqlite\", got %q", c.Storage.Backend)
	}
	switch c.Mirror.Transport {
	case "beacon", "post":
	case "proxy":
		if c.Mirror.URL != "" && c.Mirror.ProxyURL == "" {
			return fmt.Errorf("mirror.proxy_url is required for the proxy transport")
		}
	default:
		return fmt.Errorf("mirror.transport must be beacon, post or proxy, got %q", c.Mirror.Transport)
	}
	return nil
}

// configTemplate is the annotated config written on first run.
// Lines whose trimmed content starts with // are stripped before JSON parsing,
// allowing human-readable documentation inside the file.
const configTemplate = `// btt configuration – ~/.btt/config.json
//
// All settings are optional. Without a mirror URL btt only tracks locally.
{
  // Resources offered by "btt start" when no name is given.
  "resources": ["Båt 1", "Båt 2", "Båt 3", "Båt 4"],

  // ── Local state ──────────────────────────────────────────────────────────
  "storage": {
    // "file" keeps one JSON file per key under ~/.btt/state,
    // "sqlite" keeps everything in ~/.btt/state.db.
    "backend": "file",
    "path": ""
  },

  // ── Spreadsheet mirror ───────────────────────────────────────────────────
  "mirror": {
    // Web app URL that receives notifications. Empty disables the mirror.
    "url": "",

    // • "beacon" – GET with query string, response ignored (default)
    // • "post"   – JSON POST, HTTP errors reported
    // • "proxy"  – JSON POST through "btt proxy serve"
    "transport": "beacon",
    "proxy_url": "http://localhost:4000/api/save-to-sheets",

    // Seconds before an unanswered notification is abandoned.
    "timeout_seconds": 10,

    // Send one combined row on stop instead of a start/stop pair.
    "legacy_combined": false,

    // Shared secret. Prefer "btt token set" (OS keyring) or BTT_MIRROR_TOKEN.
    "token": "",

    // Optional OAuth client for authenticated delivery ("btt auth login").
    "auth": {
      "client_id": "",
      "client_secret": ""
    }
  },

  "proxy": {
    "addr": ":4000"
  }
}
`

// FilePath returns the path to config.json in the btt home directory.
func FilePath() (string, error) {
	dir, err := storage.BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// stripLineComments removes lines whose leading non-whitespace content starts
// with //. Only full-line comments are handled; inline comments are not stripped.
func stripLineComments(data []byte) []byte {
	var out []byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimLeft(line, " \t"), []byte("//")) {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}

// Load reads the config from the btt home directory.
func Load() (Config, error) {
	path, err := FilePath()
	if err != nil {
		return defaultConfig(), err
	}
	return LoadFrom(path)
}

// LoadFrom reads path, creating it with annotated defaults on first run.
func LoadFrom(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		// First run: write the annotated template so users can discover options.
		if writeErr := writeDefault(path); writeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config file %s: %v\n", path, writeErr)
		}
		return defaultConfig(), nil
	}
	if err != nil {
		return defaultConfig(), fmt.Errorf("reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(stripLineComments(data), &cfg); err != nil {
		return defaultConfig(), fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return defaultConfig(), fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
