package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadFromCreatesTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "btt", "config.json")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if len(cfg.Resources) != 4 || cfg.Resources[0] != "Båt 1" {
		t.Errorf("Resources = %v, want default boats", cfg.Resources)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("template not written: %v", err)
	}

	// The written template must parse back to the same defaults.
	again, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom template: %v", err)
	}
	if again.Storage.Backend != "file" || again.Mirror.Transport != "beacon" || again.Proxy.Addr != ":4000" {
		t.Errorf("template defaults = %+v", again)
	}
	if again.Mirror.Timeout() != 10*time.Second {
		t.Errorf("Timeout() = %v", again.Mirror.Timeout())
	}
}

func TestLoadFromPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `// comment
{
  // boats
  "resources": ["Nordstjernen"],
  "mirror": {"url": "https://script.example/exec", "transport": "post", "legacy_combined": true}
}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if len(cfg.Resources) != 1 || cfg.Resources[0] != "Nordstjernen" {
		t.Errorf("Resources = %v", cfg.Resources)
	}
	if cfg.Mirror.Transport != "post" || !cfg.Mirror.LegacyCombined {
		t.Errorf("Mirror = %+v", cfg.Mirror)
	}
	if cfg.Mirror.TimeoutSeconds != DefaultTimeout || cfg.Storage.Backend != DefaultBackend {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadFromInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", `{"resources": [}`, "parsing config file"},
		{"backend", `{"storage": {"backend": "redis"}}`, "storage.backend"},
		{"transport", `{"mirror": {"transport": "carrier-pigeon"}}`, "mirror.transport"},
		{"proxy without url", `{"mirror": {"url": "https://x", "transport": "proxy"}}`, "proxy_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			cfg, err := LoadFrom(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want containing %q", err, tt.want)
			}
			if cfg.Storage.Backend != DefaultBackend {
				t.Errorf("invalid config should fall back to defaults, got %+v", cfg)
			}
		})
	}
}

func TestStripLineComments(t *testing.T) {
	in := []byte("// top\n{\n  // inner\n  \"a\": \"http://x\"\n}\n")
	var v map[string]string
	if err := json.Unmarshal(stripLineComments(in), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v["a"] != "http://x" {
		t.Errorf("a = %q, inline // inside strings must survive", v["a"])
	}
}

func TestFilePathHonoursHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BTT_HOME", dir)
	p, err := FilePath()
	if err != nil || p != filepath.Join(dir, "config.json") {
		t.Errorf("FilePath() = %q, %v", p, err)
	}
}
