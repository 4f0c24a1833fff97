package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\nmodel_path: /m/captcha.onnx\nort_lib_path: /usr/lib/libonnxruntime.so\nmax_upload_bytes: 2048\ncors_allowed_origins: [\"chrome-extension://abc\"]\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.ModelPath != "/m/captcha.onnx" || cfg.ORTLibPath != "/usr/lib/libonnxruntime.so" || cfg.MaxUploadBytes != 2048 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "chrome-extension://abc" {
		t.Fatalf("origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","model_path":"m.onnx","image_height":64,"image_width":256,"log_level":"debug"}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.ModelPath != "m.onnx" || cfg.ImageHeight != 64 || cfg.ImageWidth != 256 || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\nmodel_path=\"/x.onnx\"\nort_threads=2\nlog_format=\"console\"\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.ModelPath != "/x.onnx" || cfg.ORTThreads != 2 || cfg.LogFormat != "console" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)
	if cfg.Addr != DefaultAddr || cfg.ModelPath != DefaultModelPath || cfg.MaxUploadBytes != DefaultMaxUploadBytes {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.MaxImagePixels != 178956970 {
		t.Fatalf("pixel limit default: %d", cfg.MaxImagePixels)
	}
	if cfg.ImageHeight != 32 || cfg.ImageWidth != 128 || cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("cors default: %v", cfg.CORSAllowedOrigins)
	}

	cfg = Config{Addr: ":1", ImageWidth: 64}
	ApplyDefaults(&cfg)
	if cfg.Addr != ":1" || cfg.ImageWidth != 64 {
		t.Fatalf("defaults overwrote explicit values: %+v", cfg)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"CAPTCHAD_ADDR":             ":6000",
		"CAPTCHAD_MODEL":            "/srv/captcha.onnx",
		"CAPTCHAD_ORT_THREADS":      "4",
		"CAPTCHAD_MAX_UPLOAD_BYTES": "4096",
		"CAPTCHAD_MAX_IMAGE_PIXELS": "1000000",
		"CAPTCHAD_CORS_ORIGINS":     "https://a.example, https://b.example",
	}
	cfg := Config{Addr: ":1", LogLevel: "warn"}
	if err := ApplyEnv(&cfg, func(k string) string { return env[k] }); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.Addr != ":6000" || cfg.ModelPath != "/srv/captcha.onnx" || cfg.ORTThreads != 4 || cfg.MaxUploadBytes != 4096 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.MaxImagePixels != 1000000 {
		t.Fatalf("pixel limit: %d", cfg.MaxImagePixels)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("unset env should keep value, got %q", cfg.LogLevel)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestApplyEnvBadNumber(t *testing.T) {
	var cfg Config
	err := ApplyEnv(&cfg, func(k string) string {
		if k == "CAPTCHAD_IMAGE_HEIGHT" {
			return "tall"
		}
		return ""
	})
	if err == nil {
		t.Fatalf("expected error for malformed int")
	}
}

func TestApplyEnvBadPixelLimit(t *testing.T) {
	var cfg Config
	err := ApplyEnv(&cfg, func(k string) string {
		if k == "CAPTCHAD_MAX_IMAGE_PIXELS" {
			return "lots"
		}
		return ""
	})
	if err == nil || !strings.Contains(err.Error(), "CAPTCHAD_MAX_IMAGE_PIXELS") {
		t.Fatalf("expected error naming the variable, got %v", err)
	}
}

func TestSplitCSV(t *testing.T) {
	if got := SplitCSV(""); got != nil {
		t.Fatalf("empty: %v", got)
	}
	got := SplitCSV(" GET, ,POST ,")
	if len(got) != 2 || got[0] != "GET" || got[1] != "POST" {
		t.Fatalf("got %v", got)
	}
}
