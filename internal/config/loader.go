package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultAddr           = ":5000"
	DefaultModelPath      = "captcha.onnx"
	DefaultMaxUploadBytes = 10 << 20
	DefaultMaxImagePixels = 2 * 89478485
	DefaultImageHeight    = 32
	DefaultImageWidth     = 128
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr               string   `json:"addr" yaml:"addr" toml:"addr"`
	ModelPath          string   `json:"model_path" yaml:"model_path" toml:"model_path"`
	ORTLibPath         string   `json:"ort_lib_path" yaml:"ort_lib_path" toml:"ort_lib_path"`
	ORTThreads         int      `json:"ort_threads" yaml:"ort_threads" toml:"ort_threads"`
	MaxUploadBytes     int64    `json:"max_upload_bytes" yaml:"max_upload_bytes" toml:"max_upload_bytes"`
	MaxImagePixels     int64    `json:"max_image_pixels" yaml:"max_image_pixels" toml:"max_image_pixels"`
	ImageHeight        int      `json:"image_height" yaml:"image_height" toml:"image_height"`
	ImageWidth         int      `json:"image_width" yaml:"image_width" toml:"image_width"`
	Charset            string   `json:"charset" yaml:"charset" toml:"charset"`
	LogLevel           string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat          string   `json:"log_format" yaml:"log_format" toml:"log_format"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse json: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse toml: %w", err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ApplyEnv overlays CAPTCHAD_* environment variables onto cfg. Malformed
// numeric values are reported rather than ignored.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	str := map[string]*string{
		"CAPTCHAD_ADDR":       &cfg.Addr,
		"CAPTCHAD_MODEL":      &cfg.ModelPath,
		"CAPTCHAD_ORT_LIB":    &cfg.ORTLibPath,
		"CAPTCHAD_CHARSET":    &cfg.Charset,
		"CAPTCHAD_LOG_LEVEL":  &cfg.LogLevel,
		"CAPTCHAD_LOG_FORMAT": &cfg.LogFormat,
	}
	for k, dst := range str {
		if v := getenv(k); v != "" {
			*dst = v
		}
	}
	ints := map[string]*int{
		"CAPTCHAD_ORT_THREADS":  &cfg.ORTThreads,
		"CAPTCHAD_IMAGE_HEIGHT": &cfg.ImageHeight,
		"CAPTCHAD_IMAGE_WIDTH":  &cfg.ImageWidth,
	}
	for k, dst := range ints {
		if v := getenv(k); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			*dst = n
		}
	}
	int64s := map[string]*int64{
		"CAPTCHAD_MAX_UPLOAD_BYTES": &cfg.MaxUploadBytes,
		"CAPTCHAD_MAX_IMAGE_PIXELS": &cfg.MaxImagePixels,
	}
	for k, dst := range int64s {
		if v := getenv(k); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			*dst = n
		}
	}
	if v := getenv("CAPTCHAD_CORS_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = SplitCSV(v)
	}
	return nil
}

// ApplyDefaults fills unspecified fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.ModelPath == "" {
		cfg.ModelPath = DefaultModelPath
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.MaxImagePixels <= 0 {
		cfg.MaxImagePixels = DefaultMaxImagePixels
	}
	if cfg.ImageHeight <= 0 {
		cfg.ImageHeight = DefaultImageHeight
	}
	if cfg.ImageWidth <= 0 {
		cfg.ImageWidth = DefaultImageWidth
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = DefaultLogFormat
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
}

// SplitCSV splits a comma-separated list, trimming blanks.
func SplitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
