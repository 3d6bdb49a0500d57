package testsupport

import (
	"path/filepath"
	"testing"

	"podpirate/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.AudioDir = filepath.Join(base, "audio")
	cfg.Paths.ProcessedDir = filepath.Join(base, "processed")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithWhisperURL points the test config at a stub transcription service.
func WithWhisperURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Whisper.URL = url
	}
}

// WithOllamaURL points the test config at a stub language model service.
func WithOllamaURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Ollama.URL = url
	}
}
