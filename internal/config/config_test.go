package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"podpirate/internal/config"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantAudio := filepath.Join(tempHome, ".local", "share", "podpirate", "audio")
	if cfg.Paths.AudioDir != wantAudio {
		t.Fatalf("unexpected audio dir: got %q want %q", cfg.Paths.AudioDir, wantAudio)
	}
	if cfg.Paths.APIBind != "127.0.0.1:8080" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Whisper.URL != "http://127.0.0.1:8000" {
		t.Fatalf("unexpected whisper url: %q", cfg.Whisper.URL)
	}
	if cfg.Ollama.Model != "llama3.2" {
		t.Fatalf("unexpected ollama model: %q", cfg.Ollama.Model)
	}
	if cfg.Pipeline.DownloadWorkers != 4 {
		t.Fatalf("unexpected download workers: %d", cfg.Pipeline.DownloadWorkers)
	}
	if cfg.Pipeline.TranscriptFlushSegments != 10 {
		t.Fatalf("unexpected transcript flush segments: %d", cfg.Pipeline.TranscriptFlushSegments)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Paths.AudioDir, cfg.Paths.ProcessedDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "podpirate.toml")

	type payload struct {
		Ollama struct {
			URL   string `toml:"url"`
			Model string `toml:"model"`
		} `toml:"ollama"`
		Pipeline struct {
			ProcessingWorkers int `toml:"processing_workers"`
		} `toml:"pipeline"`
	}
	custom := payload{}
	custom.Ollama.URL = "http://ollama.local:11434/"
	custom.Ollama.Model = "mistral"
	custom.Pipeline.ProcessingWorkers = 1
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Ollama.URL != "http://ollama.local:11434" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Ollama.URL)
	}
	if cfg.Ollama.Model != "mistral" {
		t.Fatalf("expected model override, got %q", cfg.Ollama.Model)
	}
	if cfg.Pipeline.ProcessingWorkers != 1 {
		t.Fatalf("expected processing workers 1, got %d", cfg.Pipeline.ProcessingWorkers)
	}
	if cfg.Pipeline.DownloadWorkers != config.Default().Pipeline.DownloadWorkers {
		t.Fatalf("unexpected download workers: %d", cfg.Pipeline.DownloadWorkers)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "[ollama]") {
		t.Fatalf("sample config missing ollama section: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}

	if err := config.CreateSample(path); err == nil {
		t.Fatal("expected error when sample already exists")
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Pipeline.QueueSize = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive queue size")
	}

	cfg = config.Default()
	cfg.Ollama.Model = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty ollama model")
	}

	cfg = config.Default()
	cfg.Logging.Format = "yaml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown log format")
	}

	cfg = config.Default()
	cfg.Paths.APIBind = "not-a-bind"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for malformed api bind")
	}
}
