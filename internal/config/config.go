package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	AudioDir     string `toml:"audio_dir"`
	ProcessedDir string `toml:"processed_dir"`
	LogDir       string `toml:"log_dir"`
	APIBind      string `toml:"api_bind"`
}

// Whisper contains configuration for the speech-to-text service.
type Whisper struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Ollama contains configuration for the ad-detection language model service.
type Ollama struct {
	URL            string `toml:"url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Pipeline contains worker pool sizes and scheduling intervals.
type Pipeline struct {
	DownloadWorkers        int `toml:"download_workers"`
	TranscriptionWorkers   int `toml:"transcription_workers"`
	DetectionWorkers       int `toml:"detection_workers"`
	ProcessingWorkers      int `toml:"processing_workers"`
	QueueSize              int `toml:"queue_size"`
	QueuePollInterval      int `toml:"queue_poll_interval"`
	FeedPollInterval       int `toml:"feed_poll_interval"`
	TranscriptFlushSegments int `toml:"transcript_flush_segments"`
}

// FFmpeg contains configuration for the audio transcoder.
type FFmpeg struct {
	Binary  string `toml:"binary"`
	Threads int    `toml:"threads"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for podpirate.
//
// Configuration sections by subsystem:
//   - Paths: storage directories and API bind address
//   - Whisper: speech-to-text service endpoint
//   - Ollama: ad-detection language model endpoint and model name
//   - Pipeline: per-stage worker counts and polling intervals
//   - FFmpeg: transcoder binary and thread cap
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Whisper  Whisper  `toml:"whisper"`
	Ollama   Ollama   `toml:"ollama"`
	Pipeline Pipeline `toml:"pipeline"`
	FFmpeg   FFmpeg   `toml:"ffmpeg"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/podpirate/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. The boolean reports whether a file was found.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	pathFields := []*string{
		&c.Paths.AudioDir,
		&c.Paths.ProcessedDir,
		&c.Paths.LogDir,
	}
	for _, field := range pathFields {
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}

	c.Whisper.URL = strings.TrimRight(strings.TrimSpace(c.Whisper.URL), "/")
	c.Ollama.URL = strings.TrimRight(strings.TrimSpace(c.Ollama.URL), "/")
	c.Ollama.Model = strings.TrimSpace(c.Ollama.Model)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}

// EnsureDirectories creates the storage directories if they do not exist.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.AudioDir, c.Paths.ProcessedDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// CreateSample writes the embedded sample configuration to the provided path.
func CreateSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", path, err)
	}
	return abs, nil
}
