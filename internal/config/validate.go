package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateServices(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateFFmpeg(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.AudioDir == "" {
		return errors.New("paths.audio_dir must be set")
	}
	if c.Paths.ProcessedDir == "" {
		return errors.New("paths.processed_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		return errors.New("paths.api_bind must be set")
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind must be host:port: %w", err)
	}
	return nil
}

func (c *Config) validateServices() error {
	if c.Whisper.URL == "" {
		return errors.New("whisper.url must be set")
	}
	if c.Whisper.TimeoutSeconds <= 0 {
		return errors.New("whisper.timeout_seconds must be positive")
	}
	if c.Ollama.URL == "" {
		return errors.New("ollama.url must be set")
	}
	if c.Ollama.Model == "" {
		return errors.New("ollama.model must be set")
	}
	if c.Ollama.TimeoutSeconds <= 0 {
		return errors.New("ollama.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	return ensurePositiveMap(map[string]int{
		"pipeline.download_workers":          c.Pipeline.DownloadWorkers,
		"pipeline.transcription_workers":     c.Pipeline.TranscriptionWorkers,
		"pipeline.detection_workers":         c.Pipeline.DetectionWorkers,
		"pipeline.processing_workers":        c.Pipeline.ProcessingWorkers,
		"pipeline.queue_size":                c.Pipeline.QueueSize,
		"pipeline.queue_poll_interval":       c.Pipeline.QueuePollInterval,
		"pipeline.feed_poll_interval":        c.Pipeline.FeedPollInterval,
		"pipeline.transcript_flush_segments": c.Pipeline.TranscriptFlushSegments,
	})
}

func (c *Config) validateFFmpeg() error {
	if strings.TrimSpace(c.FFmpeg.Binary) == "" {
		return errors.New("ffmpeg.binary must be set")
	}
	if c.FFmpeg.Threads <= 0 {
		return errors.New("ffmpeg.threads must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
