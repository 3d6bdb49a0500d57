// Package whisper talks to the faster-whisper transcription service.
package whisper

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultTimeout = time.Hour

// Config captures the runtime settings required to talk to the service.
type Config struct {
	BaseURL        string
	TimeoutSeconds int
}

// Client wraps the transcription service HTTP API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a whisper client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg:        Config{BaseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"), TimeoutSeconds: cfg.TimeoutSeconds},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Segment is one timed line streamed back by the service.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// StreamResult summarizes the completed transcription.
type StreamResult struct {
	Language string
	Duration float64
}

type streamLine struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Text     string  `json:"text"`
	Done     bool    `json:"done"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

// TranscribeStream uploads an audio file and invokes onSegment for every
// NDJSON line the service emits. It returns the summary from the terminating
// done line. The upload is piped so large files never buffer in memory.
func (c *Client) TranscribeStream(ctx context.Context, audioPath string, onSegment func(Segment) error) (*StreamResult, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: open audio: %w", err)
	}
	defer file.Close()

	pipeReader, pipeWriter := io.Pipe()
	writer := multipart.NewWriter(pipeWriter)
	go func() {
		part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
		if err != nil {
			pipeWriter.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pipeWriter.CloseWithError(err)
			return
		}
		pipeWriter.CloseWithError(writer.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/transcribe-stream", pipeReader)
	if err != nil {
		return nil, fmt.Errorf("whisper: new request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper: transcribe request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("whisper: transcribe: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var line streamLine
		if err := json.Unmarshal([]byte(raw), &line); err != nil {
			return nil, fmt.Errorf("whisper: decode stream line: %w", err)
		}
		if line.Done {
			return &StreamResult{Language: line.Language, Duration: line.Duration}, nil
		}
		if onSegment != nil {
			if err := onSegment(Segment{Start: line.Start, End: line.End, Text: line.Text}); err != nil {
				return nil, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("whisper: read stream: %w", err)
	}
	return nil, errors.New("whisper: stream ended without done marker")
}

// Health verifies the service is reachable and has its model loaded.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("whisper: new request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whisper: health request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("whisper: health: http %d", resp.StatusCode)
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("whisper: decode health: %w", err)
	}
	if payload.Status != "ok" {
		return fmt.Errorf("whisper: health status %q", payload.Status)
	}
	return nil
}
