// Package daemonctl is the REST client the CLI uses to talk to a running
// daemon.
package daemonctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Podcast mirrors the API's podcast representation.
type Podcast struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Description string    `json:"description"`
	FeedURL     string    `json:"feed_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// Episode mirrors the API's episode representation.
type Episode struct {
	ID                 int64      `json:"id"`
	PodcastID          int64      `json:"podcast_id"`
	Title              string     `json:"title"`
	Status             string     `json:"status"`
	ErrorMessage       string     `json:"error_message"`
	Priority           int        `json:"priority"`
	PublishedAt        *time.Time `json:"published_at"`
	DurationSeconds    *float64   `json:"duration_seconds"`
	ProcessedAudioPath string     `json:"processed_audio_path"`
}

// Stats mirrors the API's stats payload.
type Stats struct {
	Episodes int            `json:"episodes"`
	ByStatus map[string]int `json:"by_status"`
	AIPaused bool           `json:"ai_paused"`
}

// StageHealth mirrors one entry of the API's health payload.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail"`
}

// HealthReport mirrors the API's health payload.
type HealthReport struct {
	Ready  bool          `json:"ready"`
	Stages []StageHealth `json:"stages"`
}

// Client talks to the daemon's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a client for the daemon listening at bind (host:port).
func New(bind string) *Client {
	base := bind
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api/v1"+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("is the daemon running? %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		// Best-effort decode so callers like Health can still read a
		// degraded daemon's payload.
		if out != nil && len(payload) > 0 {
			_ = json.Unmarshal(payload, out)
		}
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(payload, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon: http %d", resp.StatusCode)
	}
	if out != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Health fetches the per-stage readiness report. A non-ready daemon still
// returns the report, so the 503 it answers with is not treated as an error.
func (c *Client) Health(ctx context.Context) (*HealthReport, error) {
	var report HealthReport
	err := c.call(ctx, http.MethodGet, "/health", nil, &report)
	if err != nil && !strings.Contains(err.Error(), "http 503") {
		return nil, err
	}
	return &report, nil
}

// Stats fetches episode counts and the pause flag.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if err := c.call(ctx, http.MethodGet, "/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Podcasts lists subscriptions.
func (c *Client) Podcasts(ctx context.Context) ([]Podcast, error) {
	var podcasts []Podcast
	if err := c.call(ctx, http.MethodGet, "/podcasts", nil, &podcasts); err != nil {
		return nil, err
	}
	return podcasts, nil
}

// AddPodcast subscribes to a feed URL.
func (c *Client) AddPodcast(ctx context.Context, feedURL string) (*Podcast, error) {
	var podcast Podcast
	if err := c.call(ctx, http.MethodPost, "/podcasts", map[string]string{"feed_url": feedURL}, &podcast); err != nil {
		return nil, err
	}
	return &podcast, nil
}

// RemovePodcast unsubscribes and deletes the podcast's episodes.
func (c *Client) RemovePodcast(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/podcasts/%d", id), nil, nil)
}

// SyncPodcast refreshes one feed now and returns how many episodes were added.
func (c *Client) SyncPodcast(ctx context.Context, id int64) (int, error) {
	var result struct {
		Added int `json:"added"`
	}
	if err := c.call(ctx, http.MethodPost, fmt.Sprintf("/podcasts/%d/sync", id), nil, &result); err != nil {
		return 0, err
	}
	return result.Added, nil
}

// RedetectAds re-runs detection for a podcast's ready episodes.
func (c *Client) RedetectAds(ctx context.Context, id int64) (int, error) {
	var result struct {
		Queued int `json:"queued"`
	}
	if err := c.call(ctx, http.MethodPost, fmt.Sprintf("/podcasts/%d/redetect-ads", id), nil, &result); err != nil {
		return 0, err
	}
	return result.Queued, nil
}

// Episodes lists episodes, optionally filtered by status.
func (c *Client) Episodes(ctx context.Context, status string) ([]Episode, error) {
	path := "/episodes"
	if status != "" {
		path += "?status=" + status
	}
	var episodes []Episode
	if err := c.call(ctx, http.MethodGet, path, nil, &episodes); err != nil {
		return nil, err
	}
	return episodes, nil
}

// PodcastEpisodes lists one podcast's episodes.
func (c *Client) PodcastEpisodes(ctx context.Context, podcastID int64) ([]Episode, error) {
	var episodes []Episode
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/podcasts/%d/episodes", podcastID), nil, &episodes); err != nil {
		return nil, err
	}
	return episodes, nil
}

// EpisodeAction invokes one of the POST episode operations: download,
// prioritize, reprocess, detect-ads.
func (c *Client) EpisodeAction(ctx context.Context, episodeID int64, action string) error {
	return c.call(ctx, http.MethodPost, fmt.Sprintf("/episodes/%d/%s", episodeID, action), nil, nil)
}

// AIPaused reports whether ad detection is paused.
func (c *Client) AIPaused(ctx context.Context) (bool, error) {
	var state struct {
		Paused bool `json:"paused"`
	}
	if err := c.call(ctx, http.MethodGet, "/config/ai-paused", nil, &state); err != nil {
		return false, err
	}
	return state.Paused, nil
}

// SetAIPaused pauses or resumes ad detection.
func (c *Client) SetAIPaused(ctx context.Context, paused bool) error {
	return c.call(ctx, http.MethodPut, "/config/ai-paused", map[string]bool{"paused": paused}, nil)
}
