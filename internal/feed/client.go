// Package feed fetches and parses podcast RSS feeds and keeps subscriptions
// in sync with the episode store.
package feed

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/text/unicode/norm"
)

// Info describes a parsed feed's podcast-level metadata.
type Info struct {
	Title       string
	Author      string
	Description string
	Episodes    []Episode
}

// Episode is one feed entry with its audio enclosure resolved.
type Episode struct {
	Title           string
	Description     string
	AudioURL        string
	GUID            string
	PublishedAt     *time.Time
	DurationSeconds *float64
}

// Client fetches and parses RSS feeds.
type Client struct {
	parser *gofeed.Parser
}

// NewClient creates a feed client.
func NewClient() *Client {
	return &Client{parser: gofeed.NewParser()}
}

// Fetch downloads and parses a feed. Entries without an audio enclosure are
// skipped.
func (c *Client) Fetch(ctx context.Context, feedURL string) (*Info, error) {
	parsed, err := c.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}
	if parsed == nil {
		return nil, fmt.Errorf("feed %s is empty", feedURL)
	}

	info := &Info{
		Title:       normalizeTitle(parsed.Title),
		Description: strings.TrimSpace(parsed.Description),
	}
	if parsed.ITunesExt != nil {
		info.Author = strings.TrimSpace(parsed.ITunesExt.Author)
	}
	if info.Author == "" && len(parsed.Authors) > 0 && parsed.Authors[0] != nil {
		info.Author = strings.TrimSpace(parsed.Authors[0].Name)
	}

	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		audioURL := enclosureAudioURL(item)
		if audioURL == "" {
			continue
		}
		episode := Episode{
			Title:       normalizeTitle(item.Title),
			Description: strings.TrimSpace(item.Description),
			AudioURL:    audioURL,
			GUID:        episodeGUID(item, audioURL),
			PublishedAt: item.PublishedParsed,
		}
		if item.ITunesExt != nil {
			if duration, ok := parseDuration(item.ITunesExt.Duration); ok {
				episode.DurationSeconds = &duration
			}
		}
		info.Episodes = append(info.Episodes, episode)
	}

	return info, nil
}

// enclosureAudioURL picks the item's audio enclosure. Audio MIME types win;
// the first enclosure is a fallback because many feeds omit the type.
func enclosureAudioURL(item *gofeed.Item) string {
	var fallback string
	for _, enclosure := range item.Enclosures {
		if enclosure == nil || enclosure.URL == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(enclosure.Type), "audio/") {
			return enclosure.URL
		}
		if fallback == "" {
			fallback = enclosure.URL
		}
	}
	return fallback
}

// episodeGUID prefers the feed-declared guid and falls back to the enclosure
// URL, which is stable for any sane feed.
func episodeGUID(item *gofeed.Item, audioURL string) string {
	if guid := strings.TrimSpace(item.GUID); guid != "" {
		return guid
	}
	return audioURL
}

// normalizeTitle collapses whitespace and applies NFC so titles compare
// consistently regardless of the feed generator's encoding choices.
func normalizeTitle(title string) string {
	collapsed := strings.Join(strings.Fields(title), " ")
	return norm.NFC.String(collapsed)
}

// parseDuration understands the itunes:duration formats in the wild: plain
// seconds, mm:ss, and hh:mm:ss.
func parseDuration(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	parts := strings.Split(raw, ":")
	if len(parts) == 1 {
		seconds, err := strconv.ParseFloat(parts[0], 64)
		if err != nil || seconds < 0 {
			return 0, false
		}
		return seconds, true
	}
	if len(parts) > 3 {
		return 0, false
	}
	var total float64
	for _, part := range parts {
		value, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || value < 0 {
			return 0, false
		}
		total = total*60 + value
	}
	return total, true
}
