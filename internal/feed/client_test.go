package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd">
  <channel>
    <title>  Tech   Weekly </title>
    <description>A show about tech</description>
    <itunes:author>Jane Host</itunes:author>
    <item>
      <title>Episode One</title>
      <description>The first episode</description>
      <guid>ep-1</guid>
      <pubDate>Mon, 02 Mar 2026 10:00:00 GMT</pubDate>
      <itunes:duration>1:02:30</itunes:duration>
      <enclosure url="https://cdn.example.com/ep1.mp3" type="audio/mpeg" length="1000"/>
    </item>
    <item>
      <title>Video Extra</title>
      <enclosure url="https://cdn.example.com/extra.mp4" type="video/mp4" length="1000"/>
      <enclosure url="https://cdn.example.com/extra.mp3" type="audio/mpeg" length="1000"/>
    </item>
    <item>
      <title>No Audio</title>
    </item>
  </channel>
</rss>`

func TestFetchParsesFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	client := NewClient()
	info, err := client.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if info.Title != "Tech Weekly" {
		t.Fatalf("unexpected title %q", info.Title)
	}
	if info.Author != "Jane Host" {
		t.Fatalf("unexpected author %q", info.Author)
	}
	if len(info.Episodes) != 2 {
		t.Fatalf("expected 2 episodes with audio, got %d", len(info.Episodes))
	}

	first := info.Episodes[0]
	if first.GUID != "ep-1" {
		t.Fatalf("unexpected guid %q", first.GUID)
	}
	if first.AudioURL != "https://cdn.example.com/ep1.mp3" {
		t.Fatalf("unexpected audio url %q", first.AudioURL)
	}
	if first.DurationSeconds == nil || *first.DurationSeconds != 3750 {
		t.Fatalf("unexpected duration %v", first.DurationSeconds)
	}
	if first.PublishedAt == nil {
		t.Fatal("expected published time")
	}

	second := info.Episodes[1]
	if second.AudioURL != "https://cdn.example.com/extra.mp3" {
		t.Fatalf("expected audio enclosure to win over video, got %q", second.AudioURL)
	}
	if second.GUID != "https://cdn.example.com/extra.mp3" {
		t.Fatalf("expected enclosure fallback guid, got %q", second.GUID)
	}
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"90", 90, true},
		{"2:05", 125, true},
		{"1:02:30", 3750, true},
		{"", 0, false},
		{"abc", 0, false},
		{"1:2:3:4", 0, false},
		{"-5", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseDuration(tc.raw)
		if ok != tc.ok || got != tc.want {
			t.Errorf("parseDuration(%q) = %v, %v; want %v, %v", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}
