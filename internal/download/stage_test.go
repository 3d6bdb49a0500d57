package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"podpirate/internal/logging"
	"podpirate/internal/testsupport"
)

func TestExecuteDownloadsEnclosure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fake mp3 bytes"))
	}))
	defer server.Close()

	podcast := testsupport.NewPodcast(t, st, "DL", "https://example.com/dl.xml")
	episode := testsupport.NewEpisode(t, st, podcast.ID, "ep", server.URL+"/shows/ep1.mp3")

	s := NewStage(cfg, st, logging.NewNop())
	if err := s.Execute(context.Background(), episode); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := filepath.Join(cfg.Paths.AudioDir, "episode_1.mp3")
	if episode.LocalAudioPath != want {
		t.Fatalf("unexpected path %q want %q", episode.LocalAudioPath, want)
	}
	data, err := os.ReadFile(episode.LocalAudioPath)
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if string(data) != "fake mp3 bytes" {
		t.Fatalf("unexpected content %q", data)
	}

	entries, err := os.ReadDir(cfg.Paths.AudioDir)
	if err != nil {
		t.Fatalf("read audio dir: %v", err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".partial-") {
			t.Fatalf("partial file left behind: %s", entry.Name())
		}
	}
}

func TestExecuteFailsOnBadStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	podcast := testsupport.NewPodcast(t, st, "DL", "https://example.com/dl.xml")
	episode := testsupport.NewEpisode(t, st, podcast.ID, "ep", server.URL+"/missing.mp3")

	s := NewStage(cfg, st, logging.NewNop())
	if err := s.Execute(context.Background(), episode); err == nil {
		t.Fatal("expected error for 404 response")
	}
	if episode.LocalAudioPath != "" {
		t.Fatalf("expected no local path, got %q", episode.LocalAudioPath)
	}
}

func TestAudioExtension(t *testing.T) {
	cases := map[string]string{
		"https://cdn.example.com/show/ep.mp3":            "mp3",
		"https://cdn.example.com/show/ep.M4A?auth=x":     "m4a",
		"https://cdn.example.com/show/ep":                "mp3",
		"https://cdn.example.com/show/ep.verylongext":    "mp3",
		"https://cdn.example.com/show/ep.ogg#t=30":       "ogg",
	}
	for input, want := range cases {
		if got := audioExtension(input); got != want {
			t.Errorf("audioExtension(%q) = %q, want %q", input, got, want)
		}
	}
}
