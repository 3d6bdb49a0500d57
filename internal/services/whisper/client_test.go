package whisper_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"podpirate/internal/services/whisper"
	"podpirate/internal/testsupport"
)

func TestTranscribeStreamCollectsSegments(t *testing.T) {
	audioPath := filepath.Join(t.TempDir(), "episode.mp3")
	testsupport.WriteFile(t, audioPath, 2048)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcribe-stream" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, _, err := r.FormFile("file"); err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Write([]byte(`{"start":0,"end":2.5,"text":"welcome back"}` + "\n"))
		w.Write([]byte(`{"start":2.5,"end":6,"text":"to the show"}` + "\n"))
		w.Write([]byte(`{"done":true,"language":"en","duration":1234.5}` + "\n"))
	}))
	defer server.Close()

	client := whisper.NewClient(whisper.Config{BaseURL: server.URL})
	var segments []whisper.Segment
	result, err := client.TranscribeStream(context.Background(), audioPath, func(segment whisper.Segment) error {
		segments = append(segments, segment)
		return nil
	})
	if err != nil {
		t.Fatalf("TranscribeStream: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[1].Text != "to the show" {
		t.Fatalf("unexpected segment %+v", segments[1])
	}
	if result.Language != "en" || result.Duration != 1234.5 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestTranscribeStreamWithoutDoneMarker(t *testing.T) {
	audioPath := filepath.Join(t.TempDir(), "episode.mp3")
	testsupport.WriteFile(t, audioPath, 128)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"start":0,"end":1,"text":"hi"}` + "\n"))
	}))
	defer server.Close()

	client := whisper.NewClient(whisper.Config{BaseURL: server.URL})
	if _, err := client.TranscribeStream(context.Background(), audioPath, nil); err == nil {
		t.Fatal("expected error when stream ends without done marker")
	}
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"status":"ok","model":"base"}`))
	}))
	defer server.Close()

	client := whisper.NewClient(whisper.Config{BaseURL: server.URL})
	if err := client.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}

	down := whisper.NewClient(whisper.Config{BaseURL: "http://127.0.0.1:1"})
	if err := down.Health(context.Background()); err == nil {
		t.Fatal("expected health failure for unreachable service")
	}
}
