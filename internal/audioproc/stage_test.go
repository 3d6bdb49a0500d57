package audioproc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"podpirate/internal/logging"
	"podpirate/internal/services"
	"podpirate/internal/store"
	"podpirate/internal/testsupport"
)

type runnerCall struct {
	name string
	args []string
}

func TestExecuteCutsWithDetectedSegments(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	podcast := testsupport.NewPodcast(t, st, "T", "https://example.com/t.xml")
	episode := testsupport.NewEpisode(t, st, podcast.ID, "ep", "https://example.com/ep.mp3")
	audioPath := filepath.Join(cfg.Paths.AudioDir, "episode_1.mp3")
	testsupport.WriteFile(t, audioPath, 256)
	episode.LocalAudioPath = audioPath

	if err := st.ReplaceAutoSegments(ctx, episode.ID, []*store.AdSegment{{StartTime: 120, EndTime: 180}}); err != nil {
		t.Fatalf("ReplaceAutoSegments: %v", err)
	}

	s := NewStage(cfg, st, logging.NewNop())
	var calls []runnerCall
	s.transcoder.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		calls = append(calls, runnerCall{name: name, args: args})
		return nil, os.WriteFile(args[len(args)-1], []byte("clean"), 0o644)
	}

	if err := s.Execute(ctx, episode); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(calls) != 1 {
		t.Fatalf("expected one ffmpeg call, got %d", len(calls))
	}
	joined := strings.Join(calls[0].args, " ")
	if !strings.Contains(joined, "atrim=start=0.000:end=120.000") || !strings.Contains(joined, "atrim=start=180.000,") {
		t.Fatalf("unexpected filter graph in args: %s", joined)
	}
	wantOutput := filepath.Join(cfg.Paths.ProcessedDir, "episode_1_clean.mp3")
	if episode.ProcessedAudioPath != wantOutput {
		t.Fatalf("processed path %q, want %q", episode.ProcessedAudioPath, wantOutput)
	}
	if _, err := os.Stat(wantOutput); err != nil {
		t.Fatalf("output file missing: %v", err)
	}
}

func TestExecuteZeroAdsCopiesUnchanged(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	podcast := testsupport.NewPodcast(t, st, "T", "https://example.com/t.xml")
	episode := testsupport.NewEpisode(t, st, podcast.ID, "ep", "https://example.com/ep.mp3")
	audioPath := filepath.Join(cfg.Paths.AudioDir, "episode_1.mp3")
	testsupport.WriteFile(t, audioPath, 1024)
	episode.LocalAudioPath = audioPath

	s := NewStage(cfg, st, logging.NewNop())
	s.transcoder.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		t.Fatal("ffmpeg should not run without ad segments")
		return nil, nil
	}

	if err := s.Execute(ctx, episode); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	original, err := os.ReadFile(audioPath)
	if err != nil {
		t.Fatalf("read original: %v", err)
	}
	copied, err := os.ReadFile(episode.ProcessedAudioPath)
	if err != nil {
		t.Fatalf("read copy: %v", err)
	}
	if len(copied) != len(original) {
		t.Fatalf("copy size %d, want %d", len(copied), len(original))
	}
}

func TestExecuteFFmpegFailureIsExternalTool(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	podcast := testsupport.NewPodcast(t, st, "T", "https://example.com/t.xml")
	episode := testsupport.NewEpisode(t, st, podcast.ID, "ep", "https://example.com/ep.mp3")
	audioPath := filepath.Join(cfg.Paths.AudioDir, "episode_1.mp3")
	testsupport.WriteFile(t, audioPath, 256)
	episode.LocalAudioPath = audioPath

	if err := st.ReplaceAutoSegments(ctx, episode.ID, []*store.AdSegment{{StartTime: 10, EndTime: 20}}); err != nil {
		t.Fatalf("ReplaceAutoSegments: %v", err)
	}

	s := NewStage(cfg, st, logging.NewNop())
	s.transcoder.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("Invalid data found when processing input"), errors.New("exit status 1")
	}

	err := s.Execute(ctx, episode)
	if err == nil || !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestExecuteMissingAudioIsMissingPrerequisite(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	podcast := testsupport.NewPodcast(t, st, "T", "https://example.com/t.xml")
	episode := testsupport.NewEpisode(t, st, podcast.ID, "ep", "https://example.com/ep.mp3")
	episode.LocalAudioPath = filepath.Join(cfg.Paths.AudioDir, "gone.mp3")

	s := NewStage(cfg, st, logging.NewNop())
	err := s.Execute(context.Background(), episode)
	if !services.IsMissingPrerequisite(err) {
		t.Fatalf("expected missing prerequisite, got %v", err)
	}
}
