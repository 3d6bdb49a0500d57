package store_test

import (
	"context"
	"testing"
	"time"

	"podpirate/internal/store"
	"podpirate/internal/testsupport"
)

func TestEpisodeLifecyclePersistence(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	podcast := testsupport.NewPodcast(t, st, "Tech Talk", "https://example.com/feed.xml")
	published := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	episode, err := st.NewEpisode(ctx, &store.Episode{
		PodcastID:   podcast.ID,
		Title:       "Episode 1",
		Description: "First one",
		AudioURL:    "https://example.com/ep1.mp3",
		GUID:        "guid-1",
		PublishedAt: &published,
	})
	if err != nil {
		t.Fatalf("NewEpisode: %v", err)
	}
	if episode.Status != store.StatusPending {
		t.Fatalf("expected pending status, got %s", episode.Status)
	}
	if episode.Priority != 0 {
		t.Fatalf("expected default priority 0, got %d", episode.Priority)
	}

	episode.Status = store.StatusDownloaded
	episode.LocalAudioPath = "/tmp/ep1.mp3"
	duration := 1800.5
	episode.DurationSeconds = &duration
	if err := st.UpdateEpisode(ctx, episode); err != nil {
		t.Fatalf("UpdateEpisode: %v", err)
	}

	fetched, err := st.GetEpisode(ctx, episode.ID)
	if err != nil {
		t.Fatalf("GetEpisode: %v", err)
	}
	if fetched.Status != store.StatusDownloaded {
		t.Fatalf("expected downloaded, got %s", fetched.Status)
	}
	if fetched.LocalAudioPath != "/tmp/ep1.mp3" {
		t.Fatalf("unexpected audio path %q", fetched.LocalAudioPath)
	}
	if fetched.DurationSeconds == nil || *fetched.DurationSeconds != 1800.5 {
		t.Fatalf("unexpected duration %v", fetched.DurationSeconds)
	}
	if fetched.PublishedAt == nil || !fetched.PublishedAt.Equal(published) {
		t.Fatalf("unexpected published time %v", fetched.PublishedAt)
	}

	byGUID, err := st.EpisodeByGUID(ctx, podcast.ID, "guid-1")
	if err != nil {
		t.Fatalf("EpisodeByGUID: %v", err)
	}
	if byGUID == nil || byGUID.ID != episode.ID {
		t.Fatalf("expected guid lookup to find episode %d", episode.ID)
	}

	missing, err := st.GetEpisode(ctx, 9999)
	if err != nil {
		t.Fatalf("GetEpisode missing: %v", err)
	}
	if missing != nil {
		t.Fatal("expected nil for missing episode")
	}
}

func TestEpisodesByStatusOrdering(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	podcast := testsupport.NewPodcast(t, st, "Ordering", "https://example.com/order.xml")

	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	first, err := st.NewEpisode(ctx, &store.Episode{PodcastID: podcast.ID, Title: "old", AudioURL: "u1", PublishedAt: &older})
	if err != nil {
		t.Fatalf("NewEpisode: %v", err)
	}
	second, err := st.NewEpisode(ctx, &store.Episode{PodcastID: podcast.ID, Title: "new", AudioURL: "u2", PublishedAt: &newer})
	if err != nil {
		t.Fatalf("NewEpisode: %v", err)
	}
	boosted, err := st.NewEpisode(ctx, &store.Episode{PodcastID: podcast.ID, Title: "boosted", AudioURL: "u3", PublishedAt: &older, Priority: store.PriorityBoost})
	if err != nil {
		t.Fatalf("NewEpisode: %v", err)
	}

	pending, err := st.EpisodesByStatus(ctx, store.StatusPending)
	if err != nil {
		t.Fatalf("EpisodesByStatus: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected 3 pending episodes, got %d", len(pending))
	}
	if pending[0].ID != boosted.ID {
		t.Fatalf("expected boosted episode first, got %d", pending[0].ID)
	}
	if pending[1].ID != second.ID {
		t.Fatalf("expected newest episode second, got %d", pending[1].ID)
	}
	if pending[2].ID != first.ID {
		t.Fatalf("expected oldest episode last, got %d", pending[2].ID)
	}
}

func TestTranscriptUpsert(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	podcast := testsupport.NewPodcast(t, st, "Transcripts", "https://example.com/t.xml")
	episode := testsupport.NewEpisode(t, st, podcast.ID, "ep", "https://example.com/ep.mp3")

	if err := st.SaveTranscript(ctx, episode.ID, []store.TranscriptSegment{{Start: 0, End: 2.5, Text: "hello"}}); err != nil {
		t.Fatalf("SaveTranscript: %v", err)
	}
	if err := st.SaveTranscript(ctx, episode.ID, []store.TranscriptSegment{
		{Start: 0, End: 2.5, Text: "hello"},
		{Start: 2.5, End: 5, Text: "world"},
	}); err != nil {
		t.Fatalf("SaveTranscript update: %v", err)
	}

	transcript, err := st.GetTranscript(ctx, episode.ID)
	if err != nil {
		t.Fatalf("GetTranscript: %v", err)
	}
	if transcript == nil || len(transcript.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %+v", transcript)
	}
	if transcript.Segments[1].Text != "world" {
		t.Fatalf("unexpected second segment %+v", transcript.Segments[1])
	}

	none, err := st.GetTranscript(ctx, episode.ID+1)
	if err != nil {
		t.Fatalf("GetTranscript missing: %v", err)
	}
	if none != nil {
		t.Fatal("expected nil transcript for missing episode")
	}
}

func TestReplaceAutoKeepsManualSegments(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	podcast := testsupport.NewPodcast(t, st, "Ads", "https://example.com/a.xml")
	episode := testsupport.NewEpisode(t, st, podcast.ID, "ep", "https://example.com/ep.mp3")

	if err := st.ReplaceManualSegments(ctx, episode.ID, []*store.AdSegment{
		{StartTime: 100, EndTime: 160, Confirmed: true},
	}); err != nil {
		t.Fatalf("ReplaceManualSegments: %v", err)
	}
	if err := st.ReplaceAutoSegments(ctx, episode.ID, []*store.AdSegment{
		{StartTime: 10, EndTime: 40},
		{StartTime: 300, EndTime: 330},
	}); err != nil {
		t.Fatalf("ReplaceAutoSegments: %v", err)
	}

	// A second detection pass replaces only the auto set.
	if err := st.ReplaceAutoSegments(ctx, episode.ID, []*store.AdSegment{
		{StartTime: 12, EndTime: 45},
	}); err != nil {
		t.Fatalf("ReplaceAutoSegments again: %v", err)
	}

	segments, err := st.AdSegmentsByEpisode(ctx, episode.ID)
	if err != nil {
		t.Fatalf("AdSegmentsByEpisode: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[0].Source != store.SourceAuto || segments[0].StartTime != 12 {
		t.Fatalf("unexpected first segment %+v", segments[0])
	}
	if segments[1].Source != store.SourceManual || !segments[1].Confirmed {
		t.Fatalf("unexpected second segment %+v", segments[1])
	}

	manual, err := st.ManualSegmentsByPodcast(ctx, podcast.ID)
	if err != nil {
		t.Fatalf("ManualSegmentsByPodcast: %v", err)
	}
	if len(manual) != 1 || manual[0].EpisodeID != episode.ID {
		t.Fatalf("unexpected manual segments %+v", manual)
	}
}

func TestReplaceSegmentsRejectsInvertedRange(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	podcast := testsupport.NewPodcast(t, st, "Bad", "https://example.com/b.xml")
	episode := testsupport.NewEpisode(t, st, podcast.ID, "ep", "https://example.com/ep.mp3")

	err := st.ReplaceManualSegments(ctx, episode.ID, []*store.AdSegment{{StartTime: 50, EndTime: 50}})
	if err == nil {
		t.Fatal("expected error for zero-length segment")
	}
}

func TestPodcastHintsRoundTrip(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	podcast := testsupport.NewPodcast(t, st, "Hints", "https://example.com/h.xml")
	if err := podcast.SetHints(&store.AdDetectionHints{
		Brands:   []string{"Squarespace"},
		Patterns: []string{"promo code"},
	}); err != nil {
		t.Fatalf("SetHints: %v", err)
	}
	if err := st.UpdatePodcast(ctx, podcast); err != nil {
		t.Fatalf("UpdatePodcast: %v", err)
	}

	fetched, err := st.GetPodcast(ctx, podcast.ID)
	if err != nil {
		t.Fatalf("GetPodcast: %v", err)
	}
	hints, err := fetched.Hints()
	if err != nil {
		t.Fatalf("Hints: %v", err)
	}
	if hints == nil || len(hints.Brands) != 1 || hints.Brands[0] != "Squarespace" {
		t.Fatalf("unexpected hints %+v", hints)
	}

	byURL, err := st.PodcastByFeedURL(ctx, "https://example.com/h.xml")
	if err != nil {
		t.Fatalf("PodcastByFeedURL: %v", err)
	}
	if byURL == nil || byURL.ID != podcast.ID {
		t.Fatal("expected feed url lookup to find podcast")
	}
}

func TestSystemConfigAndStats(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	value, err := st.GetConfigValue(ctx, "ai_paused")
	if err != nil {
		t.Fatalf("GetConfigValue: %v", err)
	}
	if value != "" {
		t.Fatalf("expected empty value for unset key, got %q", value)
	}

	if err := st.SetConfigValue(ctx, "ai_paused", "true"); err != nil {
		t.Fatalf("SetConfigValue: %v", err)
	}
	if err := st.SetConfigValue(ctx, "ai_paused", "false"); err != nil {
		t.Fatalf("SetConfigValue update: %v", err)
	}
	value, err = st.GetConfigValue(ctx, "ai_paused")
	if err != nil {
		t.Fatalf("GetConfigValue: %v", err)
	}
	if value != "false" {
		t.Fatalf("expected false, got %q", value)
	}

	podcast := testsupport.NewPodcast(t, st, "Stats", "https://example.com/s.xml")
	episode := testsupport.NewEpisode(t, st, podcast.ID, "ep", "https://example.com/ep.mp3")
	episode.Status = store.StatusReady
	if err := st.UpdateEpisode(ctx, episode); err != nil {
		t.Fatalf("UpdateEpisode: %v", err)
	}
	testsupport.NewEpisode(t, st, podcast.ID, "ep2", "https://example.com/ep2.mp3")

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[store.StatusReady] != 1 || stats[store.StatusPending] != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}
