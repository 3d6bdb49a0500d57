package feed_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"podpirate/internal/feed"
	"podpirate/internal/logging"
	"podpirate/internal/testsupport"
)

type stubFetcher struct {
	info *feed.Info
	err  error
}

func (f *stubFetcher) Fetch(ctx context.Context, feedURL string) (*feed.Info, error) {
	return f.info, f.err
}

type recordingEnqueuer struct {
	mu  sync.Mutex
	ids []int64
}

func (e *recordingEnqueuer) EnqueueDownload(ctx context.Context, episodeID int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ids = append(e.ids, episodeID)
	return nil
}

func TestSubscribeAndSyncDedupesByGUID(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	published := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	fetcher := &stubFetcher{info: &feed.Info{
		Title:  "Tech Weekly",
		Author: "Jane Host",
		Episodes: []feed.Episode{
			{Title: "One", AudioURL: "https://cdn.example.com/1.mp3", GUID: "g1", PublishedAt: &published},
			{Title: "Two", AudioURL: "https://cdn.example.com/2.mp3", GUID: "g2"},
		},
	}}
	enqueuer := &recordingEnqueuer{}
	poller := feed.NewPoller(st, fetcher, enqueuer, time.Minute, logging.NewNop())

	podcast, err := poller.Subscribe(ctx, "https://example.com/feed.xml")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if podcast.Title != "Tech Weekly" || podcast.Author != "Jane Host" {
		t.Fatalf("unexpected podcast %+v", podcast)
	}

	episodes, err := st.EpisodesByPodcast(ctx, podcast.ID)
	if err != nil {
		t.Fatalf("EpisodesByPodcast: %v", err)
	}
	if len(episodes) != 2 {
		t.Fatalf("expected 2 episodes after initial sync, got %d", len(episodes))
	}
	if len(enqueuer.ids) != 2 {
		t.Fatalf("expected 2 download submissions, got %d", len(enqueuer.ids))
	}

	// A second sync with one new entry only adds the new one.
	fetcher.info.Episodes = append(fetcher.info.Episodes, feed.Episode{
		Title: "Three", AudioURL: "https://cdn.example.com/3.mp3", GUID: "g3",
	})
	added, err := poller.SyncPodcast(ctx, podcast)
	if err != nil {
		t.Fatalf("SyncPodcast: %v", err)
	}
	if added != 1 {
		t.Fatalf("expected 1 added, got %d", added)
	}

	if _, err := poller.Subscribe(ctx, "https://example.com/feed.xml"); err == nil {
		t.Fatal("expected duplicate subscribe to fail")
	}
}
