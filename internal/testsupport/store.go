package testsupport

import (
	"context"
	"testing"

	"podpirate/internal/config"
	"podpirate/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewPodcast creates a podcast row for tests using the provided store.
func NewPodcast(t testing.TB, st *store.Store, title, feedURL string) *store.Podcast {
	t.Helper()

	podcast, err := st.AddPodcast(context.Background(), &store.Podcast{Title: title, FeedURL: feedURL})
	if err != nil {
		t.Fatalf("store.AddPodcast: %v", err)
	}
	return podcast
}

// NewEpisode creates a pending episode row for tests.
func NewEpisode(t testing.TB, st *store.Store, podcastID int64, title, audioURL string) *store.Episode {
	t.Helper()

	episode, err := st.NewEpisode(context.Background(), &store.Episode{
		PodcastID: podcastID,
		Title:     title,
		AudioURL:  audioURL,
	})
	if err != nil {
		t.Fatalf("store.NewEpisode: %v", err)
	}
	return episode
}
