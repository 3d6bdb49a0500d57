package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"podpirate/internal/logging"
	"podpirate/internal/store"
)

// Fetcher parses a feed URL. Satisfied by *Client; tests substitute stubs.
type Fetcher interface {
	Fetch(ctx context.Context, feedURL string) (*Info, error)
}

// Enqueuer submits a newly discovered episode to the download stage.
type Enqueuer interface {
	EnqueueDownload(ctx context.Context, episodeID int64) error
}

// Poller refreshes all subscriptions on an interval and enqueues new
// episodes.
type Poller struct {
	store    *store.Store
	fetcher  Fetcher
	enqueuer Enqueuer
	interval time.Duration
	logger   *slog.Logger
}

// NewPoller wires the polling loop.
func NewPoller(st *store.Store, fetcher Fetcher, enqueuer Enqueuer, interval time.Duration, logger *slog.Logger) *Poller {
	return &Poller{
		store:    st,
		fetcher:  fetcher,
		enqueuer: enqueuer,
		interval: interval,
		logger:   logging.NewComponentLogger(logger, "feed-poller"),
	}
}

// Run blocks until the context is cancelled, refreshing every interval. One
// refresh happens immediately on start.
func (p *Poller) Run(ctx context.Context) {
	p.SyncAll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.SyncAll(ctx)
		}
	}
}

// SyncAll refreshes every subscription. Individual feed failures are logged
// and do not stop the sweep.
func (p *Poller) SyncAll(ctx context.Context) {
	podcasts, err := p.store.ListPodcasts(ctx)
	if err != nil {
		p.logger.Error("list podcasts", logging.Error(err))
		return
	}
	for _, podcast := range podcasts {
		if ctx.Err() != nil {
			return
		}
		added, err := p.SyncPodcast(ctx, podcast)
		if err != nil {
			p.logger.Warn("feed refresh failed",
				logging.Int64(logging.FieldPodcastID, podcast.ID),
				logging.Error(err))
			continue
		}
		if added > 0 {
			p.logger.Info("new episodes discovered",
				logging.Int64(logging.FieldPodcastID, podcast.ID),
				logging.Int("added", added))
		}
	}
}

// SyncPodcast fetches one feed, refreshes podcast metadata, and enqueues
// entries whose guid is not stored yet. It returns the number of episodes
// added.
func (p *Poller) SyncPodcast(ctx context.Context, podcast *store.Podcast) (int, error) {
	info, err := p.fetcher.Fetch(ctx, podcast.FeedURL)
	if err != nil {
		return 0, err
	}

	if refreshPodcastMetadata(podcast, info) {
		if err := p.store.UpdatePodcast(ctx, podcast); err != nil {
			return 0, fmt.Errorf("update podcast metadata: %w", err)
		}
	}

	added := 0
	for _, entry := range info.Episodes {
		existing, err := p.store.EpisodeByGUID(ctx, podcast.ID, entry.GUID)
		if err != nil {
			return added, err
		}
		if existing != nil {
			continue
		}

		episode, err := p.store.NewEpisode(ctx, &store.Episode{
			PodcastID:       podcast.ID,
			Title:           entry.Title,
			Description:     entry.Description,
			AudioURL:        entry.AudioURL,
			GUID:            entry.GUID,
			PublishedAt:     entry.PublishedAt,
			DurationSeconds: entry.DurationSeconds,
		})
		if err != nil {
			return added, fmt.Errorf("insert episode %q: %w", entry.Title, err)
		}
		added++

		if p.enqueuer != nil {
			if err := p.enqueuer.EnqueueDownload(ctx, episode.ID); err != nil {
				p.logger.Warn("enqueue download failed",
					logging.Int64(logging.FieldEpisodeID, episode.ID),
					logging.Error(err))
			}
		}
	}
	return added, nil
}

// Subscribe adds a podcast by feed URL and performs the initial episode sync.
func (p *Poller) Subscribe(ctx context.Context, feedURL string) (*store.Podcast, error) {
	existing, err := p.store.PodcastByFeedURL(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("already subscribed to %s", feedURL)
	}

	info, err := p.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	title := info.Title
	if title == "" {
		title = feedURL
	}
	podcast, err := p.store.AddPodcast(ctx, &store.Podcast{
		Title:       title,
		Author:      info.Author,
		Description: info.Description,
		FeedURL:     feedURL,
	})
	if err != nil {
		return nil, fmt.Errorf("add podcast: %w", err)
	}

	if _, err := p.SyncPodcast(ctx, podcast); err != nil {
		p.logger.Warn("initial sync failed",
			logging.Int64(logging.FieldPodcastID, podcast.ID),
			logging.Error(err))
	}
	return podcast, nil
}

func refreshPodcastMetadata(podcast *store.Podcast, info *Info) bool {
	changed := false
	if info.Title != "" && info.Title != podcast.Title {
		podcast.Title = info.Title
		changed = true
	}
	if info.Author != "" && info.Author != podcast.Author {
		podcast.Author = info.Author
		changed = true
	}
	if info.Description != "" && info.Description != podcast.Description {
		podcast.Description = info.Description
		changed = true
	}
	return changed
}
