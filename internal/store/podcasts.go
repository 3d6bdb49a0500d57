package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const podcastColumns = "id, title, author, description, feed_url, ad_detection_hints, created_at, updated_at"

func scanPodcast(scanner interface{ Scan(dest ...any) error }) (*Podcast, error) {
	var (
		id          int64
		title       string
		author      sql.NullString
		description sql.NullString
		feedURL     string
		hints       sql.NullString
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
	)

	if err := scanner.Scan(&id, &title, &author, &description, &feedURL, &hints, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	podcast := &Podcast{
		ID:                   id,
		Title:                title,
		Author:               author.String,
		Description:          description.String,
		FeedURL:              feedURL,
		AdDetectionHintsJSON: hints.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		podcast.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		podcast.UpdatedAt = updated
	}
	return podcast, nil
}

// AddPodcast inserts a new subscription and returns the stored row.
func (s *Store) AddPodcast(ctx context.Context, podcast *Podcast) (*Podcast, error) {
	if podcast == nil {
		return nil, errors.New("podcast is nil")
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO podcasts (title, author, description, feed_url, ad_detection_hints, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		podcast.Title,
		nullableString(podcast.Author),
		nullableString(podcast.Description),
		podcast.FeedURL,
		nullableString(podcast.AdDetectionHintsJSON),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert podcast: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetPodcast(ctx, id)
}

// GetPodcast fetches a podcast by identifier. Returns nil when absent.
func (s *Store) GetPodcast(ctx context.Context, id int64) (*Podcast, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+podcastColumns+` FROM podcasts WHERE id = ?`, id)
	podcast, err := scanPodcast(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get podcast: %w", err)
	}
	return podcast, nil
}

// PodcastByFeedURL returns the subscription matching a feed URL.
func (s *Store) PodcastByFeedURL(ctx context.Context, feedURL string) (*Podcast, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+podcastColumns+` FROM podcasts WHERE feed_url = ? LIMIT 1`, feedURL)
	podcast, err := scanPodcast(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("podcast by feed url: %w", err)
	}
	return podcast, nil
}

// ListPodcasts returns all subscriptions ordered by title.
func (s *Store) ListPodcasts(ctx context.Context) ([]*Podcast, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+podcastColumns+` FROM podcasts ORDER BY title, id`)
	if err != nil {
		return nil, fmt.Errorf("list podcasts: %w", err)
	}
	defer rows.Close()

	var podcasts []*Podcast
	for rows.Next() {
		podcast, err := scanPodcast(rows)
		if err != nil {
			return nil, err
		}
		podcasts = append(podcasts, podcast)
	}
	return podcasts, rows.Err()
}

// UpdatePodcast persists changes to an existing subscription.
func (s *Store) UpdatePodcast(ctx context.Context, podcast *Podcast) error {
	if podcast == nil {
		return errors.New("podcast is nil")
	}
	podcast.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE podcasts
         SET title = ?, author = ?, description = ?, feed_url = ?, ad_detection_hints = ?, updated_at = ?
         WHERE id = ?`,
		podcast.Title,
		nullableString(podcast.Author),
		nullableString(podcast.Description),
		podcast.FeedURL,
		nullableString(podcast.AdDetectionHintsJSON),
		podcast.UpdatedAt.Format(time.RFC3339Nano),
		podcast.ID,
	); err != nil {
		return fmt.Errorf("update podcast: %w", err)
	}
	return nil
}

// RemovePodcast deletes a subscription and, via cascade, its episodes.
func (s *Store) RemovePodcast(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM podcasts WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete podcast: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}
