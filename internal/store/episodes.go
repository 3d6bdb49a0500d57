package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const episodeColumns = "id, podcast_id, title, description, audio_url, guid, published_at, local_audio_path, processed_audio_path, duration_seconds, status, error_message, priority, created_at, updated_at"

func scanEpisode(scanner interface{ Scan(dest ...any) error }) (*Episode, error) {
	var (
		id           int64
		podcastID    int64
		title        string
		description  sql.NullString
		audioURL     string
		guid         sql.NullString
		publishedRaw sql.NullString
		localPath    sql.NullString
		processed    sql.NullString
		duration     sql.NullFloat64
		statusStr    string
		errorMessage sql.NullString
		priority     int
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&podcastID,
		&title,
		&description,
		&audioURL,
		&guid,
		&publishedRaw,
		&localPath,
		&processed,
		&duration,
		&statusStr,
		&errorMessage,
		&priority,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	episode := &Episode{
		ID:                 id,
		PodcastID:          podcastID,
		Title:              title,
		Description:        description.String,
		AudioURL:           audioURL,
		GUID:               guid.String,
		LocalAudioPath:     localPath.String,
		ProcessedAudioPath: processed.String,
		Status:             Status(statusStr),
		ErrorMessage:       errorMessage.String,
		Priority:           priority,
	}
	if duration.Valid {
		d := duration.Float64
		episode.DurationSeconds = &d
	}
	if publishedRaw.Valid {
		if published, err := parseTimeString(publishedRaw.String); err == nil {
			episode.PublishedAt = &published
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		episode.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		episode.UpdatedAt = updated
	}
	return episode, nil
}

// NewEpisode inserts a pending episode and returns the stored row.
func (s *Store) NewEpisode(ctx context.Context, episode *Episode) (*Episode, error) {
	if episode == nil {
		return nil, errors.New("episode is nil")
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	status := episode.Status
	if status == "" {
		status = StatusPending
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO episodes (
            podcast_id, title, description, audio_url, guid, published_at,
            local_audio_path, processed_audio_path, duration_seconds,
            status, error_message, priority, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		episode.PodcastID,
		episode.Title,
		nullableString(episode.Description),
		episode.AudioURL,
		nullableString(episode.GUID),
		nullableTime(episode.PublishedAt),
		nullableString(episode.LocalAudioPath),
		nullableString(episode.ProcessedAudioPath),
		nullableFloat(episode.DurationSeconds),
		status,
		nullableString(episode.ErrorMessage),
		episode.Priority,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert episode: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetEpisode(ctx, id)
}

// GetEpisode fetches an episode by identifier. Returns nil when absent.
func (s *Store) GetEpisode(ctx context.Context, id int64) (*Episode, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, id)
	episode, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get episode: %w", err)
	}
	return episode, nil
}

// EpisodeByGUID returns the episode matching a feed guid within a podcast.
func (s *Store) EpisodeByGUID(ctx context.Context, podcastID int64, guid string) (*Episode, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE podcast_id = ? AND guid = ? LIMIT 1`,
		podcastID,
		guid,
	)
	episode, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("episode by guid: %w", err)
	}
	return episode, nil
}

// UpdateEpisode persists changes to an existing episode.
func (s *Store) UpdateEpisode(ctx context.Context, episode *Episode) error {
	if episode == nil {
		return errors.New("episode is nil")
	}
	episode.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE episodes
         SET title = ?, description = ?, audio_url = ?, guid = ?, published_at = ?,
             local_audio_path = ?, processed_audio_path = ?, duration_seconds = ?,
             status = ?, error_message = ?, priority = ?, updated_at = ?
         WHERE id = ?`,
		episode.Title,
		nullableString(episode.Description),
		episode.AudioURL,
		nullableString(episode.GUID),
		nullableTime(episode.PublishedAt),
		nullableString(episode.LocalAudioPath),
		nullableString(episode.ProcessedAudioPath),
		nullableFloat(episode.DurationSeconds),
		episode.Status,
		nullableString(episode.ErrorMessage),
		episode.Priority,
		episode.UpdatedAt.Format(time.RFC3339Nano),
		episode.ID,
	); err != nil {
		return fmt.Errorf("update episode: %w", err)
	}
	return nil
}

// EpisodesByStatus returns episodes matching any of the given statuses,
// ordered by priority then recency so promoted and fresh episodes go first.
func (s *Store) EpisodesByStatus(ctx context.Context, statuses ...Status) ([]*Episode, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}

	query := `SELECT ` + episodeColumns + ` FROM episodes WHERE status IN (` + placeholders + `)
        ORDER BY priority DESC, published_at DESC, id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("episodes by status: %w", err)
	}
	defer rows.Close()

	return collectEpisodes(rows)
}

// EpisodesByPodcast returns a podcast's episodes, newest first.
func (s *Store) EpisodesByPodcast(ctx context.Context, podcastID int64) ([]*Episode, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE podcast_id = ? ORDER BY published_at DESC, id DESC`,
		podcastID,
	)
	if err != nil {
		return nil, fmt.Errorf("episodes by podcast: %w", err)
	}
	defer rows.Close()

	return collectEpisodes(rows)
}

// EpisodesByPodcastAndStatus filters a podcast's episodes by status.
func (s *Store) EpisodesByPodcastAndStatus(ctx context.Context, podcastID int64, status Status) ([]*Episode, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE podcast_id = ? AND status = ? ORDER BY published_at DESC, id DESC`,
		podcastID,
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("episodes by podcast and status: %w", err)
	}
	defer rows.Close()

	return collectEpisodes(rows)
}

// ListEpisodes returns episodes filtered by status set, or all episodes when
// no status is provided.
func (s *Store) ListEpisodes(ctx context.Context, statuses ...Status) ([]*Episode, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + episodeColumns + ` FROM episodes`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	return collectEpisodes(rows)
}

func collectEpisodes(rows *sql.Rows) ([]*Episode, error) {
	var episodes []*Episode
	for rows.Next() {
		episode, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, episode)
	}
	return episodes, rows.Err()
}

// Stats returns a count of episodes grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM episodes GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("episode stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}
