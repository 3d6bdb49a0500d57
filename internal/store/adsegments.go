package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const adSegmentColumns = "id, episode_id, start_time, end_time, source, confirmed, created_at"

func scanAdSegment(scanner interface{ Scan(dest ...any) error }) (*AdSegment, error) {
	var (
		id         int64
		episodeID  int64
		start      float64
		end        float64
		source     string
		confirmed  sql.NullInt64
		createdRaw sql.NullString
	)
	if err := scanner.Scan(&id, &episodeID, &start, &end, &source, &confirmed, &createdRaw); err != nil {
		return nil, err
	}

	segment := &AdSegment{
		ID:        id,
		EpisodeID: episodeID,
		StartTime: start,
		EndTime:   end,
		Source:    AdSegmentSource(source),
	}
	if confirmed.Valid {
		segment.Confirmed = confirmed.Int64 != 0
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		segment.CreatedAt = created
	}
	return segment, nil
}

// AdSegmentsByEpisode returns an episode's ad segments ordered by start time.
func (s *Store) AdSegmentsByEpisode(ctx context.Context, episodeID int64) ([]*AdSegment, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+adSegmentColumns+` FROM ad_segments WHERE episode_id = ? ORDER BY start_time, id`,
		episodeID,
	)
	if err != nil {
		return nil, fmt.Errorf("ad segments by episode: %w", err)
	}
	defer rows.Close()

	return collectAdSegments(rows)
}

// ReplaceAutoSegments swaps the detected segment set for an episode. Manual
// segments are untouched.
func (s *Store) ReplaceAutoSegments(ctx context.Context, episodeID int64, segments []*AdSegment) error {
	return s.replaceSegments(ctx, episodeID, SourceAuto, segments)
}

// ReplaceManualSegments swaps the operator-provided segment set for an
// episode. Detected segments are untouched.
func (s *Store) ReplaceManualSegments(ctx context.Context, episodeID int64, segments []*AdSegment) error {
	return s.replaceSegments(ctx, episodeID, SourceManual, segments)
}

func (s *Store) replaceSegments(ctx context.Context, episodeID int64, source AdSegmentSource, segments []*AdSegment) error {
	for _, segment := range segments {
		if segment == nil {
			return errors.New("segment is nil")
		}
		if segment.EndTime <= segment.StartTime {
			return fmt.Errorf("segment end %.2f must be after start %.2f", segment.EndTime, segment.StartTime)
		}
	}

	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin segments tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM ad_segments WHERE episode_id = ? AND source = ?`, episodeID, source); err != nil {
			return fmt.Errorf("clear %s segments: %w", source, err)
		}

		timestamp := time.Now().UTC().Format(time.RFC3339Nano)
		for _, segment := range segments {
			if _, err := tx.ExecContext(
				ctx,
				`INSERT INTO ad_segments (episode_id, start_time, end_time, source, confirmed, created_at)
                 VALUES (?, ?, ?, ?, ?, ?)`,
				episodeID,
				segment.StartTime,
				segment.EndTime,
				source,
				boolToInt(segment.Confirmed),
				timestamp,
			); err != nil {
				return fmt.Errorf("insert %s segment: %w", source, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit segments: %w", err)
		}
		return nil
	})
}

// ManualSegmentsByPodcast returns operator-corrected segments across all of a
// podcast's episodes, used as few-shot material for detection prompts.
func (s *Store) ManualSegmentsByPodcast(ctx context.Context, podcastID int64) ([]*AdSegment, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT s.id, s.episode_id, s.start_time, s.end_time, s.source, s.confirmed, s.created_at
         FROM ad_segments s
         JOIN episodes e ON e.id = s.episode_id
         WHERE e.podcast_id = ? AND s.source = ?
         ORDER BY s.episode_id, s.start_time`,
		podcastID,
		SourceManual,
	)
	if err != nil {
		return nil, fmt.Errorf("manual segments by podcast: %w", err)
	}
	defer rows.Close()

	return collectAdSegments(rows)
}

func collectAdSegments(rows *sql.Rows) ([]*AdSegment, error) {
	var segments []*AdSegment
	for rows.Next() {
		segment, err := scanAdSegment(rows)
		if err != nil {
			return nil, err
		}
		segments = append(segments, segment)
	}
	return segments, rows.Err()
}
