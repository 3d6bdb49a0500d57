package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SaveTranscript upserts the full segment list for an episode. Streaming
// transcription calls this repeatedly with a growing list.
func (s *Store) SaveTranscript(ctx context.Context, episodeID int64, segments []TranscriptSegment) error {
	if segments == nil {
		segments = []TranscriptSegment{}
	}
	data, err := json.Marshal(segments)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO transcripts (episode_id, segments_json, updated_at)
         VALUES (?, ?, ?)
         ON CONFLICT(episode_id) DO UPDATE SET segments_json = excluded.segments_json, updated_at = excluded.updated_at`,
		episodeID,
		string(data),
		timestamp,
	); err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	return nil
}

// GetTranscript returns the stored transcript for an episode, or nil when the
// episode has not been transcribed yet.
func (s *Store) GetTranscript(ctx context.Context, episodeID int64) (*Transcript, error) {
	var (
		segmentsJSON string
		updatedRaw   sql.NullString
	)
	row := s.db.QueryRowContext(ctx, `SELECT segments_json, updated_at FROM transcripts WHERE episode_id = ?`, episodeID)
	err := row.Scan(&segmentsJSON, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}

	var segments []TranscriptSegment
	if err := json.Unmarshal([]byte(segmentsJSON), &segments); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}

	transcript := &Transcript{EpisodeID: episodeID, Segments: segments}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		transcript.UpdatedAt = updated
	}
	return transcript, nil
}

// DeleteTranscript removes an episode's transcript.
func (s *Store) DeleteTranscript(ctx context.Context, episodeID int64) error {
	if err := s.execWithoutResultRetry(ctx, `DELETE FROM transcripts WHERE episode_id = ?`, episodeID); err != nil {
		return fmt.Errorf("delete transcript: %w", err)
	}
	return nil
}
