package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetConfigValue returns a system config value, or empty when the key is unset.
func (s *Store) GetConfigValue(ctx context.Context, key string) (string, error) {
	var value string
	row := s.db.QueryRowContext(ctx, `SELECT value FROM system_config WHERE key = ?`, key)
	err := row.Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get config value: %w", err)
	}
	return value, nil
}

// SetConfigValue upserts a system config value.
func (s *Store) SetConfigValue(ctx context.Context, key, value string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO system_config (key, value, updated_at)
         VALUES (?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key,
		value,
		timestamp,
	); err != nil {
		return fmt.Errorf("set config value: %w", err)
	}
	return nil
}
