// Package store persists podcasts, episodes, transcripts, and ad segments in
// SQLite. It owns the episode lifecycle statuses and the schema; all writes go
// through busy-retry helpers so CLI and daemon can share the database.
package store
