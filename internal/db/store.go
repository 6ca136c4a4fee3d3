package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Store persists resource snapshots and observed version history.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveSnapshot upserts the last good payload of a resource as JSON.
func (s *Store) SaveSnapshot(ctx context.Context, key string, v any, fetchedAt time.Time) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}
	_, err = ExecWithRetry(ctx, s.db, `
		INSERT INTO resource_snapshots (resource_key, payload, fetched_at)
		VALUES (?, ?, ?)
		ON CONFLICT(resource_key) DO UPDATE SET
			payload = excluded.payload,
			fetched_at = excluded.fetched_at
	`, key, string(payload), fetchedAt.UTC())
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", key, err)
	}
	return nil
}

// LoadSnapshot decodes the stored payload of key into dst. found is false
// when nothing was stored yet.
func (s *Store) LoadSnapshot(ctx context.Context, key string, dst any) (fetchedAt time.Time, found bool, err error) {
	var payload string
	err = s.db.QueryRowContext(ctx,
		`SELECT payload, fetched_at FROM resource_snapshots WHERE resource_key = ?`, key,
	).Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(payload), dst); err != nil {
		return time.Time{}, false, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return fetchedAt, true, nil
}

// VersionEntry is one observed (version, freshness) combination.
type VersionEntry struct {
	ID        int64     `json:"id"`
	Version   string    `json:"version"`
	BuildKind string    `json:"build_kind"`
	Freshness string    `json:"freshness"`
	CommitTag string    `json:"commit_tag,omitempty"`
	SeenAt    time.Time `json:"seen_at"`
}

// RecordVersion appends e unless the most recent entry already has the same
// version, freshness and commit tag. It reports whether a row was written.
func (s *Store) RecordVersion(ctx context.Context, e VersionEntry) (bool, error) {
	last, ok, err := s.lastVersion(ctx)
	if err != nil {
		return false, err
	}
	if ok && last.Version == e.Version && last.Freshness == e.Freshness && last.CommitTag == e.CommitTag {
		return false, nil
	}
	if e.SeenAt.IsZero() {
		e.SeenAt = time.Now()
	}
	_, err = ExecWithRetry(ctx, s.db, `
		INSERT INTO version_history (version, build_kind, freshness, commit_tag, seen_at)
		VALUES (?, ?, ?, ?, ?)
	`, e.Version, e.BuildKind, e.Freshness, e.CommitTag, e.SeenAt.UTC())
	if err != nil {
		return false, fmt.Errorf("record version: %w", err)
	}
	return true, nil
}

// VersionHistory returns up to limit entries, newest first.
func (s *Store) VersionHistory(ctx context.Context, limit int) ([]VersionEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, version, build_kind, freshness, commit_tag, seen_at
		FROM version_history
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query version history: %w", err)
	}
	defer rows.Close()

	out := []VersionEntry{}
	for rows.Next() {
		var e VersionEntry
		if err := rows.Scan(&e.ID, &e.Version, &e.BuildKind, &e.Freshness, &e.CommitTag, &e.SeenAt); err != nil {
			return nil, fmt.Errorf("scan version history: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) lastVersion(ctx context.Context) (VersionEntry, bool, error) {
	var e VersionEntry
	err := s.db.QueryRowContext(ctx, `
		SELECT id, version, build_kind, freshness, commit_tag, seen_at
		FROM version_history
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&e.ID, &e.Version, &e.BuildKind, &e.Freshness, &e.CommitTag, &e.SeenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return VersionEntry{}, false, nil
	}
	if err != nil {
		return VersionEntry{}, false, fmt.Errorf("last version: %w", err)
	}
	return e, true, nil
}
