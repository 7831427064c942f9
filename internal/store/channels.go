package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"signalwatch/internal/config"
)

// SyncChannels upserts the configured channel list. Channels removed from
// configuration are left in place so their videos stay queryable.
func (s *Store) SyncChannels(ctx context.Context, channels []config.Channel) error {
	now := formatTime(time.Now())
	for _, ch := range channels {
		_, err := s.execWithRetry(
			ctx,
			`INSERT INTO channels (id, name, url, domain, priority, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)
             ON CONFLICT(id) DO UPDATE SET
                 name = excluded.name,
                 url = excluded.url,
                 domain = excluded.domain,
                 priority = excluded.priority,
                 updated_at = excluded.updated_at`,
			ch.ID,
			ch.Name,
			nullableString(ch.URL),
			ch.Domain,
			ch.Priority,
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("upsert channel %s: %w", ch.ID, err)
		}
	}
	return nil
}

// ListChannels returns all known channels ordered by priority, highest first.
func (s *Store) ListChannels(ctx context.Context) ([]Channel, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, name, url, domain, priority, created_at, updated_at
         FROM channels ORDER BY priority DESC, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var channels []Channel
	for rows.Next() {
		var (
			ch         Channel
			url        sql.NullString
			createdRaw string
			updatedRaw string
		)
		if err := rows.Scan(&ch.ID, &ch.Name, &url, &ch.Domain, &ch.Priority, &createdRaw, &updatedRaw); err != nil {
			return nil, err
		}
		ch.URL = url.String
		if created, err := parseTimeString(createdRaw); err == nil {
			ch.CreatedAt = created
		}
		if updated, err := parseTimeString(updatedRaw); err == nil {
			ch.UpdatedAt = updated
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// GetChannel fetches one channel by identifier. Returns nil when missing.
func (s *Store) GetChannel(ctx context.Context, id string) (*Channel, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, name, url, domain, priority, created_at, updated_at FROM channels WHERE id = ?`,
		id,
	)
	var (
		ch         Channel
		url        sql.NullString
		createdRaw string
		updatedRaw string
	)
	err := row.Scan(&ch.ID, &ch.Name, &url, &ch.Domain, &ch.Priority, &createdRaw, &updatedRaw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	ch.URL = url.String
	if created, err := parseTimeString(createdRaw); err == nil {
		ch.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		ch.UpdatedAt = updated
	}
	return &ch, nil
}
