package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Store is the durable key-value store the tracker persists through.
// Values are JSON documents; a missing key is simply absent from Get's result.
type Store interface {
	// Get returns the stored values for keys. With no keys, every entry is returned.
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)

	// Set writes all values atomically. Each value is JSON-encoded.
	Set(ctx context.Context, values map[string]any) error

	// Remove deletes keys. Removing an absent key is not an error.
	Remove(ctx context.Context, keys ...string) error

	// Clear deletes every entry.
	Clear(ctx context.Context) error
}

// KV is the SQLite-backed Store.
type KV struct {
	db  *sql.DB
	now func() time.Time
}

// NewKV wraps an initialized database.
func NewKV(db *sql.DB) *KV {
	return &KV{db: db, now: time.Now}
}

// Get implements Store.
func (s *KV) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	query := "SELECT key, value FROM kv"
	args := make([]any, 0, len(keys))
	if len(keys) > 0 {
		query += " WHERE key IN (" + placeholders(len(keys)) + ")"
		for _, k := range keys {
			args = append(args, k)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("kv get: %w", err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage, len(keys))
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("kv get: %w", err)
		}
		out[key] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("kv get: %w", err)
	}
	return out, nil
}

// Set implements Store.
func (s *KV) Set(ctx context.Context, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}

	encoded := make(map[string]string, len(values))
	for k, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("kv set %s: %w", k, err)
		}
		encoded[k] = string(b)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("kv set: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("kv set: %w", err)
	}
	defer stmt.Close()

	updatedAt := s.now().UnixMilli()
	for k, v := range encoded {
		if _, err := stmt.ExecContext(ctx, k, v, updatedAt); err != nil {
			return fmt.Errorf("kv set %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("kv set: %w", err)
	}
	return nil
}

// Remove implements Store.
func (s *KV) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key IN ("+placeholders(len(keys))+")", args...)
	if err != nil {
		return fmt.Errorf("kv remove: %w", err)
	}
	return nil
}

// Clear implements Store.
func (s *KV) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv"); err != nil {
		return fmt.Errorf("kv clear: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
