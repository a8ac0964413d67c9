package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ilkecan/manyverse/internal/trace"
)

// Append inserts a trace entry. It implements trace.Appender.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - an entry written twice
// is stored once.
func (s *Store) Append(ctx context.Context, e trace.Entry) error {
	payload, err := trace.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("append trace entry: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trace (id, session, seq, kind, scope, bucket, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		e.ID,
		e.Session,
		e.Seq,
		string(e.Kind),
		e.Scope,
		e.Bucket,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("append trace entry: %w", err)
	}
	return nil
}

// ReadTrace returns every entry of session ordered by seq ASC, id ASC.
//
// Returns an empty slice (not nil) if the session has no entries.
func (s *Store) ReadTrace(ctx context.Context, session string) ([]trace.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session, seq, kind, scope, bucket, payload
		FROM trace
		WHERE session = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("query trace: %w", err)
	}
	defer rows.Close()

	entries := []trace.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trace: %w", err)
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (trace.Entry, error) {
	var (
		e       trace.Entry
		kind    string
		payload string
	)
	if err := rows.Scan(&e.ID, &e.Session, &e.Seq, &kind, &e.Scope, &e.Bucket, &payload); err != nil {
		return trace.Entry{}, fmt.Errorf("scan trace entry: %w", err)
	}
	e.Kind = trace.Kind(kind)

	v, err := trace.Parse([]byte(payload))
	if err != nil {
		return trace.Entry{}, fmt.Errorf("parse payload of %s: %w", e.ID, err)
	}
	e.Payload = v
	return e, nil
}

// Sessions returns every recorded session, most recently started last.
// A session's start is the rowid of its first entry.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session FROM trace
		GROUP BY session
		ORDER BY MIN(rowid) ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []string{}
	for rows.Next() {
		var session string
		if err := rows.Scan(&session); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// LastSeq returns the highest seq recorded for session, 0 when empty.
// A recorder appending to an existing session resumes its clock here.
func (s *Store) LastSeq(ctx context.Context, session string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM trace WHERE session = ?
	`, session).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}
