package store

import (
	"database/sql"
	"fmt"
	"time"
)

// timeLayout is fixed width so stored timestamps sort and compare as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// Session operations

// StartSession records the start of a watch session and returns its ID.
func (s *Store) StartSession(root, exclusionRoot string, startedAt time.Time) (int64, error) {
	result, err := s.db.Exec(
		"INSERT INTO sessions (root, exclusion_root, started_at) VALUES (?, ?, ?)",
		root, exclusionRoot, formatTime(startedAt),
	)
	if err != nil {
		return 0, wrapQueryErr(err, "failed to start session for %s", root)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get session ID: %w", err)
	}
	return id, nil
}

// EndSession marks a session as finished.
func (s *Store) EndSession(id int64, endedAt time.Time) error {
	return s.updateSession(id, "UPDATE sessions SET ended_at = ? WHERE id = ?", formatTime(endedAt), id)
}

// RecordSessionError stores the initialization error that ended a session.
func (s *Store) RecordSessionError(id int64, code, message string) error {
	return s.updateSession(id,
		"UPDATE sessions SET error_code = ?, error_message = ? WHERE id = ?",
		code, message, id,
	)
}

func (s *Store) updateSession(id int64, query string, args ...any) error {
	result, err := s.db.Exec(query, args...)
	if err != nil {
		return wrapQueryErr(err, "failed to update session %d", id)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update session %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("session %d not found", id)
	}
	return nil
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(id int64) (*Session, error) {
	row := s.db.QueryRow(`
		SELECT id, root, exclusion_root, started_at, ended_at, error_code, error_message
		FROM sessions
		WHERE id = ?
	`, id)

	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %d not found", id)
	}
	if err != nil {
		return nil, wrapQueryErr(err, "failed to get session %d", id)
	}
	return sess, nil
}

// ListSessions returns sessions, most recent first. A limit of zero or
// less returns all of them.
func (s *Store) ListSessions(limit int) ([]*Session, error) {
	query := `
		SELECT id, root, exclusion_root, started_at, ended_at, error_code, error_message
		FROM sessions
		ORDER BY id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, wrapQueryErr(err, "failed to list sessions")
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var sess Session
	var startedAt string
	var endedAt, code, message sql.NullString

	if err := row.Scan(
		&sess.ID,
		&sess.Root,
		&sess.ExclusionRoot,
		&startedAt,
		&endedAt,
		&code,
		&message,
	); err != nil {
		return nil, err
	}

	var err error
	sess.StartedAt, err = parseTime(startedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at: %w", err)
	}
	if endedAt.Valid {
		t, err := parseTime(endedAt.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ended_at: %w", err)
		}
		sess.EndedAt = &t
	}
	sess.ErrorCode = code.String
	sess.ErrorMessage = message.String

	return &sess, nil
}

// Batch operations

// InsertBatch records a delivered batch and its paths in one transaction.
// Path order and duplicates are preserved.
func (s *Store) InsertBatch(sessionID int64, deliveredAt time.Time, paths []string, gitDirChanged bool) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		"INSERT INTO batches (session_id, delivered_at, path_count, git_dir_changed) VALUES (?, ?, ?, ?)",
		sessionID, formatTime(deliveredAt), len(paths), gitDirChanged,
	)
	if err != nil {
		return 0, wrapQueryErr(err, "failed to insert batch for session %d", sessionID)
	}

	batchID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get batch ID: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO batch_paths (batch_id, seq, path) VALUES (?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare path insert: %w", err)
	}
	defer stmt.Close()

	for i, path := range paths {
		if _, err := stmt.Exec(batchID, i, path); err != nil {
			return 0, fmt.Errorf("failed to insert path %s: %w", path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit batch: %w", err)
	}

	return batchID, nil
}

// BatchQuery selects batches for ListBatches. Zero values mean no filter.
type BatchQuery struct {
	SessionID int64
	Since     time.Time
	Limit     int
}

// ListBatches returns batches matching q, most recent first.
func (s *Store) ListBatches(q BatchQuery) ([]*Batch, error) {
	query := `
		SELECT id, session_id, delivered_at, path_count, git_dir_changed
		FROM batches
		WHERE 1 = 1
	`
	args := []any{}
	if q.SessionID > 0 {
		query += " AND session_id = ?"
		args = append(args, q.SessionID)
	}
	if !q.Since.IsZero() {
		query += " AND delivered_at >= ?"
		args = append(args, formatTime(q.Since))
	}
	query += " ORDER BY delivered_at DESC, id DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, wrapQueryErr(err, "failed to list batches")
	}
	defer rows.Close()

	var batches []*Batch
	for rows.Next() {
		var b Batch
		var deliveredAt string
		if err := rows.Scan(&b.ID, &b.SessionID, &deliveredAt, &b.PathCount, &b.GitDirChanged); err != nil {
			return nil, fmt.Errorf("failed to scan batch row: %w", err)
		}
		b.DeliveredAt, err = parseTime(deliveredAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse delivered_at for batch %d: %w", b.ID, err)
		}
		batches = append(batches, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batches: %w", err)
	}

	return batches, nil
}

// GetBatchPaths returns the paths of a batch in delivery order.
func (s *Store) GetBatchPaths(batchID int64) ([]string, error) {
	rows, err := s.db.Query(
		"SELECT path FROM batch_paths WHERE batch_id = ? ORDER BY seq",
		batchID,
	)
	if err != nil {
		return nil, wrapQueryErr(err, "failed to get paths for batch %d", batchID)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan path: %w", err)
		}
		paths = append(paths, path)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating paths: %w", err)
	}

	return paths, nil
}

// DeleteBatchesBefore removes batches delivered before cutoff and returns
// how many were removed. Their paths go with them.
func (s *Store) DeleteBatchesBefore(cutoff time.Time) (int64, error) {
	result, err := s.db.Exec("DELETE FROM batches WHERE delivered_at < ?", formatTime(cutoff))
	if err != nil {
		return 0, wrapQueryErr(err, "failed to delete batches")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted batches: %w", err)
	}
	return n, nil
}

// Counts

// GetBatchCount returns the total number of batches recorded.
func (s *Store) GetBatchCount() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM batches").Scan(&count)
	if err != nil {
		return 0, wrapQueryErr(err, "failed to get batch count")
	}
	return count, nil
}

// GetSessionCount returns the total number of sessions recorded.
func (s *Store) GetSessionCount() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&count)
	if err != nil {
		return 0, wrapQueryErr(err, "failed to get session count")
	}
	return count, nil
}

// GetLastBatchTime returns when the most recent batch was delivered.
// Returns zero time if no batches exist.
func (s *Store) GetLastBatchTime() (time.Time, error) {
	var timestamp sql.NullString
	err := s.db.QueryRow("SELECT MAX(delivered_at) FROM batches").Scan(&timestamp)
	if err != nil {
		return time.Time{}, wrapQueryErr(err, "failed to get last batch time")
	}
	if !timestamp.Valid || timestamp.String == "" {
		return time.Time{}, nil
	}

	t, err := parseTime(timestamp.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp: %w", err)
	}
	return t, nil
}
