package history

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/promptcraft/internal/apperr"
	"github.com/starford/promptcraft/internal/checksum"
	"github.com/starford/promptcraft/internal/models"
)

// Record inserts an export and its search entry in one transaction and
// returns it with ID, checksum and size filled in.
func (db *DB) Record(r models.ExportRecord) (models.ExportRecord, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	r.Checksum = checksum.String(r.Content)
	r.Size = len(r.Content)

	tx, err := db.conn.Begin()
	if err != nil {
		return r, fmt.Errorf("history: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	res, err := tx.Exec(`
		INSERT INTO exports (session_id, file_name, target, checksum, size, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.SessionID, r.FileName, r.Target, r.Checksum, r.Size, r.Content, r.CreatedAt)
	if err != nil {
		return r, fmt.Errorf("history: insert export: %w", err)
	}
	if r.ID, err = res.LastInsertId(); err != nil {
		return r, fmt.Errorf("history: last insert id: %w", err)
	}
	if err := ftsInsert(tx, r.ID, r.FileName, r.Content); err != nil {
		return r, err
	}
	return r, tx.Commit()
}

// Get returns one export including its content.
func (db *DB) Get(id int64) (models.ExportRecord, error) {
	var r models.ExportRecord
	err := db.conn.QueryRow(`
		SELECT id, session_id, file_name, target, checksum, size, content, created_at
		FROM exports WHERE id = ?
	`, id).Scan(&r.ID, &r.SessionID, &r.FileName, &r.Target, &r.Checksum, &r.Size, &r.Content, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("history: export %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return r, fmt.Errorf("history: get: %w", err)
	}
	return r, nil
}

// List returns exports newest first, optionally for one session, with the
// total count for pagination. Content is not loaded.
func (db *DB) List(limit, offset int, sessionID string) ([]models.ExportRecord, int, error) {
	if limit <= 0 {
		limit = 50
	}
	where, args := "", []any{}
	if sessionID != "" {
		where = "WHERE session_id = ?"
		args = append(args, sessionID)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM exports `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("history: count: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT id, session_id, file_name, target, checksum, size, created_at
		FROM exports `+where+`
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	out := []models.ExportRecord{}
	for rows.Next() {
		var r models.ExportRecord
		if err := rows.Scan(&r.ID, &r.SessionID, &r.FileName, &r.Target, &r.Checksum, &r.Size, &r.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// Delete removes an export and its search entry.
func (db *DB) Delete(id int64) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("history: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	res, err := tx.Exec(`DELETE FROM exports WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("history: delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("history: export %d: %w", id, apperr.ErrNotFound)
	}
	return tx.Commit()
}
