//go:build !sqlite_fts5

package history

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// Without FTS5, search uses LIKE on the exports table.
	return nil
}

func ftsInsert(_ *sql.Tx, _ int64, _, _ string) error { return nil }

func ftsDelete(_ *sql.Tx, _ int64) {}

// Search matches file names and content with LIKE.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT id, session_id, file_name, substr(content, 1, 200)
		FROM exports
		WHERE file_name LIKE ? OR content LIKE ?
		ORDER BY id DESC
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("history: search: %w", err)
	}
	defer rows.Close()

	out := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.SessionID, &r.FileName, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
