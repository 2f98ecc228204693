//go:build sqlite_fts5

package history

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS exports_fts USING fts5(
			file_name,
			content,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsInsert(tx *sql.Tx, id int64, fileName, content string) error {
	_, err := tx.Exec(`INSERT INTO exports_fts (rowid, file_name, content) VALUES (?, ?, ?)`,
		id, fileName, content)
	if err != nil {
		return fmt.Errorf("history: insert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, id int64) {
	_, _ = tx.Exec(`DELETE FROM exports_fts WHERE rowid = ?`, id)
}

// Search runs an FTS5 query and returns hits ranked by relevance.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT e.id, e.session_id, e.file_name,
		       snippet(exports_fts, 1, '<b>', '</b>', '...', 32)
		FROM exports_fts
		JOIN exports e ON e.id = exports_fts.rowid
		WHERE exports_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
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
