package history

import "github.com/starford/promptcraft/internal/models"

// Recorder stores and queries export records. Consumers depend on this
// interface rather than *DB.
type Recorder interface {
	Record(r models.ExportRecord) (models.ExportRecord, error)
	Get(id int64) (models.ExportRecord, error)
	List(limit, offset int, sessionID string) ([]models.ExportRecord, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Delete(id int64) error
	Close() error
}

var _ Recorder = (*DB)(nil)

// SearchResult is one search hit over past exports.
type SearchResult struct {
	ID        int64  `json:"id"`
	SessionID string `json:"session_id"`
	FileName  string `json:"file_name"`
	Snippet   string `json:"snippet"`
}
