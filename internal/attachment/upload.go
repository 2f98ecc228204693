package attachment

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/starford/promptcraft/internal/apperr"
	"github.com/starford/promptcraft/internal/models"
)

// AllowedExtensions lists the upload types accepted as text attachments.
var AllowedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".json": true,
}

// Accepts reports whether name has an allowed upload extension.
func Accepts(name string) bool {
	return AllowedExtensions[strings.ToLower(filepath.Ext(name))]
}

// FromUpload turns an uploaded file into an attachment. Content is stored as
// raw source text; Markdown is never rendered before storage.
func FromUpload(name string, data []byte, source models.AttachmentSource) (models.Attachment, error) {
	base := filepath.Base(filepath.Clean(name))
	if base == "." || base == string(filepath.Separator) || base == "" {
		return models.Attachment{}, fmt.Errorf("upload: empty file name: %w", apperr.ErrInvalidInput)
	}
	if !Accepts(base) {
		return models.Attachment{}, fmt.Errorf("upload %s: %w (allowed: .txt, .md, .json)", base, apperr.ErrUnsupportedType)
	}
	if source == "" {
		source = models.SourceUpload
	}
	return models.Attachment{
		FileName: base,
		Content:  strings.ToValidUTF8(string(data), "\uFFFD"),
		Source:   source,
	}, nil
}
