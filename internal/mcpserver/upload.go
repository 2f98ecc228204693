package mcpserver

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

const maxAttachmentSize = 10 << 20 // 10 MB

var (
	mimeToExt = map[string]string{
		"text/plain":       ".txt",
		"text/markdown":    ".md",
		"text/x-markdown":  ".md",
		"application/json": ".json",
	}

	safeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

func (s *Server) addAttachment(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filename := optString(req, "file_name")
	content := optString(req, "content")
	dataURI := optString(req, "data_uri")

	var data []byte
	switch {
	case dataURI != "":
		decoded, ext, err := decodeDataURI(dataURI)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		data = decoded
		if filename == "" {
			filename = uuid.New().String() + ext
		}
	case filename != "":
		data = []byte(content)
	default:
		return mcp.NewToolResultError("file_name with content, or data_uri, is required"), nil
	}

	if len(data) > maxAttachmentSize {
		return mcp.NewToolResultError(fmt.Sprintf("file too large: %d bytes (max %d)", len(data), maxAttachmentSize)), nil
	}
	if err := validateText(data); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	a, err := s.ws.Upload(sessionID(req), sanitizeFilename(filename), data)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(toItem(a)), nil
}

// decodeDataURI parses a data:[<mediatype>][;base64],<data> URI carrying a
// text file and returns its bytes and the extension for its media type.
func decodeDataURI(uri string) ([]byte, string, error) {
	rest := strings.TrimPrefix(uri, "data:")
	commaIdx := strings.Index(rest, ",")
	if commaIdx < 0 {
		return nil, "", fmt.Errorf("invalid data URI: missing comma separator")
	}

	meta := rest[:commaIdx]
	encoded := rest[commaIdx+1:]

	if !strings.Contains(meta, ";base64") {
		return nil, "", fmt.Errorf("only base64 data URIs are supported")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("invalid base64 data: %w", err)
		}
	}

	mime := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]
	ext := mimeToExt[mime]
	if ext == "" {
		return nil, "", fmt.Errorf("unsupported MIME type in data URI: %s (allowed: text/plain, text/markdown, application/json)", mime)
	}
	return data, ext, nil
}

// sanitizeFilename strips path separators and unsafe characters.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = safeFilenameRe.ReplaceAllString(name, "_")
	if name == "" || name == "." {
		name = uuid.New().String()
	}
	return name
}

// validateText rejects content that sniffs as binary.
func validateText(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	detected := http.DetectContentType(data)
	if strings.HasPrefix(detected, "text/") || strings.HasPrefix(detected, "application/json") {
		return nil
	}
	return fmt.Errorf("content does not appear to be text (detected: %s)", detected)
}
