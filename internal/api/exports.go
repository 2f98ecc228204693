package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/promptcraft/internal/apperr"
	"github.com/starford/promptcraft/internal/export"
)

// Export handles GET /api/sessions/{sid}/export. With target=file the
// prompt is written to the export directory; otherwise it is returned as a
// download named after the name query parameter.
//
//	@Summary		Export the serialized prompt
//	@Tags			export
//	@Produce		plain,json
//	@Param			sid		path		string	true	"Session ID"
//	@Param			name	query		string	false	"Base file name"
//	@Param			target	query		string	false	"Export target"	Enums(download, file)
//	@Success		200		{string}	string	"Prompt text"
//	@Success		201		{object}	ExportRecordDTO
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/export [get]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	q := r.URL.Query()
	switch q.Get("target") {
	case "", export.TargetDownload:
		if _, err := h.ws.ExportDownload(w, sid, q.Get("name")); err != nil {
			writeError(w, "export download", err)
		}
	case export.TargetFile:
		rec, err := h.ws.ExportFile(sid, q.Get("name"))
		if err != nil {
			writeError(w, "export file", err)
			return
		}
		writeJSON(w, http.StatusCreated, ExportRecordDTO{ExportRecord: rec})
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("target must be download or file"))
	}
}

// ExportClipboard handles POST /api/sessions/{sid}/export/clipboard.
//
//	@Summary		Copy the serialized prompt to the server's clipboard
//	@Tags			export
//	@Produce		json
//	@Param			sid	path		string	true	"Session ID"
//	@Success		200	{object}	ExportRecordDTO
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/export/clipboard [post]
func (h *Handler) ExportClipboard(w http.ResponseWriter, r *http.Request) {
	rec, err := h.ws.ExportClipboard(r.Context(), chi.URLParam(r, "sid"))
	if err != nil {
		writeError(w, "export clipboard", err)
		return
	}
	writeJSON(w, http.StatusOK, ExportRecordDTO{ExportRecord: rec})
}

// ListExports handles GET /api/exports.
//
//	@Summary		List export history, newest first
//	@Tags			export
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			session	query		string	false	"Filter by session ID"
//	@Success		200		{object}	ExportListResponse
//	@Security		BearerAuth
//	@Router			/exports [get]
func (h *Handler) ListExports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	items, total, err := h.ws.Exports(limit, offset, q.Get("session"))
	if err != nil {
		writeError(w, "list exports", err)
		return
	}
	writeJSON(w, http.StatusOK, ExportListResponse{Exports: items, Total: total})
}

// GetExport handles GET /api/exports/{id}.
func (h *Handler) GetExport(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, "get export", apperr.ErrNotFound)
		return
	}
	rec, err := h.ws.Export(id)
	if err != nil {
		writeError(w, "get export", err)
		return
	}
	writeJSON(w, http.StatusOK, ExportRecordDTO{ExportRecord: rec, Content: rec.Content})
}

// SearchExports handles GET /api/exports/search.
//
//	@Summary		Full-text search across past exports
//	@Tags			export
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/exports/search [get]
func (h *Handler) SearchExports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.ws.SearchExports(q, limit)
	if err != nil {
		writeError(w, "search exports", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
