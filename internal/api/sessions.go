package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/promptcraft/internal/composer"
	"github.com/starford/promptcraft/internal/parser"
	"github.com/starford/promptcraft/internal/render"
	"github.com/starford/promptcraft/internal/workspace"
)

// Handler holds API route handlers.
type Handler struct {
	ws        *workspace.Workspace
	maxUpload int64
}

// NewHandler creates a new Handler. maxUpload limits multipart uploads.
func NewHandler(ws *workspace.Workspace, maxUpload int64) *Handler {
	return &Handler{ws: ws, maxUpload: maxUpload}
}

// session resolves {sid}, writing a 404 when it does not exist.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*composer.Session, bool) {
	s, err := h.ws.Session(chi.URLParam(r, "sid"))
	if err != nil {
		writeError(w, "get session", err)
		return nil, false
	}
	return s, true
}

// ListSessions handles GET /api/sessions.
//
//	@Summary		List editing sessions
//	@Tags			sessions
//	@Produce		json
//	@Success		200	{object}	SessionListResponse
//	@Security		BearerAuth
//	@Router			/sessions [get]
func (h *Handler) ListSessions(w http.ResponseWriter, _ *http.Request) {
	sessions := h.ws.Sessions()
	out := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, SessionSummary{ID: s.ID, Attachments: s.Store().Len(), CreatedAt: s.CreatedAt})
	}
	writeJSON(w, http.StatusOK, SessionListResponse{Sessions: out})
}

// CreateSession handles POST /api/sessions.
//
//	@Summary		Start an empty session
//	@Tags			sessions
//	@Produce		json
//	@Success		201	{object}	SessionState
//	@Security		BearerAuth
//	@Router			/sessions [post]
func (h *Handler) CreateSession(w http.ResponseWriter, _ *http.Request) {
	s := h.ws.CreateSession()
	writeJSON(w, http.StatusCreated, s.State())
}

// GetSession handles GET /api/sessions/{sid}.
//
//	@Summary		Get the full session state
//	@Tags			sessions
//	@Produce		json
//	@Param			sid	path		string	true	"Session ID"
//	@Success		200	{object}	SessionState
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sid} [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

// DeleteSession handles DELETE /api/sessions/{sid}.
//
//	@Summary		Delete a session
//	@Tags			sessions
//	@Param			sid	path	string	true	"Session ID"
//	@Success		204	"Session deleted"
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sid} [delete]
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.ws.DeleteSession(chi.URLParam(r, "sid")); err != nil {
		writeError(w, "delete session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetDocument handles GET /api/sessions/{sid}/document.
//
//	@Summary		Get the document as markup, annotated text and nodes
//	@Tags			document
//	@Produce		json
//	@Param			sid	path		string	true	"Session ID"
//	@Success		200	{object}	DocumentResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/document [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	st := s.State()
	markup, err := parser.Format(parser.Frontmatter{}, st.Document)
	if err != nil {
		writeError(w, "format document", err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentResponse{
		Markup:   string(markup),
		Text:     render.Text(st.Document, s.Store().Snapshot()),
		Document: st.Document,
	})
}

// PutDocument handles PUT /api/sessions/{sid}/document. The replacement is
// a single undoable edit; frontmatter is ignored.
//
//	@Summary		Replace the document from prompt markup
//	@Tags			document
//	@Accept			json
//	@Produce		json
//	@Param			sid		path		string			true	"Session ID"
//	@Param			body	body		DocumentRequest	true	"Markup"
//	@Success		200		{object}	SessionState
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/document [put]
func (h *Handler) PutDocument(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req DocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := parser.Parse([]byte(req.Markup))
	if err != nil {
		writeError(w, "parse markup", err)
		return
	}
	writeJSON(w, http.StatusOK, s.SetDocument(res.Document))
}

// Input handles POST /api/sessions/{sid}/input.
func (h *Handler) Input(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req InputRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := s.Input(req.Text)
	if err != nil {
		writeError(w, "input", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Cursor handles POST /api/sessions/{sid}/cursor.
func (h *Handler) Cursor(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req CursorRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := s.Select(req.Range())
	if err != nil {
		writeError(w, "move cursor", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Suggestion handles POST /api/sessions/{sid}/suggestions/{action} where
// action is next, prev, confirm or escape.
func (h *Handler) Suggestion(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	switch chi.URLParam(r, "action") {
	case "next":
		writeJSON(w, http.StatusOK, s.Next())
	case "prev":
		writeJSON(w, http.StatusOK, s.Prev())
	case "escape":
		writeJSON(w, http.StatusOK, s.Escape())
	case "confirm":
		st, inserted, err := s.Confirm()
		if err != nil {
			writeError(w, "confirm suggestion", err)
			return
		}
		writeJSON(w, http.StatusOK, ConfirmResponse{Inserted: inserted, State: st})
	default:
		writeJSON(w, http.StatusNotFound, errorBody("unknown suggestion action"))
	}
}

// Paste handles POST /api/sessions/{sid}/paste. A pasted URL returns
// immediately; the fetch result arrives as an attachment.added or
// fetch.failed event.
//
//	@Summary		Paste text or a URL at the cursor
//	@Tags			document
//	@Accept			json
//	@Produce		json
//	@Param			sid		path		string			true	"Session ID"
//	@Param			body	body		PasteRequest	true	"Pasted text"
//	@Success		200		{object}	PasteResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/paste [post]
func (h *Handler) Paste(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req PasteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, out, err := s.Paste(r.Context(), req.Text)
	if err != nil {
		writeError(w, "paste", err)
		return
	}
	writeJSON(w, http.StatusOK, PasteResponse{Outcome: out, State: st})
}

// Undo handles POST /api/sessions/{sid}/undo.
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	st, undone := s.Undo()
	writeJSON(w, http.StatusOK, UndoResponse{Undone: undone, State: st})
}
