package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/promptcraft/internal/workspace"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// maxUpload caps multipart upload bodies.
func NewRouter(ws *workspace.Workspace, authEnabled bool, token string, sseHandler http.Handler, maxUpload int64) chi.Router {
	h := NewHandler(ws, maxUpload)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", h.ListSessions)
		r.Post("/", h.CreateSession)

		r.Route("/{sid}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.DeleteSession)

			// Attachments.
			r.Get("/attachments", h.ListAttachments)
			r.Post("/attachments", h.AddAttachment)
			r.Delete("/attachments/{aid}", h.DeleteAttachment)
			r.Get("/attachments/{aid}/preview", h.PreviewAttachment)

			// Editing.
			r.Get("/document", h.GetDocument)
			r.Put("/document", h.PutDocument)
			r.Post("/input", h.Input)
			r.Post("/cursor", h.Cursor)
			r.Post("/suggestions/{action}", h.Suggestion)
			r.Post("/paste", h.Paste)
			r.Post("/undo", h.Undo)

			// Export.
			r.Get("/export", h.Export)
			r.Post("/export/clipboard", h.ExportClipboard)
		})
	})

	// Export history.
	r.Get("/exports", h.ListExports)
	r.Get("/exports/search", h.SearchExports)
	r.Get("/exports/{id}", h.GetExport)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
