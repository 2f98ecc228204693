package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/promptcraft/internal/attachment"
	"github.com/starford/promptcraft/internal/models"
	"github.com/starford/promptcraft/internal/render"
)

// ListAttachments handles GET /api/sessions/{sid}/attachments.
//
//	@Summary		List a session's attachments in upload order
//	@Tags			attachments
//	@Produce		json
//	@Param			sid	path		string	true	"Session ID"
//	@Success		200	{object}	AttachmentListResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/attachments [get]
func (h *Handler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, AttachmentListResponse{Attachments: s.Store().List()})
}

// AddAttachment handles POST /api/sessions/{sid}/attachments. A
// multipart/form-data body uploads one or more "file" fields; a JSON body
// adds text content or fetches a URL.
//
//	@Summary		Upload files or add a text/URL attachment
//	@Tags			attachments
//	@Accept			mpfd,json
//	@Produce		json
//	@Param			sid		path		string					true	"Session ID"
//	@Param			file	formData	file					false	"Text file (.txt, .md, .json)"
//	@Param			body	body		AddAttachmentRequest	false	"Text or URL attachment"
//	@Success		201		{object}	AttachmentListResponse
//	@Failure		400		{object}	errResponse
//	@Failure		415		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/attachments [post]
func (h *Handler) AddAttachment(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	if _, ok := h.session(w, r); !ok {
		return
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		h.upload(w, r, sid)
		return
	}

	var req AddAttachmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var (
		a   models.Attachment
		err error
	)
	if req.URL != "" {
		a, err = h.ws.AddURL(r.Context(), sid, req.URL)
	} else {
		a, err = h.ws.AddText(sid, req.FileName, req.Content)
	}
	if err != nil {
		writeError(w, "add attachment", err)
		return
	}
	writeJSON(w, http.StatusCreated, AttachmentListResponse{Attachments: []models.Attachment{a}})
}

// upload accepts every "file" part. Files of an unsupported type are
// rejected before any file is added.
func (h *Handler) upload(w http.ResponseWriter, r *http.Request, sid string) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}

	type part struct {
		name string
		data []byte
	}
	parts := make([]part, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
			return
		}
		parts = append(parts, part{name: fh.Filename, data: data})
	}

	var unsupported []string
	for _, p := range parts {
		if !attachment.Accepts(p.name) {
			unsupported = append(unsupported, p.name)
		}
	}
	if len(unsupported) > 0 {
		writeJSON(w, http.StatusUnsupportedMediaType,
			errorBody("unsupported file type: "+strings.Join(unsupported, ", ")))
		return
	}

	added := make([]models.Attachment, 0, len(parts))
	for _, p := range parts {
		a, err := h.ws.Upload(sid, p.name, p.data)
		if err != nil {
			writeError(w, "upload attachment", err)
			return
		}
		added = append(added, a)
	}
	writeJSON(w, http.StatusCreated, AttachmentListResponse{Attachments: added})
}

// DeleteAttachment handles DELETE /api/sessions/{sid}/attachments/{aid}.
// Mentions of the removed file stay in the document and show as missing.
//
//	@Summary		Remove an attachment
//	@Tags			attachments
//	@Param			sid	path	string	true	"Session ID"
//	@Param			aid	path	string	true	"Attachment ID"
//	@Success		204	"Attachment removed"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/attachments/{aid} [delete]
func (h *Handler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	_, err := h.ws.RemoveAttachment(chi.URLParam(r, "sid"), chi.URLParam(r, "aid"))
	if err != nil {
		writeError(w, "remove attachment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PreviewAttachment handles GET /api/sessions/{sid}/attachments/{aid}/preview.
// Content is stored raw and rendered as Markdown only here.
func (h *Handler) PreviewAttachment(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	a, err := s.Store().Get(chi.URLParam(r, "aid"))
	if err != nil {
		writeError(w, "get attachment", err)
		return
	}
	html, err := render.HTML(a.Content)
	if err != nil {
		writeError(w, "render preview", err)
		return
	}
	writeJSON(w, http.StatusOK, PreviewResponse{ID: a.ID, FileName: a.FileName, HTML: html})
}
