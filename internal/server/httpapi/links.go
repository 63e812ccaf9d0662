package httpapi

import (
	"net/http"

	"github.com/go-chi/chi"
)

type CreateLinkRequest struct {
	FolderID string `json:"folderId" validate:"required"`
	Title    string `json:"title" validate:"required,max=500"`
	URL      string `json:"url" validate:"max=2048"`
	Note     string `json:"note" validate:"max=5000"`
}

// UpdateLinkRequest leaves a blank title to the service, which reports a
// missing or foreign link before rejecting the payload.
type UpdateLinkRequest struct {
	Title string `json:"title" validate:"max=500"`
	URL   string `json:"url" validate:"max=2048"`
	Note  string `json:"note" validate:"max=5000"`
}

func (s *HTTPServer) listLinks(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.listLinks"

	uid, _ := userID(r)

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	links, err := s.svc.Links.ListByFolder(ctx, uid, chi.URLParam(r, "folderId"))
	if err != nil {
		writeError(w, r, s.logger, op, err)
		return
	}

	respond(w, r, http.StatusOK, links)
}

func (s *HTTPServer) createLink(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.createLink"

	var req CreateLinkRequest
	if !s.decode(w, r, op, &req) {
		return
	}
	uid, _ := userID(r)

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	link, err := s.svc.Links.Create(ctx, uid, req.FolderID, req.Title, req.URL, req.Note)
	if err != nil {
		writeError(w, r, s.logger, op, err)
		return
	}

	respond(w, r, http.StatusCreated, link)
}

func (s *HTTPServer) updateLink(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.updateLink"

	var req UpdateLinkRequest
	if !s.decode(w, r, op, &req) {
		return
	}
	uid, _ := userID(r)

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	link, err := s.svc.Links.Update(ctx, uid, chi.URLParam(r, "id"), req.Title, req.URL, req.Note)
	if err != nil {
		writeError(w, r, s.logger, op, err)
		return
	}

	respond(w, r, http.StatusOK, link)
}

func (s *HTTPServer) deleteLink(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.deleteLink"

	uid, _ := userID(r)

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	if err := s.svc.Links.Delete(ctx, uid, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, s.logger, op, err)
		return
	}

	respondMessage(w, r, http.StatusOK, "link deleted")
}
