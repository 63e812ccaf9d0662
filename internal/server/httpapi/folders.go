package httpapi

import (
	"net/http"

	"github.com/go-chi/chi"
)

type CreateFolderRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

type UpdateFolderRequest struct {
	Name        string `json:"name" validate:"max=200"`
	Description string `json:"description" validate:"max=2000"`
}

func (s *HTTPServer) listFolders(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.listFolders"

	uid, _ := userID(r)

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	folders, err := s.svc.Folders.List(ctx, uid)
	if err != nil {
		writeError(w, r, s.logger, op, err)
		return
	}

	respond(w, r, http.StatusOK, folders)
}

func (s *HTTPServer) getFolder(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.getFolder"

	uid, _ := userID(r)

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	folder, err := s.svc.Folders.Get(ctx, uid, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, s.logger, op, err)
		return
	}

	respond(w, r, http.StatusOK, folder)
}

func (s *HTTPServer) createFolder(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.createFolder"

	var req CreateFolderRequest
	if !s.decode(w, r, op, &req) {
		return
	}
	uid, _ := userID(r)

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	folder, err := s.svc.Folders.Create(ctx, uid, req.Name, req.Description)
	if err != nil {
		writeError(w, r, s.logger, op, err)
		return
	}

	s.logger.Info(r.Context(), "folder created", "op", op, "user_id", uid, "folder_id", folder.ID)

	respond(w, r, http.StatusCreated, folder)
}

func (s *HTTPServer) updateFolder(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.updateFolder"

	var req UpdateFolderRequest
	if !s.decode(w, r, op, &req) {
		return
	}
	uid, _ := userID(r)

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	folder, err := s.svc.Folders.Update(ctx, uid, chi.URLParam(r, "id"), req.Name, req.Description)
	if err != nil {
		writeError(w, r, s.logger, op, err)
		return
	}

	respond(w, r, http.StatusOK, folder)
}

func (s *HTTPServer) deleteFolder(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.deleteFolder"

	uid, _ := userID(r)
	id := chi.URLParam(r, "id")

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	removed, err := s.svc.Folders.Delete(ctx, uid, id)
	if err != nil {
		writeError(w, r, s.logger, op, err)
		return
	}

	s.logger.Info(r.Context(), "folder deleted", "op", op, "user_id", uid, "folder_id", id, "links_removed", removed)

	respondMessage(w, r, http.StatusOK, "folder deleted")
}
