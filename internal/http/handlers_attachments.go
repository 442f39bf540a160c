package http

import (
	"errors"
	"net/http"

	"financas/internal/attachments"
	applog "financas/internal/log"
)

func (s *Server) handleUploadAttachment(w http.ResponseWriter, r *http.Request) {
	if s.deps.Files == nil {
		NotFoundError("attachments are disabled").Write(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, attachments.MaxSize+maxJSONBody)
	if err := r.ParseMultipartForm(maxJSONBody); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, r, applog.OpCreate, attachments.ErrTooLarge)
			return
		}
		BadRequestError("invalid multipart form").Write(w)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		BadRequestError("missing file").Write(w)
		return
	}
	defer file.Close()

	url, err := s.deps.Files.Upload(r.Context(), header.Filename, file)
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	NewResponse().Created(map[string]string{"url": url}).Write(w)
}

func (s *Server) handleServeAttachment(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !attachments.ValidName(name) {
		NotFoundError("not found").Write(w)
		return
	}
	http.ServeFile(w, r, s.attachmentPath(name))
}
