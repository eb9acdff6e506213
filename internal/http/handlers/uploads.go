package handlers

import (
	"mime/multipart"
	"net/http"

	"studio/internal/pipeline"
)

const (
	uploadField     = "images"
	maxUploadMemory = 32 << 20
	maxUploadFiles  = 20
)

func (a *App) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		a.error(w, http.StatusBadRequest, "validation", "multipart form required")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File[uploadField]
	if len(headers) == 0 {
		a.error(w, http.StatusBadRequest, "validation", "no files uploaded")
		return
	}
	if len(headers) > maxUploadFiles {
		a.error(w, http.StatusBadRequest, "validation", "too many files")
		return
	}

	files := make([]pipeline.IncomingFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			a.error(w, http.StatusBadRequest, "validation", "unreadable file "+fh.Filename)
			return
		}
		defer func(f multipart.File) { _ = f.Close() }(f)
		files = append(files, pipeline.IncomingFile{
			OriginalName: fh.Filename,
			MIMEType:     fh.Header.Get("Content-Type"),
			Body:         f,
		})
	}

	res, err := a.Service.Upload(r.Context(), files, pipeline.UploadMeta{
		UserAgent: r.UserAgent(),
		IP:        r.RemoteAddr,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, res)
}
