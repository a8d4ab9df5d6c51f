// Package httpapi exposes an objectfs.FS over HTTP.
//
// Routes:
//
//	GET    /api/directory?path=          list a directory
//	POST   /api/directory?path=          create a directory
//	GET    /api/resource?path=           resource info
//	POST   /api/resource?path=           upload the multipart files of field "object" into a directory
//	DELETE /api/resource?path=           delete a file or directory
//	GET    /api/resource/download?path=  download a file, or a directory as a ZIP archive
//	GET    /api/resource/move?from=&to=  move a file or directory
//	GET    /api/resource/search?query=   search by path
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	objectfs "github.com/Jumpaku/go-objectfs"
	fserrors "github.com/Jumpaku/go-objectfs/errors"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const (
	uploadField     = "object"
	maxUploadMemory = 32 << 20
)

type errorResponse struct {
	Message string `json:"message"`
}

type handler struct {
	fs     *objectfs.FS
	users  UserResolver
	logger logrus.FieldLogger
}

// NewHandler returns the routes of fs. Requests are attributed to the user returned by users.
func NewHandler(fs *objectfs.FS, users UserResolver, logger logrus.FieldLogger) http.Handler {
	h := &handler{fs: fs, users: users, logger: logger}

	r := mux.NewRouter()
	r.Use(loggingMiddleware(logger))
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/directory", h.listDirectory).Methods(http.MethodGet)
	api.HandleFunc("/directory", h.createDirectory).Methods(http.MethodPost)
	api.HandleFunc("/resource", h.info).Methods(http.MethodGet)
	api.HandleFunc("/resource", h.upload).Methods(http.MethodPost)
	api.HandleFunc("/resource", h.delete).Methods(http.MethodDelete)
	api.HandleFunc("/resource/download", h.download).Methods(http.MethodGet)
	api.HandleFunc("/resource/move", h.move).Methods(http.MethodGet)
	api.HandleFunc("/resource/search", h.search).Methods(http.MethodGet)
	return r
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.WithError(err).Warn("failed to write response")
	}
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal error"
	switch {
	case errors.Is(err, ErrUnauthenticated):
		status, message = http.StatusUnauthorized, err.Error()
	default:
		switch fserrors.CategoryOf(err) {
		case fserrors.CategoryInvalid:
			status, message = http.StatusBadRequest, err.Error()
		case fserrors.CategoryNotFound:
			status, message = http.StatusNotFound, err.Error()
		case fserrors.CategoryConflict:
			status, message = http.StatusConflict, err.Error()
		}
	}
	if status == http.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	}
	h.writeJSON(w, status, errorResponse{Message: message})
}

// params returns the named query parameters, failing with ErrInvalidPath when one is absent.
func params(r *http.Request, names ...string) ([]string, error) {
	query := r.URL.Query()
	values := make([]string, 0, len(names))
	for _, name := range names {
		if !query.Has(name) {
			return nil, errors.Join(errors.New("missing query parameter "+name), objectfs.ErrInvalidPath)
		}
		values = append(values, query.Get(name))
	}
	return values, nil
}

// prepare resolves the user and the named query parameters. It writes the error response and returns false on failure.
func (h *handler) prepare(w http.ResponseWriter, r *http.Request, names ...string) (objectfs.UserID, []string, bool) {
	user, err := h.users.ResolveUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return 0, nil, false
	}
	values, err := params(r, names...)
	if err != nil {
		h.writeError(w, r, err)
		return 0, nil, false
	}
	return user, values, true
}

func (h *handler) listDirectory(w http.ResponseWriter, r *http.Request) {
	user, p, ok := h.prepare(w, r, "path")
	if !ok {
		return
	}
	children, err := h.fs.Directory.List(r.Context(), user, p[0])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, children)
}

func (h *handler) createDirectory(w http.ResponseWriter, r *http.Request) {
	user, p, ok := h.prepare(w, r, "path")
	if !ok {
		return
	}
	resource, err := h.fs.Directory.Create(r.Context(), user, p[0])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, resource)
}

func (h *handler) info(w http.ResponseWriter, r *http.Request) {
	user, p, ok := h.prepare(w, r, "path")
	if !ok {
		return
	}
	resource, err := h.fs.Resource.Info(r.Context(), user, p[0])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resource)
}

func (h *handler) upload(w http.ResponseWriter, r *http.Request) {
	user, p, ok := h.prepare(w, r, "path")
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		h.writeError(w, r, errors.Join(err, objectfs.ErrInvalidPath))
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			h.logger.WithError(err).Warn("failed to remove multipart files")
		}
	}()

	headers := r.MultipartForm.File[uploadField]
	parts := make([]objectfs.FilePart, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		defer f.Close()
		parts = append(parts, objectfs.FilePart{
			Filename:    filename(fh),
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		})
	}

	stored, err := h.fs.Resource.Upload(r.Context(), user, p[0], parts)
	if err != nil {
		if len(stored) > 0 {
			h.logger.WithFields(logrus.Fields{"user": user, "path": p[0], "objects": len(stored)}).
				Warn("upload failed after storing some files")
		}
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, stored)
}

// filename returns the client file name including its directories.
// multipart.FileHeader.Filename keeps only the base name, which would flatten folder uploads.
func filename(fh *multipart.FileHeader) string {
	_, params, err := mime.ParseMediaType(fh.Header.Get("Content-Disposition"))
	if err == nil && params["filename"] != "" {
		return params["filename"]
	}
	return fh.Filename
}

func (h *handler) delete(w http.ResponseWriter, r *http.Request) {
	user, p, ok := h.prepare(w, r, "path")
	if !ok {
		return
	}
	if err := h.fs.Resource.Delete(r.Context(), user, p[0]); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) move(w http.ResponseWriter, r *http.Request) {
	user, p, ok := h.prepare(w, r, "from", "to")
	if !ok {
		return
	}
	resource, err := h.fs.Resource.Move(r.Context(), user, p[0], p[1])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resource)
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	user, p, ok := h.prepare(w, r, "query")
	if !ok {
		return
	}
	results, err := h.fs.Resource.Search(r.Context(), user, p[0])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, results)
}

// countingWriter reports whether anything reached the client.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += int64(n)
	return n, err
}

func (h *handler) download(w http.ResponseWriter, r *http.Request) {
	user, p, ok := h.prepare(w, r, "path")
	if !ok {
		return
	}
	resource, err := h.fs.Resource.Info(r.Context(), user, p[0])
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	contentType := "application/octet-stream"
	if resource.IsDir() {
		contentType = "application/zip"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+objectfs.AttachmentName(p[0]))

	cw := &countingWriter{w: w}
	if err := h.fs.Resource.Download(r.Context(), user, p[0], cw); err != nil {
		if cw.n == 0 {
			w.Header().Del("Content-Disposition")
			h.writeError(w, r, err)
			return
		}
		// Headers are sent; abort the connection so the client sees a truncated body.
		h.logger.WithError(err).WithFields(logrus.Fields{"user": user, "path": p[0]}).Warn("download aborted")
		panic(http.ErrAbortHandler)
	}
}
