package http

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "campaignclean/internal/errors"
	"campaignclean/internal/files"
	"campaignclean/internal/middleware"
	"campaignclean/internal/operations"
	"campaignclean/internal/services"
	api "campaignclean/pkg/contracts/api/v1"
)

// UploadField is the multipart field that carries uploaded files.
const UploadField = "files[]"

// multipartMemory is the part of a multipart body kept in memory; the rest
// spills to temporary files.
const multipartMemory = 8 << 20

// CSVContentType is sent with every download.
const CSVContentType = "text/csv;charset=utf-8"

// CleaningHandler handles upload, process, batch and download requests
type CleaningHandler struct {
	service      CleaningServiceInterface
	validation   *middleware.ValidationMiddleware
	errorHandler *apierrors.ErrorHandler
	timeout      time.Duration
	logger       *slog.Logger
}

// NewCleaningHandler creates a new cleaning handler. A positive timeout bounds
// the batch lookup route.
func NewCleaningHandler(
	service CleaningServiceInterface,
	validation *middleware.ValidationMiddleware,
	errorHandler *apierrors.ErrorHandler,
	timeout time.Duration,
	logger *slog.Logger,
) *CleaningHandler {
	return &CleaningHandler{
		service:      service,
		validation:   validation,
		errorHandler: errorHandler,
		timeout:      timeout,
		logger:       logger.With(slog.String("component", "cleaning_handler")),
	}
}

// RegisterRoutes adds the cleaning routes to r, normally the /api router
func (h *CleaningHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.ContentTypeValidator("multipart/form-data")).Post("/upload", h.Upload)
	r.With(middleware.ContentTypeValidator("application/json")).Post("/process", h.Process)

	r.Group(func(r chi.Router) {
		if h.timeout > 0 {
			r.Use(middleware.Timeout(h.timeout, h.logger))
		}
		r.Get("/batches/{id}", h.GetBatch)
	})

	r.Get("/download/{filename}", h.Download)
}

// Upload handles POST /api/upload
func (h *CleaningHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.errorHandler.HandleError(w, r, maxErr)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[UploadField]
	if len(headers) == 0 {
		h.errorHandler.HandleError(w, r, apierrors.ErrNoFiles)
		return
	}

	uploads := make([]services.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			h.errorHandler.HandleError(w, r, fmt.Errorf("open part %s: %w", fh.Filename, err))
			return
		}
		defer f.Close()
		uploads = append(uploads, services.UploadFile{Name: partName(fh), Content: f})
	}

	result, err := h.service.Upload(r.Context(), uploads)
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}

	render.JSON(w, r, api.UploadResponse{
		Success:  len(result.Files) > 0,
		Files:    result.Files,
		Rejected: result.Rejected,
	})
}

// Process handles POST /api/process
func (h *CleaningHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req api.ProcessRequest
	if !h.validation.DecodeAndValidate(w, r, &req) {
		return
	}

	summary, err := h.service.Process(r.Context(), req.Files)
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}

	render.JSON(w, r, api.ProcessResponse{
		Success: !summary.HasFailures(),
		BatchID: summary.ID,
		Summary: summary,
	})
}

// GetBatch handles GET /api/batches/{id}
func (h *CleaningHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Batch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}
	render.JSON(w, r, summary)
}

// Download handles GET /api/download/{filename}
func (h *CleaningHandler) Download(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(name); err == nil {
			name = unescaped
		}
	}

	artifact, err := h.service.Download(r.Context(), name)
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}

	h.logger.DebugContext(r.Context(), "serving artifact",
		slog.String("file", artifact.Name),
		slog.Int("bytes", len(artifact.Data)))

	header := w.Header()
	header.Set("Content-Type", CSVContentType)
	header.Set("Content-Disposition", contentDisposition(artifact.Name))
	header.Set("ETag", `"`+artifact.Checksum+`"`)
	header.Set("Cache-Control", "private, no-cache")

	http.ServeContent(w, r, artifact.Name, artifact.ModTime, bytes.NewReader(artifact.Data))
}

func partName(fh *multipart.FileHeader) string {
	// Some clients send full local paths.
	name := fh.Filename
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// serviceError maps service sentinels onto API errors.
func serviceError(err error) error {
	switch {
	case errors.Is(err, services.ErrNoFiles), errors.Is(err, services.ErrNoFilesRequested):
		return apierrors.ErrNoFiles
	case errors.Is(err, services.ErrTooManyFiles):
		return apierrors.ErrValidation("files", err.Error())
	case errors.Is(err, operations.ErrSummaryNotFound):
		return apierrors.ErrBatchNotFound
	case errors.Is(err, files.ErrNotFound):
		return apierrors.ErrFileNotFound
	}

	var storageErr *services.StorageError
	if errors.As(err, &storageErr) {
		return apierrors.StorageError(storageErr.Op, storageErr.Err)
	}
	return err
}

// contentDisposition builds an attachment header carrying the name both as an
// ASCII fallback and RFC 5987 encoded.
func contentDisposition(name string) string {
	fallback := strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, name)
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, fallback, encodeRFC5987(name))
}

func encodeRFC5987(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}
