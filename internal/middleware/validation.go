package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "campaignclean/internal/errors"
	"campaignclean/internal/files"
)

// ValidationMiddleware decodes JSON bodies and validates them using struct tags
type ValidationMiddleware struct {
	validator    *validator.Validate
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewValidationMiddleware creates a new validation middleware
func NewValidationMiddleware(logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ValidationMiddleware {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterValidation("filename", isValidFilename)

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &ValidationMiddleware{
		validator:    v,
		logger:       logger.With(slog.String("component", "validation_middleware")),
		errorHandler: errorHandler,
	}
}

// DecodeAndValidate reads a JSON body into dst and validates it. On failure
// the problem response has already been written and false is returned.
func (m *ValidationMiddleware) DecodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			m.errorHandler.HandleError(w, r, maxErr)
		case errors.Is(err, io.EOF):
			m.errorHandler.HandleError(w, r, apierrors.New(
				http.StatusBadRequest,
				"EMPTY_BODY",
				"Request body is required",
			))
		default:
			m.logger.DebugContext(r.Context(), "invalid JSON body", slog.String("error", err.Error()))
			m.errorHandler.HandleError(w, r, apierrors.New(
				http.StatusBadRequest,
				"INVALID_JSON",
				"Request body contains invalid JSON",
			))
		}
		return false
	}

	if err := m.ValidateStruct(dst); err != nil {
		m.errorHandler.HandleError(w, r, err)
		return false
	}
	return true
}

// ValidateStruct validates a struct and returns validation errors
func (m *ValidationMiddleware) ValidateStruct(v interface{}) error {
	err := m.validator.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return apierrors.InvalidRequestWithError(err)
	}

	validationErrors := make([]apierrors.ValidationError, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		validationErrors = append(validationErrors, apierrors.ValidationError{
			Field:   fieldPath(fe),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(validationErrors)
}

// ContentTypeValidator ensures requests have proper content type
func ContentTypeValidator(contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodDelete || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			if contentType == "" {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, apierrors.New(
					http.StatusBadRequest,
					"MISSING_CONTENT_TYPE",
					"Content-Type header is required",
				))
				return
			}

			mediaType, _, err := mime.ParseMediaType(contentType)
			valid := false
			if err == nil {
				for _, allowed := range contentTypes {
					if strings.EqualFold(mediaType, allowed) {
						valid = true
						break
					}
				}
			}

			if !valid {
				render.Status(r, http.StatusUnsupportedMediaType)
				render.JSON(w, r, apierrors.NewWithDetails(
					http.StatusUnsupportedMediaType,
					"UNSUPPORTED_MEDIA_TYPE",
					"Unsupported content type",
					map[string]interface{}{
						"content_type": contentType,
						"allowed":      contentTypes,
					},
				))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// fieldPath drops the top-level struct name from the namespace, so
// "ProcessRequest.files[2]" becomes "files[2]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// formatValidationError formats validation error messages
func formatValidationError(fe validator.FieldError) string {
	field := fieldPath(fe)
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must contain at least %s item(s)", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "filename":
		return fmt.Sprintf("%s must be a plain file name", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// isValidFilename accepts the names the file stores accept.
func isValidFilename(fl validator.FieldLevel) bool {
	return files.ValidateName(fl.Field().String()) == nil
}
