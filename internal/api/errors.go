package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/ignite/leadpage/internal/pkg/httputil"
	"github.com/ignite/leadpage/internal/pkg/logger"
	"github.com/ignite/leadpage/internal/rotation"
	"github.com/ignite/leadpage/internal/service/landing"
	"github.com/ignite/leadpage/internal/storage"
)

// respondServiceError maps service and adapter errors to HTTP responses.
// Field violations go back in full; 5xx causes are logged, never returned.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *landing.ValidationError
	var uerr *landing.UpstreamError

	switch {
	case errors.As(err, &verr):
		httputil.Unprocessable(w, "landing page configuration is invalid", verr.Fields)
	case errors.Is(err, landing.ErrNotFound):
		httputil.NotFound(w, "landing page not found")
	case errors.Is(err, landing.ErrPublishInProgress):
		httputil.ErrorWithCode(w, http.StatusConflict, "publish_in_progress", err.Error(), nil)
	case errors.As(err, &uerr):
		logger.Warn("upstream failure", "path", r.URL.Path, "kind", string(uerr.Kind), "error", uerr.Err.Error())
		code := "upstream_failure"
		switch {
		case errors.Is(err, landing.ErrContentDisabled):
			code = "content_disabled"
		case errors.Is(err, context.DeadlineExceeded):
			code = "upstream_timeout"
		}
		httputil.ErrorWithCode(w, http.StatusBadGateway, code, landing.ErrUpstreamFailure.Error(), nil)
	case errors.Is(err, rotation.ErrRoutingUnavailable):
		httputil.ErrorWithCode(w, http.StatusServiceUnavailable, "routing_unavailable", err.Error(), nil)
	case errors.Is(err, storage.ErrTooLarge):
		httputil.Error(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, storage.ErrUnsupportedType):
		httputil.Error(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, storage.ErrUploadFailed):
		logger.Error("image upload failed", "path", r.URL.Path, "error", err.Error())
		httputil.ErrorWithCode(w, http.StatusBadGateway, "upload_failed", storage.ErrUploadFailed.Error(), nil)
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the response.
		w.WriteHeader(499)
	default:
		httputil.InternalError(w, err)
	}
}
