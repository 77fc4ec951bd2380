package api

import (
	"errors"
	"net/http"

	"ytbridge/internal/extractor"
	"ytbridge/internal/resolution"
	"ytbridge/internal/resolver"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// httpError translates the typed errors of the lower layers into one
// structured JSON response with a matching status class.
func (a *ApiManagerCtx) httpError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	kind := "internal"

	var exErr *extractor.Error
	switch {
	case errors.As(err, &exErr):
		switch exErr.Kind {
		case extractor.KindMalformed:
			status, kind = http.StatusBadRequest, "invalid_url"
		case extractor.KindRestricted:
			status, kind = http.StatusForbidden, "access_restricted"
		case extractor.KindNotFound:
			status, kind = http.StatusNotFound, "not_found"
		case extractor.KindUnreachable:
			status, kind = http.StatusBadGateway, "upstream_unreachable"
		}
	case errors.Is(err, resolver.ErrInvalidQuality):
		status, kind = http.StatusBadRequest, "invalid_quality"
	case errors.Is(err, resolver.ErrNoFormats):
		status, kind = http.StatusNotFound, "no_formats"
	case errors.Is(err, resolution.ErrTimeout):
		status, kind = http.StatusGatewayTimeout, "timeout"
	}

	if status == http.StatusInternalServerError {
		a.logger.Err(err).Msg("request failed")
	}

	writeJSON(w, status, errorResponse{
		Error:   kind,
		Message: err.Error(),
	})
}
