package httpadapter

import (
	"errors"
	"net/http"

	"github.com/avoronov/bookqa/internal/core/domain"
)

// mapErrorToHTTPStatus translates domain error kinds to response codes.
// Pipeline failures are checked before ErrTemporary because a retryable
// provider error wrapped inside an embedding failure still surfaces the
// pipeline stage to the client.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrDownloadFailed),
		errors.Is(err, domain.ErrExtractionFailed),
		errors.Is(err, domain.ErrEmbeddingFailed),
		errors.Is(err, domain.ErrRetrievalFailed),
		errors.Is(err, domain.ErrStorageUnavailable):
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
