package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrDownloadFailed     = errors.New("download failed")
	ErrExtractionFailed   = errors.New("extraction failed")
	ErrEmbeddingFailed    = errors.New("embedding failed")
	ErrRetrievalFailed    = errors.New("retrieval failed")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrTemporary          = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
