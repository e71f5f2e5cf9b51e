package errors

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInvalid               = errors.New("invalid")
	ErrTooMany               = errors.New("too many requests")
	ErrInternal              = errors.New("internal")
	ErrInvalidDocument       = errors.New("invalid document")
	ErrExtraction            = errors.New("extraction failed")
	ErrEmbeddingUnavailable  = errors.New("embedding backend unavailable")
	ErrGenerationUnavailable = errors.New("generation backend unavailable")
)
