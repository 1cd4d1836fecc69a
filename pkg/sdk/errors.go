package insightfinder

import "github.com/shashi-deop/insightfinder/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrDocumentNotFound    = domain.ErrDocumentNotFound
	ErrProviderUnavailable = domain.ErrProviderUnavailable
	ErrInvalidArgument     = domain.ErrInvalidArgument
	ErrVectorDimMismatch   = domain.ErrVectorDimMismatch
)
