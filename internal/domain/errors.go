package domain

import "errors"

var (
	// ErrDocumentNotFound signals that no stored document matches a lookup.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrProviderUnavailable signals that the embedding provider could not
	// serve the call at all (as opposed to a single document failing).
	ErrProviderUnavailable = errors.New("embedding provider unavailable")
	// ErrInvalidArgument signals malformed caller input, e.g. a negative topK.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrVectorDimMismatch signals a dimension mismatch between query and
	// document vectors.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrUnsupportedFormat signals a document format the extractor cannot read.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrEmptyDocument signals that extraction produced no text.
	ErrEmptyDocument = errors.New("empty document")
)
