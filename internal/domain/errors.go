package domain

import "errors"

// Failure kinds shared across components. Call sites wrap these with
// fmt.Errorf("...: %w", ...) so callers can branch with errors.Is.
var (
	// ErrInvalidConfig marks invalid chunking settings or an unknown model name.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrDocumentLoad marks missing or unreadable documents; a build that hits
	// it leaves any previously published index intact.
	ErrDocumentLoad = errors.New("document load failed")

	// ErrEmptyIndex is returned when a query arrives before any successful build.
	ErrEmptyIndex = errors.New("no documents indexed")

	// ErrEmbeddingService marks an upstream embedding failure. It aborts the
	// current build wholesale; no partial index is published.
	ErrEmbeddingService = errors.New("embedding service failed")

	// ErrGenerationService marks an upstream completion failure. It never
	// escapes as a hard failure: synthesis degrades to a diagnostic message,
	// evaluation to a diagnostic report.
	ErrGenerationService = errors.New("generation service failed")

	// ErrBusy is returned when a turn is submitted while another is in flight.
	ErrBusy = errors.New("session busy")
)
