// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// Error classes shared by every stage. Stages wrap them with context using
// %w so callers can classify failures with errors.Is.
var (
	// ErrConfig marks a precondition violation detected before any I/O:
	// selection count above pool size, empty decision list, bad schedule.
	// Never retried.
	ErrConfig = errors.New("configuration error")

	// ErrTransport marks a network or authentication failure talking to the
	// search service or the LLM provider. Recovery is re-invocation.
	ErrTransport = errors.New("transport error")

	// ErrParse marks an LLM response that is not the expected JSON after
	// code-fence stripping. The stage artifact is not written.
	ErrParse = errors.New("parse error")

	// ErrMissingDocument marks a selected paper whose document is absent
	// when summarization needs it.
	ErrMissingDocument = errors.New("missing document")
)
