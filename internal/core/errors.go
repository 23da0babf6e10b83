package core

import "errors"

var (
	// ErrServiceUnavailable means the language model could not be reached
	// after all retries.
	ErrServiceUnavailable = errors.New("llm service unavailable")
	// ErrMalformedResponse means the model reply could not be parsed into the
	// requested schema, even after a corrective re-prompt.
	ErrMalformedResponse = errors.New("malformed llm response")
	// ErrUnreadableSource means a source file could not be read or decoded.
	ErrUnreadableSource = errors.New("unreadable source file")
	// ErrEmptyShortlist means no chunk passed the keyword filter and the
	// file-frequency fallback was used.
	ErrEmptyShortlist = errors.New("no chunk passed the keyword filter")
	// ErrNoChunks means the source tree produced no chunks at all. It is the
	// only condition that stops a run.
	ErrNoChunks = errors.New("source tree produced no chunks")
)
