// Package core defines the data structures and contracts shared by every stage
// of the analysis: the bug report, knowledge entries, source chunks, relevance
// judgments and the final result handed to the output layer.
package core

import (
	"context"
)

// AnalysisRequest carries everything a single pipeline run needs. It is built
// by the CLI from flags, or by the HTTP API from a request body.
type AnalysisRequest struct {
	ID            string    `json:"id"`
	Report        BugReport `json:"report"`
	SourceRoot    string    `json:"source_root" validate:"required,abspath,dir"`
	KnowledgePath string    `json:"knowledge_path,omitempty" validate:"omitempty,abspath,file"`
	ScriptDir     string    `json:"script_dir,omitempty" validate:"omitempty,abspath,dir"`
}

// JobDispatcher accepts analysis requests for asynchronous processing.
type JobDispatcher interface {
	// Dispatch queues the request. It returns an error if the job cannot be
	// queued, for example when the queue is full.
	Dispatch(ctx context.Context, req *AnalysisRequest) error
}

// Job is a single unit of work executed by the dispatcher's workers.
type Job interface {
	Run(ctx context.Context, req *AnalysisRequest) error
}
