// Package handler provides HTTP handlers for the Bug-Warden API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sevigo/bug-warden/internal/core"
	"github.com/sevigo/bug-warden/internal/jobs"
)

const maxBodyBytes = 4 << 20

// AnalysisRequestBody is the JSON body of POST /api/v1/analyses.
type AnalysisRequestBody struct {
	Report        string `json:"report"`
	Reporter      string `json:"reporter,omitempty"`
	SourceRoot    string `json:"source_root"`
	KnowledgePath string `json:"knowledge_path,omitempty"`
	ScriptDir     string `json:"script_dir,omitempty"`
}

// AnalysisHandler accepts analysis requests and serves their results.
type AnalysisHandler struct {
	dispatcher core.JobDispatcher
	store      *jobs.ResultStore
	logger     *slog.Logger
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(dispatcher core.JobDispatcher, store *jobs.ResultStore, logger *slog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		dispatcher: dispatcher,
		store:      store,
		logger:     logger,
	}
}

// Create queues a new analysis and answers 202 with its ID.
func (h *AnalysisHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body AnalysisRequestBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		h.logger.Warn("could not decode analysis request", "error", err)
		writeError(w, http.StatusBadRequest, "could not decode request body: "+err.Error())
		return
	}

	report := core.NewBugReport(body.Report, "api")
	report.Reporter = body.Reporter
	req := &core.AnalysisRequest{
		Report:        report,
		SourceRoot:    body.SourceRoot,
		KnowledgePath: body.KnowledgePath,
		ScriptDir:     body.ScriptDir,
	}
	if err := jobs.ValidateRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.dispatcher.Dispatch(r.Context(), req); err != nil {
		if errors.Is(err, jobs.ErrQueueFull) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		h.logger.Error("failed to dispatch analysis job", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to queue analysis")
		return
	}

	w.Header().Set("Location", "/api/v1/analyses/"+req.ID)
	writeJSON(w, http.StatusAccepted, map[string]string{"id": req.ID, "status": string(jobs.StatusQueued)})
}

// Get returns the state, and once finished the result, of one analysis.
func (h *AnalysisHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// List returns every known analysis without results.
func (h *AnalysisHandler) List(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.store.List())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
