package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/bug-warden/internal/core"
	"github.com/sevigo/bug-warden/internal/jobs"
)

type fakeDispatcher struct {
	store *jobs.ResultStore
	err   error
	got   []*core.AnalysisRequest
}

func (f *fakeDispatcher) Dispatch(_ context.Context, req *core.AnalysisRequest) error {
	if f.err != nil {
		return f.err
	}
	req.ID = "job-1"
	f.store.Add(req)
	f.got = append(f.got, req)
	return nil
}

func newTestRouter(d *fakeDispatcher) http.Handler {
	return NewRouter(d, d.store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	rec := do(t, newTestRouter(&fakeDispatcher{store: jobs.NewResultStore(10)}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestRouter_Metrics(t *testing.T) {
	rec := do(t, newTestRouter(&fakeDispatcher{store: jobs.NewResultStore(10)}), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRouter_CreateAndGetAnalysis(t *testing.T) {
	d := &fakeDispatcher{store: jobs.NewResultStore(10)}
	h := newTestRouter(d)
	root := t.TempDir()

	body, err := json.Marshal(map[string]string{"report": "마나 부족\n스킬이 발동됨", "source_root": root, "reporter": "qa"})
	require.NoError(t, err)
	rec := do(t, h, http.MethodPost, "/api/v1/analyses", string(body))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, "/api/v1/analyses/job-1", rec.Header().Get("Location"))

	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "job-1", created["id"])
	assert.Equal(t, "queued", created["status"])

	require.Len(t, d.got, 1)
	assert.Equal(t, "마나 부족", d.got[0].Report.Title)
	assert.Equal(t, "qa", d.got[0].Report.Reporter)

	d.store.Finish("job-1", &core.AnalysisResult{Warnings: []string{"w"}}, nil, false)
	rec = do(t, h, http.MethodGet, "/api/v1/analyses/job-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got jobs.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, jobs.StatusDone, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, []string{"w"}, got.Result.Warnings)

	rec = do(t, h, http.MethodGet, "/api/v1/analyses", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []jobs.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Result)
}

func TestRouter_CreateErrors(t *testing.T) {
	root := t.TempDir()
	tests := []struct {
		name     string
		body     string
		dispErr  error
		wantCode int
	}{
		{name: "Malformed JSON", body: `{"report":`, wantCode: http.StatusBadRequest},
		{name: "Unknown field", body: `{"report":"x","source_root":"` + root + `","extra":1}`, wantCode: http.StatusBadRequest},
		{name: "Missing source root", body: `{"report":"x"}`, wantCode: http.StatusBadRequest},
		{name: "Queue full", body: `{"report":"x","source_root":"` + root + `"}`, dispErr: jobs.ErrQueueFull, wantCode: http.StatusServiceUnavailable},
		{name: "Dispatch failure", body: `{"report":"x","source_root":"` + root + `"}`, dispErr: assert.AnError, wantCode: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDispatcher{store: jobs.NewResultStore(10), err: tt.dispErr}
			rec := do(t, newTestRouter(d), http.MethodPost, "/api/v1/analyses", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestRouter_GetUnknownAnalysis(t *testing.T) {
	rec := do(t, newTestRouter(&fakeDispatcher{store: jobs.NewResultStore(10)}), http.MethodGet, "/api/v1/analyses/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
