package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sevigo/bug-warden/internal/analysis"
	"github.com/sevigo/bug-warden/internal/config"
	"github.com/sevigo/bug-warden/internal/core"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeAnalyzer struct {
	mu    sync.Mutex
	calls []analysis.Input
	run   func(ctx context.Context, in analysis.Input) (*core.AnalysisResult, error)
}

func (f *fakeAnalyzer) Run(ctx context.Context, in analysis.Input) (*core.AnalysisResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, in)
	f.mu.Unlock()
	return f.run(ctx, in)
}

func waitFinished(t *testing.T, store *ResultStore, id string) Record {
	t.Helper()
	var rec Record
	require.Eventually(t, func() bool {
		var err error
		rec, err = store.Get(id)
		return err == nil && rec.Status.Finished()
	}, 5*time.Second, 10*time.Millisecond)
	return rec
}

func TestDispatcher_RunsJobs(t *testing.T) {
	root := t.TempDir()
	analyzer := &fakeAnalyzer{run: func(_ context.Context, in analysis.Input) (*core.AnalysisResult, error) {
		if in.Report.Text == "boom" {
			return nil, errors.New("analysis exploded")
		}
		return &core.AnalysisResult{Report: in.Report}, nil
	}}
	store := NewResultStore(10)
	d := NewDispatcher(NewAnalysisJob(analyzer, store, testLogger()), store, config.ServerConfig{MaxWorkers: 2, QueueSize: 10}, testLogger())
	defer d.Stop()

	ok := &core.AnalysisRequest{Report: core.NewBugReport("mana bug", "api"), SourceRoot: root}
	bad := &core.AnalysisRequest{Report: core.NewBugReport("boom", "api"), SourceRoot: root}
	invalid := &core.AnalysisRequest{Report: core.NewBugReport("x", "api"), SourceRoot: "relative"}
	for _, req := range []*core.AnalysisRequest{ok, bad, invalid} {
		require.NoError(t, d.Dispatch(context.Background(), req))
		require.NotEmpty(t, req.ID)
	}

	rec := waitFinished(t, store, ok.ID)
	assert.Equal(t, StatusDone, rec.Status)
	require.NotNil(t, rec.Result)
	assert.Equal(t, "mana bug", rec.Result.Report.Title)

	rec = waitFinished(t, store, bad.ID)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Contains(t, rec.Error, "analysis exploded")

	rec = waitFinished(t, store, invalid.ID)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Contains(t, rec.Error, ErrInvalidRequest.Error())
}

func TestDispatcher_QueueFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	analyzer := &fakeAnalyzer{run: func(context.Context, analysis.Input) (*core.AnalysisResult, error) {
		started <- struct{}{}
		<-release
		return &core.AnalysisResult{}, nil
	}}
	store := NewResultStore(10)
	d := NewDispatcher(NewAnalysisJob(analyzer, store, testLogger()), store, config.ServerConfig{MaxWorkers: 1, QueueSize: 1}, testLogger())
	defer d.Stop()

	root := t.TempDir()
	require.NoError(t, d.Dispatch(context.Background(), &core.AnalysisRequest{SourceRoot: root}))
	<-started
	require.NoError(t, d.Dispatch(context.Background(), &core.AnalysisRequest{SourceRoot: root}))

	rejected := &core.AnalysisRequest{SourceRoot: root}
	err := d.Dispatch(context.Background(), rejected)
	require.ErrorIs(t, err, ErrQueueFull)
	_, err = store.Get(rejected.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)

	close(release)
}

func TestDispatcher_StopCancelsRunningJobs(t *testing.T) {
	started := make(chan struct{})
	analyzer := &fakeAnalyzer{run: func(ctx context.Context, _ analysis.Input) (*core.AnalysisResult, error) {
		close(started)
		<-ctx.Done()
		return &core.AnalysisResult{Warnings: []string{"interrupted"}}, ctx.Err()
	}}
	store := NewResultStore(10)
	d := NewDispatcher(NewAnalysisJob(analyzer, store, testLogger()), store, config.ServerConfig{MaxWorkers: 1, QueueSize: 1}, testLogger())

	req := &core.AnalysisRequest{SourceRoot: t.TempDir()}
	require.NoError(t, d.Dispatch(context.Background(), req))
	<-started
	d.Stop()

	rec, err := store.Get(req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, rec.Status)
	require.NotNil(t, rec.Result, "partial results are kept")
	assert.Equal(t, []string{"interrupted"}, rec.Result.Warnings)
}

func TestResultStore_EvictsOldestFinished(t *testing.T) {
	store := NewResultStore(2)
	reqs := []*core.AnalysisRequest{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	store.Add(reqs[0])
	store.Add(reqs[1])
	store.Add(reqs[2])
	assert.Len(t, store.List(), 3, "unfinished records are never evicted")

	store.Finish("b", &core.AnalysisResult{}, nil, false)
	ids := func() []string {
		var out []string
		for _, r := range store.List() {
			out = append(out, r.ID)
		}
		return out
	}
	assert.Equal(t, []string{"a", "c"}, ids())

	_, err := store.Get("b")
	assert.ErrorIs(t, err, ErrJobNotFound)

	store.SetRunning("a")
	rec, err := store.Get("a")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, rec.Status)
}
