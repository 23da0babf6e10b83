package jobs

import (
	"errors"
	"sync"
	"time"

	"github.com/sevigo/bug-warden/internal/core"
)

// Status is the lifecycle state of an analysis job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Finished reports whether the job will not change state again.
func (s Status) Finished() bool {
	return s == StatusDone || s == StatusFailed || s == StatusCancelled
}

// ErrJobNotFound is returned for unknown or evicted job IDs.
var ErrJobNotFound = errors.New("job not found")

// Record is the stored state of one job.
type Record struct {
	ID      string                `json:"id"`
	Status  Status                `json:"status"`
	Request *core.AnalysisRequest `json:"request"`
	Result  *core.AnalysisResult  `json:"result,omitempty"`
	Error   string                `json:"error,omitempty"`
	Created time.Time             `json:"created"`
	Updated time.Time             `json:"updated"`
}

// ResultStore keeps job records in memory. Once it holds more than its
// capacity, the oldest finished records are evicted.
type ResultStore struct {
	mu       sync.RWMutex
	capacity int
	records  map[string]*Record
	order    []string
}

// NewResultStore creates a store holding at most capacity records.
func NewResultStore(capacity int) *ResultStore {
	if capacity <= 0 {
		capacity = 100
	}
	return &ResultStore{
		capacity: capacity,
		records:  make(map[string]*Record),
	}
}

// Add records a newly queued request.
func (s *ResultStore) Add(req *core.AnalysisRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.records[req.ID] = &Record{ID: req.ID, Status: StatusQueued, Request: req, Created: now, Updated: now}
	s.order = append(s.order, req.ID)
	s.evict()
}

// Remove drops a record, used when a request could not be queued.
func (s *ResultStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// SetRunning marks a job as picked up by a worker.
func (s *ResultStore) SetRunning(id string) {
	s.update(id, func(r *Record) { r.Status = StatusRunning })
}

// Finish stores the outcome of a job. A partial result returned with an
// error is kept.
func (s *ResultStore) Finish(id string, res *core.AnalysisResult, err error, cancelled bool) {
	s.update(id, func(r *Record) {
		r.Result = res
		switch {
		case cancelled:
			r.Status = StatusCancelled
		case err != nil:
			r.Status = StatusFailed
		default:
			r.Status = StatusDone
		}
		if err != nil {
			r.Error = err.Error()
		}
	})
	s.mu.Lock()
	s.evict()
	s.mu.Unlock()
}

// Get returns a copy of the record with the given ID.
func (s *ResultStore) Get(id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return Record{}, ErrJobNotFound
	}
	return *r, nil
}

// List returns copies of all records, oldest first, without their results.
func (s *ResultStore) List() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.order))
	for _, id := range s.order {
		r := *s.records[id]
		r.Result = nil
		out = append(out, r)
	}
	return out
}

func (s *ResultStore) update(id string, fn func(*Record)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[id]; ok {
		fn(r)
		r.Updated = time.Now()
	}
}

// evict must be called with the lock held. Queued and running records are
// never evicted.
func (s *ResultStore) evict() {
	for i := 0; len(s.order) > s.capacity && i < len(s.order); {
		id := s.order[i]
		if !s.records[id].Status.Finished() {
			i++
			continue
		}
		delete(s.records, id)
		s.order = append(s.order[:i], s.order[i+1:]...)
	}
}
