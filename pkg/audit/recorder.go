package audit

import (
	"context"
	"sync"
)

// Recorder retains the most recent records in memory.
type Recorder struct {
	mu      sync.Mutex
	records []CallRecord
	limit   int
}

// NewRecorder keeps at most limit records; a non-positive limit keeps all.
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

func (r *Recorder) Name() string { return "recorder" }

func (r *Recorder) Accept(_ context.Context, rec CallRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	if r.limit > 0 && len(r.records) > r.limit {
		r.records = append(r.records[:0:0], r.records[len(r.records)-r.limit:]...)
	}
	return nil
}

// Records returns a copy of the retained records, oldest first.
func (r *Recorder) Records() []CallRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]CallRecord(nil), r.records...)
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}
