package service

import (
	"sync"
	"time"

	"github.com/krafity/krafity/internal/domain"
)

// JobStore holds the in-flight bookkeeping for generation jobs: a single
// map keyed by job id whose lifecycle-state tag is the partition
// membership. All transitions happen under one lock, so a concurrent
// reader can never observe a live job missing from every state.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*domain.JobRecord
}

// NewJobStore creates an empty job store.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]*domain.JobRecord),
	}
}

// Insert adds a new record. The record must carry a fresh, unused id.
func (s *JobStore) Insert(rec *domain.JobRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[rec.ID] = rec
}

// Get returns a copy of the record for id, if present. Copies keep
// readers isolated from subsequent transitions.
func (s *JobStore) Get(id string) (domain.JobRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.jobs[id]
	if !ok {
		return domain.JobRecord{}, false
	}
	return *rec, true
}

// SetActive transitions a pending job to active, attaching the provider
// operation reference and enrichment metadata.
func (s *JobStore) SetActive(id, operationRef string, metadata map[string]string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[id]
	if !ok {
		return false
	}
	rec.State = domain.JobStateActive
	rec.OperationRef = operationRef
	rec.Metadata = metadata
	return true
}

// SetFailed transitions a job to failed with the captured error detail.
func (s *JobStore) SetFailed(id, detail string, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[id]
	if !ok {
		return false
	}
	rec.State = domain.JobStateFailed
	rec.ErrorDetail = detail
	rec.EndedAt = at
	return true
}

// SetCompleted transitions an active job to completed, recording the
// normalized video URL so later polls keep returning the same result.
func (s *JobStore) SetCompleted(id, videoURL string, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[id]
	if !ok {
		return false
	}
	rec.State = domain.JobStateCompleted
	rec.VideoURL = videoURL
	rec.EndedAt = at
	return true
}

// Delete removes a record outright.
func (s *JobStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}

// ReapTerminal removes completed and failed records that reached their
// terminal state before cutoff, and reports how many were removed. The
// store only ever holds bounded bookkeeping, not history.
func (s *JobStore) ReapTerminal(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	reaped := 0
	for id, rec := range s.jobs {
		if rec.State != domain.JobStateCompleted && rec.State != domain.JobStateFailed {
			continue
		}
		if rec.EndedAt.Before(cutoff) {
			delete(s.jobs, id)
			reaped++
		}
	}
	return reaped
}

// Len reports the number of live records.
func (s *JobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
