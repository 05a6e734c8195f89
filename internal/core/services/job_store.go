// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package services contains the business logic that sits between the HTTP
// handlers and the analysis pipeline. This file defines the in-memory job
// store that tracks every submitted analysis from queued to terminal state.
//
// Job state is process-local on purpose: restarting the server forgets
// in-flight jobs, and clients are expected to resubmit. The store is safe
// for concurrent use by the HTTP handlers, the dispatcher workers, and the
// per-stage progress updates.
package services

import (
	"sync"
	"time"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/model"
)

// JobStore tracks analysis jobs in memory.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*model.Job
}

// NewJobStore creates an empty job store.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*model.Job)}
}

// Create registers a new job.
func (s *JobStore) Create(job *model.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

// Get returns a snapshot of the job, or ErrNotFound. Returning a copy keeps
// callers from racing the dispatcher's mutations.
func (s *JobStore) Get(id string) (model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return model.Job{}, model.ErrNotFound
	}
	return *job, nil
}

// List returns snapshots of every job, newest submissions first.
func (s *JobStore) List() []model.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, *job)
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].SubmittedAt.After(out[i].SubmittedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

// UpdateProgress records the pipeline's current stage and percent for a job.
// Unknown jobs and terminal jobs are ignored; a late progress update must
// not resurrect a finished job.
func (s *JobStore) UpdateProgress(id string, stage string, percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Status.Terminal() {
		return
	}
	job.Stage = stage
	job.Progress = percent
}

// Start moves a queued job to running.
func (s *JobStore) Start(id string) error {
	return s.transition(id, model.JobRunning, "")
}

// Complete moves a running job to completed and pins progress at 100.
func (s *JobStore) Complete(id string) error {
	if err := s.transition(id, model.JobCompleted, ""); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		job.Progress = 100
		job.Stage = "done"
	}
	return nil
}

// Fail moves a job to failed with its terminal error message.
func (s *JobStore) Fail(id string, message string) error {
	return s.transition(id, model.JobFailed, message)
}

func (s *JobStore) transition(id string, next model.JobStatus, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return model.ErrNotFound
	}
	if err := job.Transition(next); err != nil {
		return err
	}
	if message != "" {
		job.Error = message
	}
	return nil
}

// PruneTerminal removes terminal jobs older than the retention window and
// returns how many were dropped. The server runs this periodically so the
// map does not grow without bound.
func (s *JobStore) PruneTerminal(retention time.Duration) int {
	cutoff := time.Now().Add(-retention)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, job := range s.jobs {
		if job.Status.Terminal() && !job.FinishedAt.IsZero() && job.FinishedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}
