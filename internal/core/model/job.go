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

// Package model defines the core data structures for the video analysis
// pipeline. This file holds the analysis job and its lifecycle state machine.
package model

import (
	"time"

	"github.com/google/uuid"
)

// AnalysisMode selects which pipeline a job runs.
type AnalysisMode string

const (
	// ModeBasic runs each of the configured test prompts independently against
	// the analysis model and collects prompt/response pairs. No categorization.
	ModeBasic AnalysisMode = "basic"
	// ModeProfessional runs a single prompt through analysis and then through
	// the structured categorization model.
	ModeProfessional AnalysisMode = "professional"
)

// JobStatus is the lifecycle state of an analysis job. Completed and Failed
// are terminal.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// validTransitions encodes the permitted state machine edges.
var validTransitions = map[JobStatus][]JobStatus{
	JobQueued:  {JobRunning, JobFailed},
	JobRunning: {JobCompleted, JobFailed},
}

// CanTransition reports whether moving from s to next is a legal edge.
func (s JobStatus) CanTransition(next JobStatus) bool {
	for _, v := range validTransitions[s] {
		if v == next {
			return true
		}
	}
	return false
}

// Job is one submitted analysis request tracked from submission to a terminal
// state. SourceURI is set for gs:// references and server uploads, SourcePath
// for local files submitted through the command line; exactly one is
// non-empty.
type Job struct {
	ID           string       `json:"id"`
	Mode         AnalysisMode `json:"mode"`
	Status       JobStatus    `json:"status"`
	SourceURI    string       `json:"source_uri,omitempty"`
	SourcePath   string       `json:"-"`
	CustomPrompt string       `json:"custom_prompt,omitempty"`
	Progress     int          `json:"progress"`
	Stage        string       `json:"stage,omitempty"`
	Error        string       `json:"error,omitempty"`
	SubmittedAt  time.Time    `json:"submitted_at"`
	StartedAt    time.Time    `json:"started_at,omitempty"`
	FinishedAt   time.Time    `json:"finished_at,omitempty"`
}

// NewJob creates a queued job with a fresh identifier.
func NewJob(mode AnalysisMode) *Job {
	return &Job{
		ID:          uuid.NewString(),
		Mode:        mode,
		Status:      JobQueued,
		SubmittedAt: time.Now(),
	}
}

// Transition moves the job to the next status, stamping the start and finish
// times. It returns ErrJobTerminal when the job is already terminal and a
// ValidationError for any other illegal edge.
func (j *Job) Transition(next JobStatus) error {
	if j.Status.Terminal() {
		return ErrJobTerminal
	}
	if !j.Status.CanTransition(next) {
		return &ValidationError{Field: "status", Reason: string(j.Status) + " cannot move to " + string(next)}
	}
	j.Status = next
	switch next {
	case JobRunning:
		j.StartedAt = time.Now()
	case JobCompleted, JobFailed:
		j.FinishedAt = time.Now()
	}
	return nil
}
