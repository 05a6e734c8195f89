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

// Package services_test contains unit tests for the application services.
// This file tests the in-memory job store: lifecycle transitions, progress
// updates, snapshot isolation, and terminal-job pruning.
package services_test

import (
	"testing"
	"time"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/model"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/services"
	"github.com/zeebo/assert"
)

// TestJobStoreLifecycle walks a job from creation through completion and
// checks the store's view at each step.
func TestJobStoreLifecycle(t *testing.T) {
	store := services.NewJobStore()
	job := model.NewJob(model.ModeProfessional)
	store.Create(job)

	got, err := store.Get(job.ID)
	assert.NoError(t, err)
	assert.Equal(t, model.JobQueued, got.Status)

	assert.NoError(t, store.Start(job.ID))
	store.UpdateProgress(job.ID, "transcoding", 40)

	got, err = store.Get(job.ID)
	assert.NoError(t, err)
	assert.Equal(t, model.JobRunning, got.Status)
	assert.Equal(t, 40, got.Progress)
	assert.Equal(t, "transcoding", got.Stage)

	assert.NoError(t, store.Complete(job.ID))
	got, err = store.Get(job.ID)
	assert.NoError(t, err)
	assert.Equal(t, model.JobCompleted, got.Status)
	// Completion pins the progress view regardless of the last reported value.
	assert.Equal(t, 100, got.Progress)
	assert.Equal(t, "done", got.Stage)
}

// TestJobStoreFail verifies that failing a job records the message and a
// finish time.
func TestJobStoreFail(t *testing.T) {
	store := services.NewJobStore()
	job := model.NewJob(model.ModeBasic)
	store.Create(job)

	assert.NoError(t, store.Start(job.ID))
	assert.NoError(t, store.Fail(job.ID, "ffprobe reported no usable duration"))

	got, err := store.Get(job.ID)
	assert.NoError(t, err)
	assert.Equal(t, model.JobFailed, got.Status)
	assert.Equal(t, "ffprobe reported no usable duration", got.Error)
	assert.False(t, got.FinishedAt.IsZero())
}

// TestJobStoreGetUnknown verifies the not-found sentinel.
func TestJobStoreGetUnknown(t *testing.T) {
	store := services.NewJobStore()
	_, err := store.Get("no-such-job")
	assert.True(t, err == model.ErrNotFound)
}

// TestJobStoreGetReturnsCopy verifies that mutating a returned job does not
// leak back into the store.
func TestJobStoreGetReturnsCopy(t *testing.T) {
	store := services.NewJobStore()
	job := model.NewJob(model.ModeBasic)
	store.Create(job)

	got, err := store.Get(job.ID)
	assert.NoError(t, err)
	got.Stage = "tampered"

	fresh, err := store.Get(job.ID)
	assert.NoError(t, err)
	assert.Equal(t, "", fresh.Stage)
}

// TestJobStoreProgressIgnoredAfterTerminal verifies that late progress
// reports from a finished pipeline cannot reanimate a terminal job.
func TestJobStoreProgressIgnoredAfterTerminal(t *testing.T) {
	store := services.NewJobStore()
	job := model.NewJob(model.ModeBasic)
	store.Create(job)
	assert.NoError(t, store.Start(job.ID))
	assert.NoError(t, store.Complete(job.ID))

	store.UpdateProgress(job.ID, "analyzing", 55)

	got, err := store.Get(job.ID)
	assert.NoError(t, err)
	assert.Equal(t, 100, got.Progress)
	assert.Equal(t, "done", got.Stage)
}

// TestJobStorePruneTerminal verifies that only aged-out terminal jobs are
// dropped.
func TestJobStorePruneTerminal(t *testing.T) {
	store := services.NewJobStore()

	finished := model.NewJob(model.ModeBasic)
	store.Create(finished)
	assert.NoError(t, store.Start(finished.ID))
	assert.NoError(t, store.Complete(finished.ID))

	running := model.NewJob(model.ModeBasic)
	store.Create(running)
	assert.NoError(t, store.Start(running.ID))

	// A generous retention keeps the fresh terminal job.
	assert.Equal(t, 0, store.PruneTerminal(time.Hour))

	// Zero retention drops it but never touches the running job.
	assert.Equal(t, 1, store.PruneTerminal(0))
	_, err := store.Get(finished.ID)
	assert.True(t, err == model.ErrNotFound)
	_, err = store.Get(running.ID)
	assert.NoError(t, err)
}
