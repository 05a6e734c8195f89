// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// This file tests the job submission handler against a fake Cloud Storage
// backend. Reference validity is part of the submission contract: a gs:// URI
// for a missing or oversized object must be rejected synchronously, before
// any job exists.
package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/cloud"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/model"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/services"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/workflow"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// fakeStorageBackend serves object metadata over the JSON API surface the
// storage client HEADs during reference validation. Objects absent from the
// map respond 404.
func fakeStorageBackend(t *testing.T, objects map[string]int64) *storage.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for name, size := range objects {
			if strings.HasSuffix(r.URL.Path, "/o/"+name) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprintf(w, `{"bucket":"video-upload-inbox","name":%q,"size":"%d"}`, name, size)
				return
			}
		}
		http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	client, err := storage.NewClient(context.Background(),
		option.WithEndpoint(server.URL),
		option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// resetState swaps in a fresh StateManager wired to the fake backend so each
// test observes its own job store.
func resetState(t *testing.T, client *storage.Client) {
	t.Helper()
	config := &cloud.Config{}
	config.Limits = cloud.Limits{
		NoTranscodeBelowMB:     30,
		InlineTransportBelowMB: 36,
		InlineHardCapMB:        100,
		HardMaxMB:              2048,
	}
	jobs := services.NewJobStore()
	results := services.NewResultStore("video_analysis")
	state = &StateManager{
		config:     config,
		cloud:      &cloud.ServiceClients{StorageClient: client},
		jobs:       jobs,
		files:      services.NewFileStore(),
		results:    results,
		dispatcher: workflow.NewDispatcher(jobs, results, nil, nil, 1),
	}
}

// postSubmission routes a JSON submission body into the handler under test.
func postSubmission(body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses/professional", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	submitAnalysis(c, model.ModeProfessional)
	return w
}

// TestSubmitAnalysisRejectsMissingReference verifies that a gs:// URI naming
// an object that does not exist fails the submission with 404 and, crucially,
// that no job was created for it.
func TestSubmitAnalysisRejectsMissingReference(t *testing.T) {
	resetState(t, fakeStorageBackend(t, nil))

	w := postSubmission(`{"uri": "gs://video-upload-inbox/missing.mp4"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, state.jobs.List())
}

// TestSubmitAnalysisRejectsOversizedReference verifies that an existing
// object over the hard size ceiling is rejected synchronously with no job.
func TestSubmitAnalysisRejectsOversizedReference(t *testing.T) {
	resetState(t, fakeStorageBackend(t, map[string]int64{
		"huge.mp4": 3 << 30,
	}))

	w := postSubmission(`{"uri": "gs://video-upload-inbox/huge.mp4"}`)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, state.jobs.List())
}

// TestSubmitAnalysisAcceptsExistingReference verifies the positive path: a
// resolvable reference under the ceiling is accepted and a queued job lands
// in the store.
func TestSubmitAnalysisAcceptsExistingReference(t *testing.T) {
	resetState(t, fakeStorageBackend(t, map[string]int64{
		"clip.mp4": 2048,
	}))

	w := postSubmission(`{"uri": "gs://video-upload-inbox/clip.mp4"}`)

	require.Equal(t, http.StatusAccepted, w.Code)
	jobs := state.jobs.List()
	require.Len(t, jobs, 1)
	assert.Equal(t, "gs://video-upload-inbox/clip.mp4", jobs[0].SourceURI)
	assert.Equal(t, model.JobQueued, jobs[0].Status)
}

// TestSubmitAnalysisRejectsBadScheme verifies that a non-gs:// URI never
// reaches the storage backend and creates no job.
func TestSubmitAnalysisRejectsBadScheme(t *testing.T) {
	resetState(t, fakeStorageBackend(t, nil))

	w := postSubmission(`{"uri": "https://example.com/clip.mp4"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, state.jobs.List())
}

// TestUploadTempPath verifies that the staging path for an incoming upload is
// derived from the record id, so a traversal-crafted filename stays inside
// the temp directory and same-name uploads cannot collide.
func TestUploadTempPath(t *testing.T) {
	got := uploadTempPath("abc123", "../../etc/evil.mp4")
	assert.Equal(t, filepath.Join(os.TempDir(), "abc123.mp4"), got)

	other := uploadTempPath("def456", "evil.mp4")
	assert.NotEqual(t, got, other)
}
