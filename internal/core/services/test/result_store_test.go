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
// This file tests the in-memory result store: rendering, download naming,
// listing, and the result file writer.
package services_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/model"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleDocument builds a small professional-mode result document with a
// fixed timestamp so file names are predictable.
func sampleDocument(jobID string, stamp time.Time) *model.ResultDocument {
	return &model.ResultDocument{
		JobID: jobID,
		AnalysisSession: model.AnalysisSession{
			Timestamp: stamp,
			SourceURI: "gs://video-upload-inbox/site-survey-001.mp4",
			Mode:      string(model.ModeProfessional),
		},
		Professional: &model.ProfessionalResult{
			RawAnalysis: &model.RawAnalysis{Text: "공사 현장 드론 촬영 영상"},
			Categorized: &model.CategorizedResult{
				VideoType:        model.VideoTypeSiteWork,
				ConstructionInfo: &model.ConstructionInfo{WorkTypes: []string{"excavation"}},
				ConfidenceScore:  0.9,
			},
		},
	}
}

// TestResultStoreRender verifies the canonical serialization: two-space
// indentation, unescaped HTML-significant characters, and preserved
// non-ASCII text.
func TestResultStoreRender(t *testing.T) {
	store := services.NewResultStore("video_analysis")
	doc := sampleDocument("job-1", time.Date(2024, 10, 11, 3, 4, 8, 0, time.UTC))

	rendered, err := store.Render(doc)
	require.NoError(t, err)

	out := string(rendered)
	assert.Contains(t, out, "\n  \"job_id\": \"job-1\"")
	// Korean analysis text must survive rendering byte for byte.
	assert.Contains(t, out, "공사 현장 드론 촬영 영상")
	assert.NotContains(t, out, "\\u")
}

// TestResultStoreDownloadName verifies the canonical attachment name.
func TestResultStoreDownloadName(t *testing.T) {
	store := services.NewResultStore("video_analysis")
	doc := sampleDocument("job-1", time.Date(2024, 10, 11, 3, 4, 8, 0, time.UTC))

	assert.Equal(t, "video_analysis_job-1_20241011_030408.json", store.DownloadName(doc))
}

// TestResultStoreListNewestFirst verifies list ordering and the summary
// projection.
func TestResultStoreListNewestFirst(t *testing.T) {
	store := services.NewResultStore("")
	older := sampleDocument("job-old", time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC))
	newer := sampleDocument("job-new", time.Date(2024, 10, 12, 0, 0, 0, 0, time.UTC))
	store.Put(older)
	store.Put(newer)

	list := store.List()
	require.Len(t, list, 2)
	assert.Equal(t, "job-new", list[0].JobID)
	assert.Equal(t, "job-old", list[1].JobID)
	assert.Equal(t, model.VideoTypeSiteWork, list[0].VideoType)
	assert.Equal(t, "gs://video-upload-inbox/site-survey-001.mp4", list[0].SourceURI)
}

// TestResultStoreDelete verifies deletion and the not-found sentinel.
func TestResultStoreDelete(t *testing.T) {
	store := services.NewResultStore("")
	doc := sampleDocument("job-1", time.Now())
	store.Put(doc)

	assert.NoError(t, store.Delete("job-1"))
	assert.ErrorIs(t, store.Delete("job-1"), model.ErrNotFound)
	_, err := store.Get("job-1")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

// TestResultStoreWriteFile verifies that the CLI artifact lands in the
// output directory under the canonical name.
func TestResultStoreWriteFile(t *testing.T) {
	store := services.NewResultStore("video_analysis")
	doc := sampleDocument("job-1", time.Date(2024, 10, 11, 3, 4, 8, 0, time.UTC))
	dir := t.TempDir()

	path, err := store.WriteFile(dir, doc)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "video_analysis_job-1_20241011_030408.json"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "\"job_id\": \"job-1\"")
}
