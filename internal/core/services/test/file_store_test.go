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
// This file tests the registry of uploaded files.
package services_test

import (
	"testing"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/model"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/services"
	"github.com/zeebo/assert"
)

// TestFileStorePutGet verifies registration, lookup, and the gs:// rendering
// of an uploaded file.
func TestFileStorePutGet(t *testing.T) {
	store := services.NewFileStore()

	file := services.NewUploadedFile("site-survey-001.mp4")
	file.Bucket = "video-upload-inbox"
	file.Object = file.ID + ".mp4"
	file.MIMEType = "video/mp4"
	file.SizeBytes = 1024
	store.Put(file)

	got, err := store.Get(file.ID)
	assert.NoError(t, err)
	assert.Equal(t, "site-survey-001.mp4", got.Name)
	assert.Equal(t, "gs://video-upload-inbox/"+file.ID+".mp4", got.URI())

	_, err = store.Get("no-such-file")
	assert.True(t, err == model.ErrNotFound)
}

// TestFileStoreAttachJob verifies job linkage for status and progress
// queries.
func TestFileStoreAttachJob(t *testing.T) {
	store := services.NewFileStore()
	file := services.NewUploadedFile("clip.mov")
	store.Put(file)

	assert.NoError(t, store.AttachJob(file.ID, "job-42"))
	got, err := store.Get(file.ID)
	assert.NoError(t, err)
	assert.Equal(t, "job-42", got.JobID)

	assert.True(t, store.AttachJob("missing", "job-42") == model.ErrNotFound)
}
