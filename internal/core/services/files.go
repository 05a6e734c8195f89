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

package services

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/model"
)

// UploadedFile records a video that a client pushed through the upload
// endpoint and that now lives in the upload bucket. JobID is set once an
// analysis job is submitted against the file; file status and progress
// queries then follow that job.
type UploadedFile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Bucket     string    `json:"bucket"`
	Object     string    `json:"object"`
	MIMEType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadedAt time.Time `json:"uploaded_at"`
	JobID      string    `json:"job_id,omitempty"`
}

// URI returns the file's storage address in scheme://bucket/object form.
func (f *UploadedFile) URI() string {
	return "gs://" + f.Bucket + "/" + f.Object
}

// FileStore is the in-memory registry of uploaded files. Like JobStore it is
// authoritative only for the current process; the bytes themselves live in
// the upload bucket.
type FileStore struct {
	mu    sync.RWMutex
	files map[string]*UploadedFile
}

// NewFileStore creates an empty file registry.
func NewFileStore() *FileStore {
	return &FileStore{files: make(map[string]*UploadedFile)}
}

// NewUploadedFile builds a file record with a fresh identifier. The caller
// fills in the storage coordinates after the upload succeeds.
func NewUploadedFile(name string) *UploadedFile {
	return &UploadedFile{
		ID:         uuid.NewString(),
		Name:       name,
		UploadedAt: time.Now(),
	}
}

// Put registers a file record after its bytes reached the upload bucket.
func (s *FileStore) Put(file *UploadedFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[file.ID] = file
}

// Get returns a copy of the file record, or model.ErrNotFound when the id is
// unknown.
func (s *FileStore) Get(id string) (UploadedFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	file, ok := s.files[id]
	if !ok {
		return UploadedFile{}, model.ErrNotFound
	}
	return *file, nil
}

// AttachJob links an analysis job to an uploaded file so that file status
// queries can surface the job's progress.
func (s *FileStore) AttachJob(fileID string, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, ok := s.files[fileID]
	if !ok {
		return model.ErrNotFound
	}
	file.JobID = jobID
	return nil
}

// List returns copies of every registered file, newest first.
func (s *FileStore) List() []UploadedFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]UploadedFile, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, *f)
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].UploadedAt.After(out[i].UploadedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}
