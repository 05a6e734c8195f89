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
// handlers and the analysis pipeline. This file defines the in-memory result
// store and the canonical rendering of result documents: two-space-indented
// UTF-8 JSON with non-ASCII characters and URL-significant characters left
// unescaped.
package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/model"
)

// ResultSummary is the listing view of a stored result.
type ResultSummary struct {
	JobID     string    `json:"job_id"`
	Mode      string    `json:"mode"`
	SourceURI string    `json:"source_uri"`
	VideoType string    `json:"video_type,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ResultStore keeps finished result documents in memory, keyed by job ID.
type ResultStore struct {
	mu         sync.RWMutex
	results    map[string]*model.ResultDocument
	filePrefix string
}

// NewResultStore creates an empty result store. filePrefix names downloaded
// files (e.g. "video_analysis").
func NewResultStore(filePrefix string) *ResultStore {
	if filePrefix == "" {
		filePrefix = "video_analysis"
	}
	return &ResultStore{results: make(map[string]*model.ResultDocument), filePrefix: filePrefix}
}

// Put stores a finished document, replacing any previous run for the job.
func (s *ResultStore) Put(doc *model.ResultDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[doc.JobID] = doc
}

// Get returns the document for a job, or ErrNotFound.
func (s *ResultStore) Get(jobID string) (*model.ResultDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.results[jobID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return doc, nil
}

// Delete removes the document for a job, or returns ErrNotFound.
func (s *ResultStore) Delete(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[jobID]; !ok {
		return model.ErrNotFound
	}
	delete(s.results, jobID)
	return nil
}

// List returns a summary of every stored result, newest first.
func (s *ResultStore) List() []ResultSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ResultSummary, 0, len(s.results))
	for _, doc := range s.results {
		summary := ResultSummary{
			JobID:     doc.JobID,
			Mode:      doc.AnalysisSession.Mode,
			SourceURI: doc.AnalysisSession.SourceURI,
			Timestamp: doc.AnalysisSession.Timestamp,
		}
		if doc.Professional != nil && doc.Professional.Categorized != nil {
			summary.VideoType = doc.Professional.Categorized.VideoType
		}
		out = append(out, summary)
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Timestamp.After(out[i].Timestamp) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

// Render serializes a document in the canonical download form.
func (s *ResultStore) Render(doc *model.ResultDocument) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to render result %s: %w", doc.JobID, err)
	}
	return buffer.Bytes(), nil
}

// DownloadName builds the attachment file name for a document:
// <prefix>_<jobID>_<YYYYMMDD_HHMMSS>.json.
func (s *ResultStore) DownloadName(doc *model.ResultDocument) string {
	stamp := doc.AnalysisSession.Timestamp
	if stamp.IsZero() {
		stamp = time.Now().UTC()
	}
	return fmt.Sprintf("%s_%s_%s.json", s.filePrefix, doc.JobID, stamp.Format("20060102_150405"))
}

// WriteFile renders the document into the output directory and returns the
// written path. The CLI uses this to leave one JSON artifact per run.
func (s *ResultStore) WriteFile(outputDir string, doc *model.ResultDocument) (string, error) {
	rendered, err := s.Render(doc)
	if err != nil {
		return "", err
	}
	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
		}
	}
	path := filepath.Join(outputDir, s.DownloadName(doc))
	if err := os.WriteFile(path, rendered, 0o644); err != nil {
		return "", fmt.Errorf("failed to write result file %s: %w", path, err)
	}
	return path, nil
}
