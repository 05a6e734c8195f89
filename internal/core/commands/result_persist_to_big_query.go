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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// command that writes a durable copy of each finished result document to
// BigQuery.
//
// Logic Flow:
// The streaming inserter receives one flat audit row per document: the
// queryable columns (job, mode, classification, transport, sizes) plus the
// complete document as a JSON string. A sink failure is logged and counted
// but does not fail the job; the document has already been assembled and
// the caller still receives it.
package commands

import (
	"encoding/json"
	"log"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/cor"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/model"
)

// ResultRow is the flat BigQuery representation of a finished analysis.
type ResultRow struct {
	JobID            string    `bigquery:"job_id"`
	Mode             string    `bigquery:"mode"`
	SourceURI        string    `bigquery:"source_uri"`
	CompletedAt      time.Time `bigquery:"completed_at"`
	VideoType        string    `bigquery:"video_type"`
	Confidence       float64   `bigquery:"confidence"`
	Transport        string    `bigquery:"transport"`
	EncodeOutcome    string    `bigquery:"encode_outcome"`
	InputSizeBytes   int64     `bigquery:"input_size_bytes"`
	PayloadSizeBytes int64     `bigquery:"payload_size_bytes"`
	Document         string    `bigquery:"document"`
}

// ResultPersistToBigQuery streams finished result documents into the audit
// table.
type ResultPersistToBigQuery struct {
	cor.BaseCommand
	client  *bigquery.Client
	dataset string
	table   string
}

// NewResultPersistToBigQuery is the constructor for the
// ResultPersistToBigQuery command.
func NewResultPersistToBigQuery(name string, client *bigquery.Client, dataset string, table string) *ResultPersistToBigQuery {
	return &ResultPersistToBigQuery{BaseCommand: *cor.NewBaseCommand(name), client: client, dataset: dataset, table: table}
}

// Execute writes the audit row and forwards the document unchanged.
func (s *ResultPersistToBigQuery) Execute(context cor.Context) {
	doc := context.Get(s.GetInputParam()).(*model.ResultDocument)

	row := &ResultRow{
		JobID:       doc.JobID,
		Mode:        doc.AnalysisSession.Mode,
		SourceURI:   doc.AnalysisSession.SourceURI,
		CompletedAt: doc.AnalysisSession.Timestamp,
	}
	if doc.Professional != nil && doc.Professional.Categorized != nil {
		row.VideoType = doc.Professional.Categorized.VideoType
		row.Confidence = doc.Professional.Categorized.ConfidenceScore
	}
	if doc.ProcessingInfo != nil {
		row.Transport = string(doc.ProcessingInfo.Transport)
		row.EncodeOutcome = string(doc.ProcessingInfo.EncodeOutcome)
		row.InputSizeBytes = doc.ProcessingInfo.InputSizeBytes
		row.PayloadSizeBytes = doc.ProcessingInfo.PayloadSizeBytes
	}
	if rendered, err := json.Marshal(doc); err == nil {
		row.Document = string(rendered)
	}

	i := s.client.Dataset(s.dataset).Table(s.table).Inserter()
	if err := i.Put(context.GetContext(), row); err != nil {
		// The audit sink is best-effort: the caller still gets the document.
		log.Printf("failed to write result %s to bigquery: %v\n", doc.JobID, err)
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.Add(s.GetOutputParam(), doc)
		return
	}

	s.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(s.GetOutputParam(), doc)
}
