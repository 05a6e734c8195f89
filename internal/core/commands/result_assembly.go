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
// final pipeline stage, which gathers every artifact the run produced into
// a single result document.
package commands

import (
	"fmt"
	"time"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/cloud"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/cor"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/model"
)

// ResultAssembly collects the run's artifacts into a ResultDocument. It
// serves both pipelines: basic runs contribute per-prompt results,
// professional runs contribute the analysis plus its categorization (or the
// parse fallback).
type ResultAssembly struct {
	cor.BaseCommand
	config *cloud.Config
}

// NewResultAssembly is the constructor for the ResultAssembly command.
func NewResultAssembly(name string, config *cloud.Config) *ResultAssembly {
	return &ResultAssembly{BaseCommand: *cor.NewBaseCommand(name), config: config}
}

// IsExecutable requires only the job artifact: which result artifacts exist
// depends on the mode that ran.
func (c *ResultAssembly) IsExecutable(context cor.Context) bool {
	return context != nil && context.Get(JobKey) != nil
}

// Execute assembles the result document and emits it as the chain output.
func (c *ResultAssembly) Execute(context cor.Context) {
	job := context.Get(JobKey).(*model.Job)

	doc := &model.ResultDocument{
		JobID: job.ID,
		AnalysisSession: model.AnalysisSession{
			Timestamp:        time.Now().UTC(),
			SourceURI:        job.SourceURI,
			Location:         c.config.Application.GoogleLocation,
			CustomPromptUsed: job.CustomPrompt != "",
			Mode:             string(job.Mode),
		},
	}
	if doc.AnalysisSession.SourceURI == "" {
		doc.AnalysisSession.SourceURI = job.SourcePath
	}
	if m, ok := c.config.AgentModels[cloud.AnalysisModelKey]; ok {
		doc.AnalysisSession.AnalysisModel = m.Model
	}

	switch job.Mode {
	case model.ModeBasic:
		results, ok := context.Get(BasicResultsKey).([]*model.BasicPromptResult)
		if !ok {
			c.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(c.GetName(), fmt.Errorf("basic pipeline finished without prompt results"))
			return
		}
		doc.BasicResults = results
	case model.ModeProfessional:
		raw, ok := context.Get(RawAnalysisKey).(*model.RawAnalysis)
		if !ok {
			c.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(c.GetName(), fmt.Errorf("professional pipeline finished without an analysis"))
			return
		}
		professional := &model.ProfessionalResult{RawAnalysis: raw}
		if categorized, ok := context.Get(CategorizedKey).(*model.CategorizedResult); ok {
			professional.Categorized = categorized
		} else if fallback, ok := context.Get(FallbackKey).(*model.CategorizationFallback); ok {
			professional.Fallback = fallback
		}
		doc.Professional = professional
		if m, ok := c.config.AgentModels[cloud.CategorizationModelKey]; ok {
			doc.AnalysisSession.CategorizationModel = m.Model
		}
	default:
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("unknown analysis mode %q", job.Mode))
		return
	}

	if encode, ok := context.Get(EncodeResultKey).(*model.EncodeResult); ok {
		info := &model.ProcessingInfo{
			EncodeOutcome:    encode.Outcome,
			InputSizeBytes:   encode.InputSizeBytes,
			PayloadSizeBytes: encode.OutputSizeBytes,
			CompressionRatio: encode.CompressionRatio,
			EncodeNote:       encode.Note,
		}
		if decision, ok := context.Get(TransportKey).(*model.TransportDecision); ok {
			info.Transport = decision.Kind
			info.PayloadSizeBytes = decision.SizeBytes
		}
		doc.ProcessingInfo = info
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), doc)
}
