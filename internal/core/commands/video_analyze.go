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
// professional analysis stage, which sends the prepared video and an
// analysis prompt to the video-understanding model.
//
// Logic Flow:
//  1. Receives the completed transport decision from the context.
//  2. Builds the multi-modal request: the analysis prompt (either the
//     configured professional prompt or the job's custom prompt) plus the
//     video itself, as inline bytes or as a Cloud Storage file reference
//     depending on the decision.
//  3. Calls the model through the retrying, quota-aware helper and times
//     the call.
//  4. Emits the free-text analysis as the chain output and records a
//     RawAnalysis artifact with the timing and transport details.
package commands

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/cloud"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/cor"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/model"
	"google.golang.org/genai"
)

// VideoAnalyze runs the video-understanding model over the prepared payload.
type VideoAnalyze struct {
	cor.BaseCommand
	config                   *cloud.Config
	generativeAIModel        *cloud.QuotaAwareGenerativeAIModel
	jobs                     ProgressReporter
	geminiInputTokenCounter  metric.Int64Counter
	geminiOutputTokenCounter metric.Int64Counter
	geminiRetryCounter       metric.Int64Counter
}

// NewVideoAnalyze is the constructor for the VideoAnalyze command.
func NewVideoAnalyze(
	name string,
	config *cloud.Config,
	generativeAIModel *cloud.QuotaAwareGenerativeAIModel,
	jobs ProgressReporter) *VideoAnalyze {

	out := &VideoAnalyze{
		BaseCommand:       *cor.NewBaseCommand(name),
		config:            config,
		generativeAIModel: generativeAIModel,
		jobs:              jobs}

	out.geminiInputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.input", out.GetName()))
	out.geminiOutputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.output", out.GetName()))
	out.geminiRetryCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.retry", out.GetName()))

	return out
}

// Execute sends the analysis request and emits the model's free-text answer.
func (c *VideoAnalyze) Execute(context cor.Context) {
	decision := context.Get(c.GetInputParam()).(*model.TransportDecision)

	prompt := c.config.PromptTemplates.Professional
	var job *model.Job
	if j, ok := context.Get(JobKey).(*model.Job); ok {
		job = j
		if job.CustomPrompt != "" {
			prompt = job.CustomPrompt
		}
	}
	if job != nil && c.jobs != nil {
		c.jobs.UpdateProgress(job.ID, "analyzing", 0)
	}

	videoPart, err := buildVideoPart(&c.config.Limits, decision)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}
	contents := []*genai.Content{
		{
			Parts: []*genai.Part{{Text: prompt}, videoPart},
			Role:  "user",
		},
	}

	start := time.Now()
	out, err := cloud.GenerateMultiModalResponse(context.GetContext(), c.geminiInputTokenCounter, c.geminiOutputTokenCounter, c.geminiRetryCounter, 0, c.generativeAIModel, contents)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), &model.InferenceError{Model: c.generativeAIModel.ModelName, Err: err})
		return
	}

	raw := &model.RawAnalysis{
		Prompt:         prompt,
		Text:           out,
		ModelID:        c.generativeAIModel.ModelName,
		Transport:      decision.Kind,
		ElapsedSeconds: time.Since(start).Seconds(),
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(RawAnalysisKey, raw)
	context.Add(c.GetOutputParam(), out)
}
