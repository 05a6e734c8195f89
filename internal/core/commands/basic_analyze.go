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
// basic analysis stage, which runs the three configured prompts against the
// video independently.
//
// Logic Flow:
// Each prompt gets its own model call over the same prepared payload. A
// failed prompt records an error row in its result instead of aborting the
// stage; the stage itself fails only when every prompt fails. That keeps a
// partially useful answer deliverable when one prompt hits a transient
// model error.
package commands

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/cloud"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/cor"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/model"
	"google.golang.org/genai"
)

// BasicAnalyze runs each configured basic prompt as an independent model call.
type BasicAnalyze struct {
	cor.BaseCommand
	config                   *cloud.Config
	generativeAIModel        *cloud.QuotaAwareGenerativeAIModel
	jobs                     ProgressReporter
	geminiInputTokenCounter  metric.Int64Counter
	geminiOutputTokenCounter metric.Int64Counter
	geminiRetryCounter       metric.Int64Counter
}

// NewBasicAnalyze is the constructor for the BasicAnalyze command.
func NewBasicAnalyze(
	name string,
	config *cloud.Config,
	generativeAIModel *cloud.QuotaAwareGenerativeAIModel,
	jobs ProgressReporter) *BasicAnalyze {

	out := &BasicAnalyze{
		BaseCommand:       *cor.NewBaseCommand(name),
		config:            config,
		generativeAIModel: generativeAIModel,
		jobs:              jobs}

	out.geminiInputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.input", out.GetName()))
	out.geminiOutputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.output", out.GetName()))
	out.geminiRetryCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.retry", out.GetName()))

	return out
}

// Execute runs every prompt and emits the collected per-prompt results.
func (c *BasicAnalyze) Execute(context cor.Context) {
	decision := context.Get(c.GetInputParam()).(*model.TransportDecision)

	var job *model.Job
	if j, ok := context.Get(JobKey).(*model.Job); ok {
		job = j
	}

	videoPart, err := buildVideoPart(&c.config.Limits, decision)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	prompts := c.config.PromptTemplates.BasicPrompts
	results := make([]*model.BasicPromptResult, 0, len(prompts))
	failures := 0
	for i, prompt := range prompts {
		if job != nil && c.jobs != nil {
			c.jobs.UpdateProgress(job.ID, "analyzing", i*100/len(prompts))
		}
		contents := []*genai.Content{
			{
				Parts: []*genai.Part{{Text: prompt}, videoPart},
				Role:  "user",
			},
		}
		out, err := cloud.GenerateMultiModalResponse(context.GetContext(), c.geminiInputTokenCounter, c.geminiOutputTokenCounter, c.geminiRetryCounter, 0, c.generativeAIModel, contents)
		if err != nil {
			failures++
			results = append(results, &model.BasicPromptResult{Prompt: prompt, Error: err.Error()})
			continue
		}
		results = append(results, &model.BasicPromptResult{Prompt: prompt, Response: out})
	}

	if failures == len(prompts) {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), &model.InferenceError{
			Model: c.generativeAIModel.ModelName,
			Err:   fmt.Errorf("all %d basic prompts failed", len(prompts)),
		})
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(BasicResultsKey, results)
	context.Add(c.GetOutputParam(), results)
}
