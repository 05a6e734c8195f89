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
// categorization stage of the professional pipeline.
//
// Logic Flow:
// This is a text-only model call: it takes the free-text analysis produced
// by the previous stage, wraps it in the categorization prompt template
// (which carries a complete example document for few-shot guidance), and
// asks the categorization model to emit the structured JSON classification.
// The raw model text is passed forward; the next command owns JSON
// extraction and parsing.
package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"go.opentelemetry.io/otel/metric"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/cloud"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/cor"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/model"
)

// Categorizer asks the categorization model to classify a free-text
// analysis into the structured result schema.
type Categorizer struct {
	cor.BaseCommand
	config                   *cloud.Config
	generativeAIModel        *cloud.QuotaAwareGenerativeAIModel
	template                 *template.Template
	geminiInputTokenCounter  metric.Int64Counter
	geminiOutputTokenCounter metric.Int64Counter
	geminiRetryCounter       metric.Int64Counter
}

// NewCategorizer is the constructor for the Categorizer command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - config: The application's configuration object.
//   - generativeAIModel: The rate-limited wrapper for the categorization model.
//   - template: A parsed Go template for the categorization prompt.
func NewCategorizer(
	name string,
	config *cloud.Config,
	generativeAIModel *cloud.QuotaAwareGenerativeAIModel,
	template *template.Template) *Categorizer {

	out := &Categorizer{
		BaseCommand:       *cor.NewBaseCommand(name),
		config:            config,
		generativeAIModel: generativeAIModel,
		template:          template}

	out.geminiInputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.input", out.GetName()))
	out.geminiOutputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.output", out.GetName()))
	out.geminiRetryCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.retry", out.GetName()))

	return out
}

// GenerateParams creates the map of dynamic data injected into the prompt
// template: the analysis text to classify and a well-formed example of the
// target JSON document.
func (t *Categorizer) GenerateParams(analysis string) map[string]interface{} {
	params := make(map[string]interface{})
	params["ANALYSIS"] = analysis

	exampleResult, _ := json.Marshal(model.GetExampleCategorizedResult())
	params["EXAMPLE_JSON"] = string(exampleResult)
	return params
}

// Execute runs the categorization model over the analysis text.
func (t *Categorizer) Execute(context cor.Context) {
	analysis := context.Get(t.GetInputParam()).(string)

	var buffer bytes.Buffer
	err := t.template.Execute(&buffer, t.GenerateParams(analysis))
	if err != nil {
		t.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(t.GetName(), fmt.Errorf("failed to execute prompt template: %w", err))
		return
	}

	out, err := cloud.GenerateMultiModalResponse(context.GetContext(), t.geminiInputTokenCounter, t.geminiOutputTokenCounter, t.geminiRetryCounter, 0, t.generativeAIModel, cloud.NewTextPart(buffer.String()))
	if err != nil {
		t.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(t.GetName(), &model.InferenceError{Model: t.generativeAIModel.ModelName, Err: err})
		return
	}

	t.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(t.GetOutputParam(), out)
}
