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
// Responsibility (COR) pattern's Command interface. This file converts the
// categorization model's raw text into the structured result type.
//
// Logic Flow:
// Model output is rarely bare JSON: it may arrive inside a ```json fence,
// surrounded by prose, or malformed. Extraction tries, in order:
//  1. The contents of a ```json fenced block.
//  2. The span from the first '{' to the last '}' in the text.
//  3. The whole text as-is.
//
// A parse or validation failure is not fatal to the job. The command
// records a fallback artifact carrying the raw output and the parse error,
// and the result document ships with that fallback in place of the
// structured classification.
package commands

import (
	"encoding/json"
	"strings"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/cor"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/model"
)

// CategoryJSONToStruct parses categorization model output into a
// CategorizedResult, degrading to a fallback artifact when it cannot.
type CategoryJSONToStruct struct {
	cor.BaseCommand
}

// NewCategoryJSONToStruct is the constructor for the CategoryJSONToStruct command.
func NewCategoryJSONToStruct(name string) *CategoryJSONToStruct {
	return &CategoryJSONToStruct{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute extracts and parses the category JSON. On success the structured
// result travels forward; on failure a fallback artifact does, and the
// chain continues either way.
func (c *CategoryJSONToStruct) Execute(context cor.Context) {
	raw := context.Get(c.GetInputParam()).(string)

	extracted := ExtractJSON(raw)
	result := &model.CategorizedResult{}
	err := json.Unmarshal([]byte(extracted), result)
	if err == nil {
		err = result.Validate()
	}
	if err != nil {
		// Degrade, don't fail: the analysis text is still valuable even when
		// the classification did not parse.
		fallback := &model.CategorizationFallback{
			Error:      "failed to parse categorization output",
			RawOutput:  raw,
			ParseError: err.Error(),
		}
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.Add(FallbackKey, fallback)
		context.Add(c.GetOutputParam(), fallback)
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(CategorizedKey, result)
	context.Add(c.GetOutputParam(), result)
}

// ExtractJSON locates the JSON document inside model output text.
func ExtractJSON(raw string) string {
	// Fenced block first: the span between a ```json marker and the next ```.
	if idx := strings.Index(raw, "```json"); idx >= 0 {
		rest := raw[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}
	// Then the widest braced span.
	first := strings.Index(raw, "{")
	last := strings.LastIndex(raw, "}")
	if first >= 0 && last > first {
		return raw[first : last+1]
	}
	// Finally the text itself, letting the JSON parser report the problem.
	return strings.TrimSpace(raw)
}
