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

// Package commands_test contains unit tests for the workflow commands.
// This file tests JSON extraction from model output and the parse-or-fallback
// behavior of the categorization decoder.
package commands_test

import (
	"context"
	"testing"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/commands"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/cor"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validCategorization is a model reply wrapped in chatter and a fenced block,
// the shape Gemini most often produces.
const validCategorization = "Here is the categorization you asked for:\n" +
	"```json\n" +
	`{
  "video_type": "site-work",
  "construction_info": {
    "work_type": ["excavation"],
    "equipment": [{"name": "excavator", "count": 1}],
    "filming_technique": ["drone aerial"]
  },
  "educational_info": null,
  "general_info": {"location": "quarry"},
  "confidence_score": 0.88,
  "summary": "An excavator works a quarry face."
}` + "\n```\nLet me know if you need anything else."

// TestExtractJSON verifies the three-step extraction precedence: fenced
// block, widest braced span, raw text.
func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "fenced block wins",
			in:   "noise {\"decoy\": 1} ```json\n{\"a\": 1}\n``` trailing",
			want: `{"a": 1}`,
		},
		{
			name: "unterminated fence runs to the end",
			in:   "```json\n{\"a\": 1}",
			want: `{"a": 1}`,
		},
		{
			name: "braced span without a fence",
			in:   "the result is {\"a\": {\"b\": 2}} as requested",
			want: `{"a": {"b": 2}}`,
		},
		{
			name: "plain text falls through trimmed",
			in:   "  no json here  ",
			want: "no json here",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, commands.ExtractJSON(tc.in))
		})
	}
}

// newChainContext builds a cor context primed with the given raw model output
// as the default input.
func newChainContext(raw string) cor.Context {
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(context.Background())
	chainCtx.Add(cor.CtxIn, raw)
	return chainCtx
}

// TestCategoryJSONToStructSuccess verifies that parsable output becomes a
// validated CategorizedResult under both the named key and the output key.
func TestCategoryJSONToStructSuccess(t *testing.T) {
	cmd := commands.NewCategoryJSONToStruct("category-json-to-struct")
	chainCtx := newChainContext(validCategorization)

	cmd.Execute(chainCtx)

	require.False(t, chainCtx.HasErrors())
	result, ok := chainCtx.Get(commands.CategorizedKey).(*model.CategorizedResult)
	require.True(t, ok)
	assert.Equal(t, model.VideoTypeSiteWork, result.VideoType)
	assert.Equal(t, 0.88, result.ConfidenceScore)
	require.NotNil(t, result.ConstructionInfo)
	assert.Equal(t, []string{"excavation"}, result.ConstructionInfo.WorkTypes)
	assert.Nil(t, chainCtx.Get(commands.FallbackKey))
	// The structured result is also the step output for the next command.
	assert.Equal(t, result, chainCtx.Get(cor.CtxOut))
}

// TestCategoryJSONToStructFallback verifies that unparsable output degrades
// to a fallback artifact without recording a chain error, so the job still
// completes with the raw analysis preserved.
func TestCategoryJSONToStructFallback(t *testing.T) {
	cmd := commands.NewCategoryJSONToStruct("category-json-to-struct")
	chainCtx := newChainContext("I could not produce JSON for this video, sorry.")

	cmd.Execute(chainCtx)

	assert.False(t, chainCtx.HasErrors())
	fallback, ok := chainCtx.Get(commands.FallbackKey).(*model.CategorizationFallback)
	require.True(t, ok)
	assert.Equal(t, "I could not produce JSON for this video, sorry.", fallback.RawOutput)
	assert.NotEmpty(t, fallback.ParseError)
	assert.Nil(t, chainCtx.Get(commands.CategorizedKey))
}

// TestCategoryJSONToStructSchemaViolation verifies that JSON which parses but
// breaks a structural invariant also takes the fallback path.
func TestCategoryJSONToStructSchemaViolation(t *testing.T) {
	cmd := commands.NewCategoryJSONToStruct("category-json-to-struct")
	// site-work without its required construction_info section.
	chainCtx := newChainContext(`{"video_type": "site-work", "confidence_score": 0.9}`)

	cmd.Execute(chainCtx)

	assert.False(t, chainCtx.HasErrors())
	fallback, ok := chainCtx.Get(commands.FallbackKey).(*model.CategorizationFallback)
	require.True(t, ok)
	assert.Contains(t, fallback.ParseError, "construction_info")
}
