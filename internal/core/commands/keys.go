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
// Responsibility (COR) pattern's Command interface for the video analysis
// pipeline. This file defines the well-known context keys that commands use
// to share artifacts beyond the chain's primary input/output piping.
package commands

// Context keys for out-of-band artifacts. Each stage writes its artifact
// under a well-known key so later stages (result assembly in particular) can
// read everything the run produced without depending on chain order.
const (
	JobKey          = "__JOB__"           // *model.Job being processed.
	VideoInfoKey    = "__VIDEO_INFO__"    // *model.VideoInfo from the probe stage.
	EncodeResultKey = "__ENCODE_RESULT__" // *model.EncodeResult from the transcode stage.
	TransportKey    = "__TRANSPORT__"     // *model.TransportDecision from the selection stage.
	RawAnalysisKey  = "__RAW_ANALYSIS__"  // *model.RawAnalysis from the analysis stage.
	CategorizedKey  = "__CATEGORIZED__"   // *model.CategorizedResult from the categorization stage.
	FallbackKey     = "__FALLBACK__"      // *model.CategorizationFallback when category JSON did not parse.
	BasicResultsKey = "__BASIC_RESULTS__" // []*model.BasicPromptResult from the basic pipeline.
)

// ProgressReporter receives stage and percent updates for a job while a
// pipeline runs. The in-memory job store implements it; commands depend only
// on this interface.
type ProgressReporter interface {
	UpdateProgress(jobID string, stage string, percent int)
}
