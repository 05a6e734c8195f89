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

// Package model defines the core data structures for the video analysis
// pipeline. This file holds the analysis outputs: the raw model response, the
// structured categorization schema, and the final result document returned to
// clients and written to disk.
package model

import (
	"time"
)

// Video type values the categorization model must choose from.
const (
	VideoTypeSiteWork    = "site-work"
	VideoTypeEducational = "educational"
	VideoTypeOther       = "other"
)

// RawAnalysis is the unstructured output of one video-analysis model call.
type RawAnalysis struct {
	Prompt         string        `json:"prompt"`
	Text           string        `json:"text"`
	ModelID        string        `json:"model_id"`
	Transport      TransportKind `json:"transport"`
	ElapsedSeconds float64       `json:"elapsed_seconds"`
}

// EquipmentCount records one piece of heavy equipment seen on a site-work
// video and how many were visible.
type EquipmentCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ConstructionInfo is populated only when the video type is site-work.
type ConstructionInfo struct {
	WorkTypes        []string         `json:"work_type"`
	Equipment        []EquipmentCount `json:"equipment"`
	FilmingTechnique []string         `json:"filming_technique"`
}

// EducationalInfo is populated only when the video type is educational.
type EducationalInfo struct {
	ContentType     string `json:"content_type"`
	SubtitleContent string `json:"subtitle_content,omitempty"`
	SlideContent    string `json:"slide_content,omitempty"`
}

// GeneralInfo holds fields that apply to every video type.
type GeneralInfo struct {
	Location     string   `json:"location,omitempty"`
	TimeOfDay    string   `json:"time_of_day,omitempty"`
	Weather      string   `json:"weather,omitempty"`
	MainSubjects []string `json:"main_subjects,omitempty"`
}

// CategorizedResult is the structured categorization of a raw analysis.
// Section pointers are nil (explicit JSON null) when they do not apply to the
// detected video type; Validate enforces that coupling.
type CategorizedResult struct {
	VideoType        string            `json:"video_type"`
	ConstructionInfo *ConstructionInfo `json:"construction_info"`
	EducationalInfo  *EducationalInfo  `json:"educational_info"`
	GeneralInfo      *GeneralInfo      `json:"general_info"`
	ConfidenceScore  float64           `json:"confidence_score"`
	Summary          string            `json:"summary"`
}

// Validate checks the structural invariants of a categorized result: a known
// video type, a confidence score in [0, 1], and type-specific sections present
// exactly when their type is detected.
func (c *CategorizedResult) Validate() error {
	switch c.VideoType {
	case VideoTypeSiteWork:
		if c.ConstructionInfo == nil {
			return &ValidationError{Field: "construction_info", Reason: "required for site-work videos"}
		}
		if c.EducationalInfo != nil {
			return &ValidationError{Field: "educational_info", Reason: "must be null for site-work videos"}
		}
	case VideoTypeEducational:
		if c.EducationalInfo == nil {
			return &ValidationError{Field: "educational_info", Reason: "required for educational videos"}
		}
		if c.ConstructionInfo != nil {
			return &ValidationError{Field: "construction_info", Reason: "must be null for educational videos"}
		}
	case VideoTypeOther:
		if c.ConstructionInfo != nil || c.EducationalInfo != nil {
			return &ValidationError{Field: "video_type", Reason: "type-specific sections must be null for other videos"}
		}
	default:
		return &ValidationError{Field: "video_type", Reason: "unknown video type " + c.VideoType}
	}
	if c.ConfidenceScore < 0 || c.ConfidenceScore > 1 {
		return &ValidationError{Field: "confidence_score", Reason: "must be within [0, 1]"}
	}
	return nil
}

// CategorizationFallback preserves a model response that could not be parsed
// into the structured schema. The job still completes; clients see the raw
// output together with the parse error.
type CategorizationFallback struct {
	Error      string `json:"error"`
	RawOutput  string `json:"raw_output"`
	ParseError string `json:"parse_error"`
}

// BasicPromptResult is one prompt/response pair from a basic-mode run. Error
// is set instead of Response when that prompt's call failed.
type BasicPromptResult struct {
	Prompt   string `json:"prompt"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ProfessionalResult couples the raw analysis with its categorization.
// Exactly one of Categorized or Fallback is set.
type ProfessionalResult struct {
	RawAnalysis *RawAnalysis            `json:"raw_analysis"`
	Categorized *CategorizedResult      `json:"categorized,omitempty"`
	Fallback    *CategorizationFallback `json:"categorization_fallback,omitempty"`
}

// AnalysisSession describes the run that produced a result document.
type AnalysisSession struct {
	Timestamp           time.Time `json:"timestamp"`
	SourceURI           string    `json:"source_uri"`
	AnalysisModel       string    `json:"analysis_model"`
	CategorizationModel string    `json:"categorization_model,omitempty"`
	Location            string    `json:"location"`
	CustomPromptUsed    bool      `json:"custom_prompt_used"`
	Mode                string    `json:"mode"`
}

// ProcessingInfo summarizes how the payload was prepared and delivered.
type ProcessingInfo struct {
	Transport        TransportKind `json:"transport"`
	EncodeOutcome    EncodeOutcome `json:"encode_outcome"`
	InputSizeBytes   int64         `json:"input_size_bytes"`
	PayloadSizeBytes int64         `json:"payload_size_bytes"`
	CompressionRatio float64       `json:"compression_ratio"`
	EncodeNote       string        `json:"encode_note,omitempty"`
}

// ResultDocument is the complete artifact of a finished job: session metadata,
// the mode-specific results, and the processing summary. It is rendered as
// UTF-8 JSON with two-space indentation and non-ASCII characters preserved.
type ResultDocument struct {
	JobID           string               `json:"job_id"`
	AnalysisSession AnalysisSession      `json:"analysis_session"`
	BasicResults    []*BasicPromptResult `json:"basic_results,omitempty"`
	Professional    *ProfessionalResult  `json:"professional_result,omitempty"`
	ProcessingInfo  *ProcessingInfo      `json:"processing_info,omitempty"`
}
