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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files, along with the clients for Google Cloud services.
//
// This file centralizes every configurable parameter of the analyzer: the
// size limits that drive transcode and transport decisions, encoder settings,
// storage buckets, Vertex AI model definitions, prompt templates, Pub/Sub
// subscriptions, and the BigQuery result sink.
package cloud

import (
	"fmt"

	"google.golang.org/genai"
)

const bytesPerMB = int64(1024 * 1024)

// DefaultSafetySettings defines the default content safety thresholds for
// GenAI models. They are non-restrictive because the input footage is
// customer-owned and trusted.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// Limits is the single source of truth for every byte-size threshold in the
// pipeline. All call sites consume these accessors; no stage carries its own
// size literal.
type Limits struct {
	// NoTranscodeBelowMB: inputs at or under this size skip ffmpeg entirely.
	NoTranscodeBelowMB int64 `toml:"no_transcode_below_mb"`
	// InlineTransportBelowMB: prepared payloads under this size travel inline
	// in the model request; at or above it they go by storage reference.
	InlineTransportBelowMB int64 `toml:"inline_transport_below_mb"`
	// InlineHardCapMB: absolute ceiling for any inline payload regardless of
	// how the request was routed.
	InlineHardCapMB int64 `toml:"inline_hard_cap_mb"`
	// HardMaxMB: absolute ceiling for any source file. Larger inputs are
	// rejected before any work happens.
	HardMaxMB int64 `toml:"hard_max_mb"`
}

// NoTranscodeBelow returns the skip-transcode threshold in bytes.
func (l *Limits) NoTranscodeBelow() int64 { return l.NoTranscodeBelowMB * bytesPerMB }

// InlineTransportBelow returns the inline-transport threshold in bytes.
func (l *Limits) InlineTransportBelow() int64 { return l.InlineTransportBelowMB * bytesPerMB }

// InlineHardCap returns the inline payload ceiling in bytes.
func (l *Limits) InlineHardCap() int64 { return l.InlineHardCapMB * bytesPerMB }

// HardMax returns the source file ceiling in bytes.
func (l *Limits) HardMax() int64 { return l.HardMaxMB * bytesPerMB }

// Validate enforces that the thresholds are positive and monotone. It runs at
// startup so a misordered configuration can never reach a pipeline decision.
func (l *Limits) Validate() error {
	if l.NoTranscodeBelowMB <= 0 || l.InlineTransportBelowMB <= 0 || l.InlineHardCapMB <= 0 || l.HardMaxMB <= 0 {
		return fmt.Errorf("limits must all be positive: %+v", *l)
	}
	if l.NoTranscodeBelowMB > l.InlineTransportBelowMB {
		return fmt.Errorf("no_transcode_below_mb (%d) must not exceed inline_transport_below_mb (%d)",
			l.NoTranscodeBelowMB, l.InlineTransportBelowMB)
	}
	if l.InlineTransportBelowMB > l.InlineHardCapMB {
		return fmt.Errorf("inline_transport_below_mb (%d) must not exceed inline_hard_cap_mb (%d)",
			l.InlineTransportBelowMB, l.InlineHardCapMB)
	}
	if l.InlineHardCapMB > l.HardMaxMB {
		return fmt.Errorf("inline_hard_cap_mb (%d) must not exceed hard_max_mb (%d)",
			l.InlineHardCapMB, l.HardMaxMB)
	}
	return nil
}

// Encoder holds the ffmpeg/ffprobe settings used by the preparation stage.
type Encoder struct {
	FfmpegPath      string `toml:"ffmpeg_path"`
	FfprobePath     string `toml:"ffprobe_path"`
	TargetSizeMB    int64  `toml:"target_size_mb"`
	CRF             int    `toml:"crf"`
	Preset          string `toml:"preset"`
	MaxWidth        int    `toml:"max_width"`
	MaxHeight       int    `toml:"max_height"`
	AudioBitRateBps int64  `toml:"audio_bit_rate_bps"`
}

// TargetSizeBytes returns the transcode size target in bytes.
func (e *Encoder) TargetSizeBytes() int64 { return e.TargetSizeMB * bytesPerMB }

// Storage holds the Cloud Storage bucket configuration. UploadBucket receives
// browser uploads; TransferBucket stages prepared payloads that travel to the
// model by reference and is cleaned after each job.
type Storage struct {
	UploadBucket   string `toml:"upload_bucket"`
	TransferBucket string `toml:"transfer_bucket"`
}

// Output controls where finished result documents are written on disk.
type Output struct {
	Directory  string `toml:"directory"`
	FilePrefix string `toml:"file_prefix"`
}

// BigQueryDataSource names the dataset and table for the durable copy of
// completed results.
type BigQueryDataSource struct {
	DatasetName  string `toml:"dataset"`
	ResultsTable string `toml:"results_table"`
}

// PromptTemplates holds the prompt text for both pipelines. BasicPrompts must
// contain exactly three entries; basic mode runs each one independently.
type PromptTemplates struct {
	Professional   string   `toml:"professional"`
	Categorization string   `toml:"categorization"`
	BasicPrompts   []string `toml:"basic_prompts"`
}

// VertexAiLLMModel represents the configuration for one Vertex AI generative
// model, including its sampling parameters and rate limit.
type VertexAiLLMModel struct {
	Model              string  `toml:"model"`
	SystemInstructions string  `toml:"system_instructions"`
	Temperature        float32 `toml:"temperature"`
	TopP               float32 `toml:"top_p"`
	TopK               float32 `toml:"top_k"`
	MaxTokens          int32   `toml:"max_tokens"`
	OutputFormat       string  `toml:"output_format"`
	RateLimit          int     `toml:"rate_limit"`
}

// TopicSubscription represents the configuration for a Pub/Sub subscription.
type TopicSubscription struct {
	Name             string `toml:"name"`
	DeadLetterTopic  string `toml:"dead_letter_topic"`
	TimeoutInSeconds int    `toml:"timeout_in_seconds"`
}

// Config is the root configuration for the application, loaded from TOML
// files with environment-specific overlays.
type Config struct {
	Application struct {
		Name                      string `toml:"name"`
		GoogleProjectId           string `toml:"google_project_id"`
		GoogleLocation            string `toml:"location"`
		ThreadPoolSize            int    `toml:"thread_pool_size"`
		SignerServiceAccountEmail string `toml:"signer_service_account_email"`
		DefaultSampleURI          string `toml:"default_sample_uri"`
	} `toml:"application"`
	Limits             Limits                       `toml:"limits"`
	Encoder            Encoder                      `toml:"encoder"`
	Storage            Storage                      `toml:"storage"`
	Output             Output                       `toml:"output"`
	BigQueryDataSource BigQueryDataSource           `toml:"big_query_data_source"`
	PromptTemplates    PromptTemplates              `toml:"prompt_templates"`
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"`
	AgentModels        map[string]VertexAiLLMModel  `toml:"agent_models"`
}

// Validate checks the portions of the configuration whose misconfiguration
// would otherwise surface mid-job: limit ordering, the basic prompt count,
// and the presence of both model definitions.
func (c *Config) Validate() error {
	if err := c.Limits.Validate(); err != nil {
		return err
	}
	if n := len(c.PromptTemplates.BasicPrompts); n != 3 {
		return fmt.Errorf("prompt_templates.basic_prompts requires exactly 3 entries, found %d", n)
	}
	for _, key := range []string{AnalysisModelKey, CategorizationModelKey} {
		if _, ok := c.AgentModels[key]; !ok {
			return fmt.Errorf("agent_models missing required definition %q", key)
		}
	}
	if c.Application.ThreadPoolSize <= 0 {
		return fmt.Errorf("application.thread_pool_size must be positive, found %d", c.Application.ThreadPoolSize)
	}
	return nil
}

// Logical names of the two models every deployment must define.
const (
	AnalysisModelKey       = "video-analysis"
	CategorizationModelKey = "categorization"
)

// NewConfig creates an initialized Config. The maps must be non-nil before
// the TOML loader populates them.
func NewConfig() *Config {
	return &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		AgentModels:        make(map[string]VertexAiLLMModel),
	}
}
