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

// Package cloud provides components for interacting with Google Cloud services.
// This file holds the support pieces the rest of the package leans on: the
// hierarchical TOML config loader, the retrying GenAI call helper, and the
// factories for the multimodal request parts (text, inline video bytes, and
// gs:// file references).
package cloud

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"go.opentelemetry.io/otel/metric"

	"github.com/BurntSushi/toml"
	"google.golang.org/genai"
)

const (
	ConfigFileBaseName  = ".env"
	ConfigFileExtension = ".toml"
	ConfigSeparator     = "."
	// EnvConfigFilePrefix names the env var holding the config directory.
	EnvConfigFilePrefix = "GCP_CONFIG_PREFIX"
	// EnvConfigRuntime names the env var selecting the runtime overlay
	// ("local", "test", "prod").
	EnvConfigRuntime = "GCP_RUNTIME"
	// MaxRetries caps retried model calls per request.
	MaxRetries = 3
)

func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// LoadConfig populates baseConfig from the base TOML file, then overlays the
// runtime-specific file on top so environment files only carry their deltas.
// The directory comes from GCP_CONFIG_PREFIX and the overlay suffix from
// GCP_RUNTIME, defaulting to "test".
func LoadConfig(baseConfig interface{}) {
	prefix := os.Getenv(EnvConfigFilePrefix)
	if len(prefix) > 0 && !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix = prefix + string(os.PathSeparator)
	}

	runtimeEnvironment := os.Getenv(EnvConfigRuntime)
	if runtimeEnvironment == "" {
		runtimeEnvironment = "test"
	}

	baseConfigFileName := prefix + ConfigFileBaseName + ConfigFileExtension
	fmt.Printf("Base Configuration File: %s\n", baseConfigFileName)

	envConfigFileName := prefix + ConfigFileBaseName + ConfigSeparator + runtimeEnvironment + ConfigFileExtension
	fmt.Printf("Environment Configuration File: %s\n", envConfigFileName)

	if fileExists(baseConfigFileName) {
		if _, err := toml.DecodeFile(baseConfigFileName, baseConfig); err != nil {
			log.Fatalf("failed to decode base configuration file %s with error: %s", baseConfigFileName, err)
		}
	}

	// Overlay values win over base values.
	if fileExists(envConfigFileName) {
		if _, err := toml.DecodeFile(envConfigFileName, baseConfig); err != nil {
			log.Fatalf("failed to decode environment configuration file: %s with error: %s", envConfigFileName, err)
		}
	}
}

// GenerateMultiModalResponse runs one prompt against a quota-aware model with
// up to MaxRetries retries, recording token usage and retry counts on the
// supplied counters. The returned string is the concatenated candidate text
// exactly as the model produced it; callers expecting JSON apply their own
// extraction. tryCount seeds the attempt number and is 0 at every call site.
func GenerateMultiModalResponse(
	ctx context.Context,
	inputTokenCounter metric.Int64Counter,
	outputTokenCounter metric.Int64Counter,
	retryCounter metric.Int64Counter,
	tryCount int,
	model *QuotaAwareGenerativeAIModel,
	content []*genai.Content) (string, error) {

	var resp *genai.GenerateContentResponse
	var err error
	for attempt := tryCount; attempt <= MaxRetries; attempt++ {
		resp, err = model.GenerateContent(ctx, content)
		if err == nil {
			break
		}
		if attempt == MaxRetries {
			return "", err
		}
		retryCounter.Add(ctx, 1)
	}

	inputTokenCounter.Add(ctx, int64(resp.UsageMetadata.PromptTokenCount))
	outputTokenCounter.Add(ctx, int64(resp.UsageMetadata.CandidatesTokenCount))

	// A response can carry multiple candidates and parts; flatten them all.
	var value strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			value.WriteString(part.Text)
		}
	}
	return value.String(), nil
}

// NewTextPart builds the text content for a prompt.
func NewTextPart(in string) []*genai.Content {
	return genai.Text(in)
}

// NewFileData builds the reference part for a video that travels to the
// model by Cloud Storage URI.
func NewFileData(in string, mimeType string) genai.FileData {
	return genai.FileData{FileURI: in, MIMEType: mimeType}
}

// NewInlineData builds the inline part for a video small enough to travel
// inside the request itself.
func NewInlineData(data []byte, mimeType string) genai.Blob {
	return genai.Blob{Data: data, MIMEType: mimeType}
}
