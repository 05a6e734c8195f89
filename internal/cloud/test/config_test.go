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

// Package cloud_test contains unit tests for the cloud configuration and
// helpers. This file tests the size limit validation and the whole-config
// validation that runs at startup.
package cloud_test

import (
	"testing"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/cloud"
	"github.com/stretchr/testify/assert"
)

// validLimits returns the default production thresholds.
func validLimits() cloud.Limits {
	return cloud.Limits{
		NoTranscodeBelowMB:     30,
		InlineTransportBelowMB: 36,
		InlineHardCapMB:        100,
		HardMaxMB:              2048,
	}
}

// TestLimitsByteAccessors verifies the MB-to-byte conversions.
func TestLimitsByteAccessors(t *testing.T) {
	limits := validLimits()
	assert.Equal(t, int64(30*1024*1024), limits.NoTranscodeBelow())
	assert.Equal(t, int64(36*1024*1024), limits.InlineTransportBelow())
	assert.Equal(t, int64(100*1024*1024), limits.InlineHardCap())
	assert.Equal(t, int64(2048*1024*1024), limits.HardMax())
}

// TestLimitsValidate verifies the positivity and ordering rules.
func TestLimitsValidate(t *testing.T) {
	limits := validLimits()
	assert.NoError(t, limits.Validate())

	mutations := []struct {
		name   string
		mutate func(l *cloud.Limits)
	}{
		{"zero threshold", func(l *cloud.Limits) { l.NoTranscodeBelowMB = 0 }},
		{"negative ceiling", func(l *cloud.Limits) { l.HardMaxMB = -1 }},
		{"transcode above inline", func(l *cloud.Limits) { l.NoTranscodeBelowMB = 50 }},
		{"inline above cap", func(l *cloud.Limits) { l.InlineTransportBelowMB = 150 }},
		{"cap above hard max", func(l *cloud.Limits) { l.InlineHardCapMB = 4096 }},
	}
	for _, tc := range mutations {
		t.Run(tc.name, func(t *testing.T) {
			broken := validLimits()
			tc.mutate(&broken)
			assert.Error(t, broken.Validate())
		})
	}
}

// validConfig builds the smallest configuration that passes Validate.
func validConfig() *cloud.Config {
	config := cloud.NewConfig()
	config.Limits = validLimits()
	config.Application.ThreadPoolSize = 2
	config.PromptTemplates.BasicPrompts = []string{"a", "b", "c"}
	config.AgentModels[cloud.AnalysisModelKey] = cloud.VertexAiLLMModel{Model: "gemini-2.0-flash"}
	config.AgentModels[cloud.CategorizationModelKey] = cloud.VertexAiLLMModel{Model: "gemini-2.0-flash"}
	return config
}

// TestConfigValidate verifies the startup checks for prompts, models, and
// worker count.
func TestConfigValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	twoPrompts := validConfig()
	twoPrompts.PromptTemplates.BasicPrompts = []string{"a", "b"}
	assert.Error(t, twoPrompts.Validate())

	noCategorization := validConfig()
	delete(noCategorization.AgentModels, cloud.CategorizationModelKey)
	assert.Error(t, noCategorization.Validate())

	noWorkers := validConfig()
	noWorkers.Application.ThreadPoolSize = 0
	assert.Error(t, noWorkers.Validate())
}

// TestEncoderTargetSizeBytes verifies the transcode target conversion.
func TestEncoderTargetSizeBytes(t *testing.T) {
	encoder := cloud.Encoder{TargetSizeMB: 30}
	assert.Equal(t, int64(30*1024*1024), encoder.TargetSizeBytes())
}
