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
// This file decorates the GenAI client with quota awareness. Vertex AI
// enforces per-minute request quotas, and both pipeline model stages (video
// analysis and categorization) funnel their calls through this wrapper so a
// burst of jobs queues on the limiter instead of burning quota on rejected
// requests. Retries live one layer up, in GenerateMultiModalResponse, where
// the retry counter is recorded.
package cloud

import (
	"context"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// QuotaAwareGenerativeAIModel decorates a GenAI model handle with a rate
// limiter. ModelName is deliberately exported and mutable: the runtime config
// endpoint patches it to swap models without a restart, and the next call
// picks up the new id.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig
	ModelName               string
	ModelHandle             *genai.Models
	RateLimit               rate.Limiter
}

// NewQuotaAwareModel wraps a model handle with a limiter allowing
// requestsPerSecond calls in a burst, refilled one per second.
func NewQuotaAwareModel(wrapped *genai.GenerateContentConfig, name string, handle *genai.Models, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	return &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: wrapped,
		ModelName:               name,
		ModelHandle:             handle,
		RateLimit:               *rate.NewLimiter(rate.Every(time.Second), requestsPerSecond),
	}
}

// GenerateContent blocks on the rate limiter until a slot is free, then makes
// one call against the wrapped model. Context cancellation aborts the wait.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	if err := q.RateLimit.Wait(ctx); err != nil {
		return nil, err
	}
	return q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.GenerativeContentConfig)
}
