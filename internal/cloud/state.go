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
// This file assembles the shared client container. Every GCP connection the
// analyzer uses (storage buckets, the upload-notification subscription, the
// Vertex GenAI models, the BigQuery audit sink, and the IAM signer for
// preview URLs) is created once at startup and injected from here.
package cloud

import (
	"context"

	"cloud.google.com/go/bigquery"
	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"google.golang.org/genai"
)

// ServiceClients holds every external client the pipelines and HTTP layer
// share. One instance is built at startup and passed by pointer.
type ServiceClients struct {
	StorageClient  *storage.Client
	PubsubClient   *pubsub.Client
	GenAIClient    *genai.Client
	BigQueryClient *bigquery.Client
	IAMClient      *credentials.IamCredentialsClient
	// PubSubListeners is keyed by the logical subscription name from config.
	// Listeners are built without a command; the server attaches the
	// ingestion workflow once the dispatcher exists.
	PubSubListeners map[string]*PubSubListener
	// AgentModels maps the analysis and categorization model keys to their
	// quota-aware wrappers.
	AgentModels map[string]*QuotaAwareGenerativeAIModel
}

// Close releases every client connection. Useful in tests and controlled
// shutdowns; in the server the root context going away does the same job.
func (c *ServiceClients) Close() {
	_ = c.StorageClient.Close()
	_ = c.PubsubClient.Close()
	_ = c.BigQueryClient.Close()
	_ = c.IAMClient.Close()
}

// NewCloudServiceClients builds the full client container from config. Any
// client failing to initialize aborts startup; the analyzer cannot run with
// a partial set.
func NewCloudServiceClients(ctx context.Context, config *Config) (*ServiceClients, error) {
	sc, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}

	pc, err := pubsub.NewClient(ctx, config.Application.GoogleProjectId)
	if err != nil {
		return nil, err
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  config.Application.GoogleProjectId,
		Location: config.Application.GoogleLocation,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, err
	}

	bc, err := bigquery.NewClient(ctx, config.Application.GoogleProjectId)
	if err != nil {
		return nil, err
	}

	ic, err := credentials.NewIamCredentialsClient(ctx)
	if err != nil {
		return nil, err
	}

	subscriptions := make(map[string]*PubSubListener)
	for subKey, values := range config.TopicSubscriptions {
		listener, err := NewPubSubListener(pc, values.Name, nil)
		if err != nil {
			return nil, err
		}
		subscriptions[subKey] = listener
	}

	// Each configured agent model gets its own generation config and quota
	// wrapper. The categorization model's output format is application/json;
	// the analysis model stays text/plain.
	agentModels := make(map[string]*QuotaAwareGenerativeAIModel)
	for amKey, values := range config.AgentModels {
		generation := &genai.GenerateContentConfig{
			Temperature:       genai.Ptr[float32](values.Temperature),
			TopP:              genai.Ptr[float32](values.TopP),
			TopK:              genai.Ptr[float32](values.TopK),
			MaxOutputTokens:   values.MaxTokens,
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: values.SystemInstructions}}},
			SafetySettings:    DefaultSafetySettings,
			ResponseMIMEType:  values.OutputFormat,
			Tools:             []*genai.Tool{},
		}
		agentModels[amKey] = NewQuotaAwareModel(generation, values.Model, gc.Models, values.RateLimit)
	}

	return &ServiceClients{
		StorageClient:   sc,
		PubsubClient:    pc,
		GenAIClient:     gc,
		BigQueryClient:  bc,
		IAMClient:       ic,
		PubSubListeners: subscriptions,
		AgentModels:     agentModels,
	}, nil
}
