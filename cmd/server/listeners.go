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

// Package main contains the logic for setting up and starting the Pub/Sub
// message listeners. These listeners initiate backend processing in response
// to events, such as new video uploads to the watched Cloud Storage bucket.
//
// Functions:
//   - SetupListeners: Initializes and starts the upload-bucket listener,
//     attaching the ingestion workflow that queues professional analysis jobs.
package main

import (
	"context"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/cloud"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/workflow"
)

// uploadTopicKey is the logical name of the upload-bucket subscription in the
// topic_subscriptions configuration table.
const uploadTopicKey = "UploadTopic"

// SetupListeners configures and starts the background Pub/Sub listeners.
// It attaches the upload-ingestion workflow to the upload-bucket listener so
// that every supported video dropped into the bucket is analyzed without a
// client having to call the API.
//
// Inputs:
//   - config: The application's configuration, containing the subscription table.
//   - cloudClients: A struct containing all the initialized Google Cloud service clients.
//   - ctx: The application's root context, used to manage the lifecycle of the listeners.
func SetupListeners(config *cloud.Config, cloudClients *cloud.ServiceClients, ctx context.Context) {
	if _, ok := config.TopicSubscriptions[uploadTopicKey]; !ok {
		// Bucket-watch ingestion is optional; the API surface works without it.
		return
	}

	ingestion := workflow.NewUploadIngestionWorkflow(state.jobs, state.dispatcher)
	cloudClients.PubSubListeners[uploadTopicKey].SetCommand(ingestion)
	cloudClients.PubSubListeners[uploadTopicKey].Listen(ctx)
}
