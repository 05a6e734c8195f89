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
// Responsibility (COR) pattern's Command interface. This file defines the
// entry command of the upload-bucket ingestion workflow.
//
// Logic Flow:
// GCS publishes a notification message to a Pub/Sub topic when an object
// lands in the upload bucket. This command parses that message, drops
// anything that is not a supported video, and emits a simplified GCSObject
// for the job-creation step.
//
// A non-video object is not an error: the message is simply consumed
// without output, which ends the chain cleanly and acknowledges the
// notification. Upload buckets collect sidecar files (thumbnails,
// manifests) that must not spawn analysis jobs.
package commands

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/cloud"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/cor"
)

// StorageTriggerReader parses a GCS Pub/Sub notification and extracts the
// uploaded video's location into a simplified GCSObject.
type StorageTriggerReader struct {
	cor.BaseCommand
}

// NewStorageTriggerReader is the constructor for the StorageTriggerReader command.
func NewStorageTriggerReader(name string) *StorageTriggerReader {
	return &StorageTriggerReader{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute parses the notification and emits the GCSObject for video uploads.
func (c *StorageTriggerReader) Execute(context cor.Context) {
	in := context.Get(c.GetInputParam()).(string)

	var out cloud.GCSPubSubNotification
	err := json.Unmarshal([]byte(in), &out)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to unmarshal GCS notification: %w", err))
		return
	}

	if !cloud.IsSupportedVideoObject(out.Name) {
		// Consume quietly; only video uploads start jobs.
		log.Printf("ignoring non-video upload gs://%s/%s", out.Bucket, out.Name)
		c.GetSuccessCounter().Add(context.GetContext(), 1)
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)

	mimeType, _ := cloud.VideoMIMETypeForObject(out.Name)
	msg := &cloud.GCSObject{Bucket: out.Bucket, Name: out.Name, MIMEType: mimeType}

	context.Add(cloud.GetGCSObjectName(), msg)
	context.Add(c.GetOutputParam(), msg)
}
