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
// This file tests the parsing of upload-bucket notifications.
package commands_test

import (
	"testing"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/cloud"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/commands"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/cor"
	test "github.com/seohyun-lee/gcp-go-video-analyzer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStorageTriggerReaderVideoUpload verifies that a video notification is
// parsed into a GCSObject carrying the derived MIME type.
func TestStorageTriggerReaderVideoUpload(t *testing.T) {
	cmd := commands.NewStorageTriggerReader("storage-trigger-reader")
	chainCtx := newChainContext(test.GetTestUploadMessageText())

	cmd.Execute(chainCtx)

	require.False(t, chainCtx.HasErrors())
	obj, ok := chainCtx.Get(cloud.GetGCSObjectName()).(*cloud.GCSObject)
	require.True(t, ok)
	assert.Equal(t, "video-upload-inbox", obj.Bucket)
	assert.Equal(t, "site-survey-001.mp4", obj.Name)
	assert.Equal(t, "video/mp4", obj.MIMEType)
	assert.Equal(t, "gs://video-upload-inbox/site-survey-001.mp4", obj.URI())
}

// TestStorageTriggerReaderIgnoresSidecar verifies that a non-video upload is
// consumed without output and without an error, so the chain ends and the
// notification is acknowledged.
func TestStorageTriggerReaderIgnoresSidecar(t *testing.T) {
	cmd := commands.NewStorageTriggerReader("storage-trigger-reader")
	chainCtx := newChainContext(test.GetTestSidecarMessageText())

	cmd.Execute(chainCtx)

	assert.False(t, chainCtx.HasErrors())
	assert.Nil(t, chainCtx.Get(cloud.GetGCSObjectName()))
	assert.Nil(t, chainCtx.Get(cor.CtxOut))
}

// TestStorageTriggerReaderRejectsMalformedMessage verifies that an
// unparsable payload records a chain error so the message is nacked and
// redelivered.
func TestStorageTriggerReaderRejectsMalformedMessage(t *testing.T) {
	cmd := commands.NewStorageTriggerReader("storage-trigger-reader")
	chainCtx := newChainContext("this is not a notification")

	cmd.Execute(chainCtx)

	assert.True(t, chainCtx.HasErrors())
}
