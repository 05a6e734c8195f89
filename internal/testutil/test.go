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

// Package test provides shared helpers for the test suite: environment setup
// pointing the config loader at the test overlay, a cached test config, and
// canned storage-notification payloads for the ingestion tests.
package test

import (
	"log"
	"os"
	"testing"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/cloud"
)

// StateManager caches the loaded configuration so the TOML files are read
// once per test run.
type StateManager struct {
	config *cloud.Config
}

var state = &StateManager{}

// HandleErr fails the test when err is set.
func HandleErr(err error, t *testing.T) {
	if err != nil {
		t.Errorf("Error reading config file: %v", err)
	}
}

// GetTestUploadMessageText returns the storage notification emitted when a
// video is finalized in the upload bucket, as the ingestion trigger sees it.
func GetTestUploadMessageText() string {
	return `{
  "kind": "storage#object",
  "id": "video-upload-inbox/site-survey-001.mp4/1728615848664286",
  "selfLink": "https://www.googleapis.com/storage/v1/b/video-upload-inbox/o/site-survey-001.mp4",
  "name": "site-survey-001.mp4",
  "bucket": "video-upload-inbox",
  "generation": "1728615848664286",
  "metageneration": "1",
  "contentType": "video/mp4",
  "timeCreated": "2024-10-11T03:04:08.672Z",
  "updated": "2024-10-11T03:04:08.672Z",
  "storageClass": "STANDARD",
  "timeStorageClassUpdated": "2024-10-11T03:04:08.672Z",
  "size": "259348037",
  "md5Hash": "67c1rAU+1RYZzK5zp8iBkA==",
  "mediaLink": "https://storage.googleapis.com/download/storage/v1/b/video-upload-inbox/o/site-survey-001.mp4?generation=1728615848664286&alt=media",
  "metadata": { "touch": "18" },
  "crc32c": "IYeSTw==",
  "etag": "CN658+yrhYkDEAE="
	}`
}

// GetTestSidecarMessageText returns a notification for a non-video sidecar
// file landing in the upload bucket. Ingestion must consume it without
// creating a job.
func GetTestSidecarMessageText() string {
	return `{
  "kind": "storage#object",
  "id": "video-upload-inbox/site-survey-001.json/1728615848664300",
  "name": "site-survey-001.json",
  "bucket": "video-upload-inbox",
  "contentType": "application/json",
  "size": "2048"
}
`
}

// SetupOS points the config loader at the configs directory with the "test"
// overlay, so tests read `.env.toml` plus `.env.test.toml`.
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigRuntime, "test")
	return err
}

// GetConfig loads the test configuration on first use and returns the cached
// copy afterwards.
func GetConfig() *cloud.Config {
	if state.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(config)
		state.config = config
	}
	return state.config
}
