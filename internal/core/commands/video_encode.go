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
// conditional transcode stage.
//
// Logic Flow:
// The command delegates the size rules to the media.Encoder: small inputs
// and missing-ffmpeg hosts pass the source through untouched, everything
// else is re-encoded. Transcode progress milestones stream into the job
// store so the progress endpoint shows movement during long encodes.
package commands

import (
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/cor"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/media"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/model"
)

// VideoEncode conditionally transcodes the localized source file.
type VideoEncode struct {
	cor.BaseCommand
	encoder *media.Encoder
	jobs    ProgressReporter
}

// NewVideoEncode is the constructor for the VideoEncode command.
func NewVideoEncode(name string, encoder *media.Encoder, jobs ProgressReporter) *VideoEncode {
	return &VideoEncode{BaseCommand: *cor.NewBaseCommand(name), encoder: encoder, jobs: jobs}
}

// Execute prepares the payload file and emits its path for the transport
// stage. The full encode outcome travels under the encode result key.
func (c *VideoEncode) Execute(context cor.Context) {
	path := context.Get(c.GetInputParam()).(string)
	info := context.Get(VideoInfoKey).(*model.VideoInfo)

	var progress media.ProgressFunc
	if job, ok := context.Get(JobKey).(*model.Job); ok && c.jobs != nil {
		jobID := job.ID
		progress = func(percent int) {
			c.jobs.UpdateProgress(jobID, "transcoding", percent)
		}
	}

	result, err := c.encoder.Prepare(context.GetContext(), path, info, progress)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	// A transcode produced a new temp file that must be cleaned up after the
	// run. Copy-through outcomes reuse the source file, which the localizer
	// already tracks when it owns the file.
	if result.Outcome == model.OutcomeTranscoded {
		context.AddTempFile(result.OutputPath)
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(EncodeResultKey, result)
	context.Add(c.GetOutputParam(), result.OutputPath)
}
