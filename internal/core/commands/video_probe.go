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
// probe stage, which extracts technical metadata from the localized source
// file before the transcode decision.
package commands

import (
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/cor"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/media"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/model"
)

// VideoProbe runs ffprobe against the chain's current file and records the
// parsed metadata for the encode and transport stages.
type VideoProbe struct {
	cor.BaseCommand
	prober *media.Prober
	jobs   ProgressReporter
}

// NewVideoProbe is the constructor for the VideoProbe command.
func NewVideoProbe(name string, prober *media.Prober, jobs ProgressReporter) *VideoProbe {
	return &VideoProbe{BaseCommand: *cor.NewBaseCommand(name), prober: prober, jobs: jobs}
}

// Execute probes the file and passes the path through to the encode stage.
// The metadata travels out-of-band under the video info key.
func (c *VideoProbe) Execute(context cor.Context) {
	path := context.Get(c.GetInputParam()).(string)
	if job, ok := context.Get(JobKey).(*model.Job); ok && c.jobs != nil {
		c.jobs.UpdateProgress(job.ID, "probing", 0)
	}

	info, err := c.prober.Probe(context.GetContext(), path)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(VideoInfoKey, info)
	context.Add(c.GetOutputParam(), path)
}
