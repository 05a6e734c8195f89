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

// Package workflow defines the high-level business logic orchestrations.
// This file implements the upload-bucket ingestion workflow: when GCS
// notifies that a video landed in the upload bucket, a professional-mode
// job is created for it and queued on the dispatcher. The Pub/Sub listener
// acks the notification once the job is queued; the analysis itself runs
// asynchronously in the worker pool.
package workflow

import (
	"log"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/cloud"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/commands"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/cor"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/model"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/services"
)

// UploadIngestionWorkflow turns upload-bucket notifications into queued
// analysis jobs.
type UploadIngestionWorkflow struct {
	cor.BaseCommand
	chain cor.Chain
}

// Execute runs the ingestion chain for one notification message.
func (w *UploadIngestionWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// NewUploadIngestionWorkflow builds the ingestion workflow.
func NewUploadIngestionWorkflow(jobs *services.JobStore, dispatcher *Dispatcher) *UploadIngestionWorkflow {
	out := &UploadIngestionWorkflow{BaseCommand: *cor.NewBaseCommand("upload-ingestion-workflow")}

	chain := cor.NewBaseChain(out.GetName())
	chain.AddCommand(commands.NewStorageTriggerReader("storage-trigger-reader"))
	chain.AddCommand(newEnqueueJob("enqueue-job", jobs, dispatcher))
	out.chain = chain

	return out
}

// enqueueJob creates a professional-mode job for an uploaded video and hands
// it to the dispatcher.
type enqueueJob struct {
	cor.BaseCommand
	jobs       *services.JobStore
	dispatcher *Dispatcher
}

func newEnqueueJob(name string, jobs *services.JobStore, dispatcher *Dispatcher) *enqueueJob {
	return &enqueueJob{BaseCommand: *cor.NewBaseCommand(name), jobs: jobs, dispatcher: dispatcher}
}

// Execute registers and queues the job. A full queue is an error so the
// notification is redelivered later instead of being dropped.
func (c *enqueueJob) Execute(context cor.Context) {
	obj := context.Get(c.GetInputParam()).(*cloud.GCSObject)

	job := model.NewJob(model.ModeProfessional)
	job.SourceURI = obj.URI()
	c.jobs.Create(job)

	if err := c.dispatcher.Submit(job); err != nil {
		_ = c.jobs.Fail(job.ID, err.Error())
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	log.Printf("queued job %s for %s", job.ID, job.SourceURI)
	context.Add(c.GetOutputParam(), job)
}
