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
// This file implements the dispatcher: a fixed pool of workers that pulls
// queued jobs off a channel and runs the pipeline matching each job's mode.
//
// Logic Flow:
//  1. HTTP handlers (or the upload-bucket listener) create a job in the
//     store and Submit it to the dispatcher.
//  2. A worker picks the job up, transitions it to running, and executes
//     the basic or professional chain with a fresh chain context.
//  3. On success the result document lands in the result store and the job
//     completes; on failure the job fails with the first recorded error.
//  4. Temp files tracked during the run are removed when the chain context
//     closes, success or not.
package workflow

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/cor"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/model"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/services"
)

// DefaultQueueDepth bounds how many jobs can wait for a worker before
// submissions are rejected.
const DefaultQueueDepth = 32

// Dispatcher fans queued jobs out to a fixed pool of pipeline workers.
type Dispatcher struct {
	jobs         *services.JobStore
	results      *services.ResultStore
	professional cor.Command
	basic        cor.Command
	queue        chan *model.Job
	workers      int
	wg           sync.WaitGroup
}

// NewDispatcher creates a dispatcher with the given worker count. Workers do
// not start until Run is called.
func NewDispatcher(
	jobs *services.JobStore,
	results *services.ResultStore,
	professional cor.Command,
	basic cor.Command,
	workers int) *Dispatcher {

	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{
		jobs:         jobs,
		results:      results,
		professional: professional,
		basic:        basic,
		queue:        make(chan *model.Job, DefaultQueueDepth),
		workers:      workers,
	}
}

// Run starts the worker pool. Workers exit when ctx is canceled; Wait blocks
// until they have drained.
func (d *Dispatcher) Run(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// Wait blocks until every worker has exited.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Submit queues a job for execution. It fails fast when the queue is full
// rather than blocking an HTTP handler.
func (d *Dispatcher) Submit(job *model.Job) error {
	select {
	case d.queue <- job:
		return nil
	default:
		return fmt.Errorf("analysis queue is full (%d pending)", cap(d.queue))
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-d.queue:
			d.process(ctx, job)
		}
	}
}

// process runs one job through the pipeline matching its mode.
func (d *Dispatcher) process(ctx context.Context, job *model.Job) {
	if err := d.jobs.Start(job.ID); err != nil {
		log.Printf("job %s could not start: %v", job.ID, err)
		return
	}

	var pipeline cor.Command
	switch job.Mode {
	case model.ModeProfessional:
		pipeline = d.professional
	case model.ModeBasic:
		pipeline = d.basic
	default:
		_ = d.jobs.Fail(job.ID, fmt.Sprintf("unknown analysis mode %q", job.Mode))
		return
	}

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	chainCtx.Add(cor.CtxIn, job)
	defer chainCtx.Close()

	pipeline.Execute(chainCtx)

	if chainCtx.HasErrors() {
		for name, err := range chainCtx.GetErrors() {
			log.Printf("job %s failed at %s: %v", job.ID, name, err)
			_ = d.jobs.Fail(job.ID, err.Error())
			return
		}
	}

	doc, ok := chainCtx.Get(cor.CtxOut).(*model.ResultDocument)
	if !ok {
		_ = d.jobs.Fail(job.ID, "pipeline finished without a result document")
		return
	}

	d.results.Put(doc)
	if err := d.jobs.Complete(job.ID); err != nil {
		log.Printf("job %s could not complete: %v", job.ID, err)
	}
}
