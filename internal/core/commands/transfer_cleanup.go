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
// command that removes the staged transfer object once the model calls are
// done. Local temp files are cleaned separately by the chain context.
package commands

import (
	"log"

	"cloud.google.com/go/storage"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/cor"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/model"
)

// TransferCleanup deletes the transfer-bucket object staged for a
// reference-transport run.
type TransferCleanup struct {
	cor.BaseCommand
	client *storage.Client
}

// NewTransferCleanup is the constructor for the TransferCleanup command.
func NewTransferCleanup(name string, client *storage.Client) *TransferCleanup {
	return &TransferCleanup{BaseCommand: *cor.NewBaseCommand(name), client: client}
}

// IsExecutable runs only when a staged reference exists to delete.
func (c *TransferCleanup) IsExecutable(context cor.Context) bool {
	if context == nil {
		return false
	}
	decision, ok := context.Get(TransportKey).(*model.TransportDecision)
	return ok && decision.Reference != nil
}

// Execute deletes the staged object. A failed delete is logged and counted
// but never fails the job: the object ages out with the bucket's lifecycle
// policy.
func (c *TransferCleanup) Execute(context cor.Context) {
	decision := context.Get(TransportKey).(*model.TransportDecision)
	ref := decision.Reference

	err := c.client.Bucket(ref.Bucket).Object(ref.Object).Delete(context.GetContext())
	if err != nil {
		log.Printf("failed to delete transfer object %s: %v\n", ref.URI(), err)
		c.GetErrorCounter().Add(context.GetContext(), 1)
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	log.Printf("removed transfer object %s", ref.URI())
}
