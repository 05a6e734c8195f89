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
// command that stages reference-transport payloads in the transfer bucket.
//
// Logic Flow:
// The command only acts on reference-transport decisions; inline decisions
// pass through untouched. For a reference decision it streams the prepared
// local file into the transfer bucket under an object name derived from the
// job ID, then completes the decision with the resulting gs:// reference.
// The transfer object is temporary and is removed by the cleanup stage after
// the model call.
package commands

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/cloud"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/cor"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/model"
)

// TransferUpload stages a prepared payload in the transfer bucket when the
// transport decision calls for a storage reference.
type TransferUpload struct {
	cor.BaseCommand
	client *storage.Client
	bucket string
}

// NewTransferUpload is the constructor for the TransferUpload command.
func NewTransferUpload(name string, client *storage.Client, bucket string) *TransferUpload {
	return &TransferUpload{BaseCommand: *cor.NewBaseCommand(name), client: client, bucket: bucket}
}

// Execute uploads the payload for reference transport and completes the
// decision. Inline decisions are forwarded unchanged.
func (c *TransferUpload) Execute(context cor.Context) {
	decision := context.Get(c.GetInputParam()).(*model.TransportDecision)

	if decision.Kind != model.TransportReference {
		context.Add(c.GetOutputParam(), decision)
		return
	}

	objectName := decision.LocalPath
	if job, ok := context.Get(JobKey).(*model.Job); ok {
		objectName = job.ID + filepath.Ext(decision.LocalPath)
	} else {
		objectName = filepath.Base(objectName)
	}
	mimeType, ok := cloud.VideoMIMETypeForObject(objectName)
	if !ok {
		mimeType = "video/mp4"
	}

	dat, err := os.Open(decision.LocalPath)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to open payload %s: %w", decision.LocalPath, err))
		return
	}
	defer func() { _ = dat.Close() }()

	obj := c.client.Bucket(c.bucket).Object(objectName)
	writer := obj.NewWriter(context.GetContext())
	writer.ContentType = mimeType

	if written, err := c.streamAndClose(writer, dat); err != nil {
		log.Printf("failed to upload payload to GCS, %d bytes written: %v\n", written, err)
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	decision.Reference = &model.MediaReference{
		Bucket:    c.bucket,
		Object:    objectName,
		MIMEType:  mimeType,
		SizeBytes: decision.SizeBytes,
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	log.Printf("staged payload at %s", decision.Reference.URI())
	context.Add(c.GetOutputParam(), decision)
}

// streamAndClose copies the payload into the GCS writer and closes it. The
// close error matters: an unclosed or failed writer means the object was
// never finalized.
func (c *TransferUpload) streamAndClose(writer *storage.Writer, dat *os.File) (int64, error) {
	written, err := io.Copy(writer, dat)
	if err != nil {
		_ = writer.Close()
		return written, err
	}
	if err := writer.Close(); err != nil {
		return written, fmt.Errorf("failed to finalize GCS object: %w", err)
	}
	return written, nil
}
