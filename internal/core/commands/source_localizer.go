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
// first command of every analysis pipeline: turning a job's source, whether
// a local path or a gs:// URI, into a validated local file.
//
// Logic Flow:
//  1. Receives the `model.Job` from the context and stashes it under the
//     well-known job key for every later stage.
//  2. Local sources are validated in place. Cloud sources are parsed,
//     checked against the bucket, and streamed down to a temp file.
//  3. The file must carry a supported video extension, sniff as video
//     content, and sit under the configured hard maximum size.
//  4. The local path becomes the chain output for the probe stage.
package commands

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/h2non/filetype"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/cloud"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/cor"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/media"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/model"
)

const downloadTempPrefix = "video-source-"

// SourceLocalizer resolves a job's source video to a validated local file.
type SourceLocalizer struct {
	cor.BaseCommand
	client *storage.Client
	limits *cloud.Limits
}

// NewSourceLocalizer is the constructor for the SourceLocalizer command.
func NewSourceLocalizer(name string, client *storage.Client, limits *cloud.Limits) *SourceLocalizer {
	return &SourceLocalizer{BaseCommand: *cor.NewBaseCommand(name), client: client, limits: limits}
}

// Execute resolves the job source and emits the local file path.
func (c *SourceLocalizer) Execute(context cor.Context) {
	job := context.Get(c.GetInputParam()).(*model.Job)
	context.Add(JobKey, job)

	localPath := job.SourcePath
	if localPath == "" {
		downloaded, err := c.download(context, job.SourceURI)
		if err != nil {
			c.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(c.GetName(), err)
			return
		}
		localPath = downloaded
	}

	if err := c.validate(localPath); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), localPath)
}

// download streams a gs:// source into a local temp file, mirroring the
// object's extension so the encoder sees the right container hint.
func (c *SourceLocalizer) download(context cor.Context, uri string) (string, error) {
	obj, err := cloud.ParseStorageURI(uri)
	if err != nil {
		return "", err
	}
	handle := c.client.Bucket(obj.Bucket).Object(obj.Name)

	attrs, err := handle.Attrs(context.GetContext())
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", obj.URI(), err)
	}
	if err := media.ValidateSourceSize(attrs.Size, c.limits); err != nil {
		return "", err
	}

	reader, err := handle.NewReader(context.GetContext())
	if err != nil {
		return "", fmt.Errorf("failed to create reader for %s: %w", obj.URI(), err)
	}
	defer func(reader *storage.Reader) {
		if err := reader.Close(); err != nil {
			log.Printf("failed to close GCS reader: %v\n", err)
		}
	}(reader)

	tempFile, err := os.CreateTemp("", downloadTempPrefix+"*"+filepath.Ext(obj.Name))
	if err != nil {
		return "", fmt.Errorf("could not create temp file: %w", err)
	}
	written, err := io.Copy(tempFile, reader)
	_ = tempFile.Close()
	if err != nil {
		return "", fmt.Errorf("failed to copy %s to local file, %d bytes written: %w", obj.URI(), written, err)
	}

	log.Printf("downloaded %s to %s (%d bytes)", obj.URI(), tempFile.Name(), written)
	context.AddTempFile(tempFile.Name())
	return tempFile.Name(), nil
}

// validate confirms the local file exists, carries a supported video
// extension, sniffs as video content, and sits under the hard maximum.
func (c *SourceLocalizer) validate(path string) error {
	stat, err := os.Stat(path)
	if err != nil {
		return &model.ValidationError{Field: "source", Reason: fmt.Sprintf("cannot stat %s: %v", path, err)}
	}
	if err := media.ValidateSourceSize(stat.Size(), c.limits); err != nil {
		return err
	}
	if !cloud.IsSupportedVideoObject(path) {
		return &model.ValidationError{Field: "source", Reason: fmt.Sprintf("unsupported video extension on %s", filepath.Base(path))}
	}

	file, err := os.Open(path)
	if err != nil {
		return &model.ValidationError{Field: "source", Reason: fmt.Sprintf("cannot open %s: %v", path, err)}
	}
	defer func() { _ = file.Close() }()

	head := make([]byte, 261)
	n, err := file.Read(head)
	if err != nil && err != io.EOF {
		return &model.ValidationError{Field: "source", Reason: fmt.Sprintf("cannot read %s: %v", path, err)}
	}
	if !filetype.IsVideo(head[:n]) {
		return &model.ValidationError{Field: "source", Reason: fmt.Sprintf("%s does not contain video content", filepath.Base(path))}
	}
	return nil
}
