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
// This file tests the local-path half of the source localizer; the gs://
// download half needs a live bucket and is exercised by the workflow
// integration run.
package commands_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/cloud"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/commands"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/cor"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mp4Magic is a minimal ftyp box carrying the isom brand, enough for the
// content sniffer to recognize an MP4 container.
var mp4Magic = []byte{
	0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p',
	'i', 's', 'o', 'm', 0x00, 0x00, 0x02, 0x00,
	'i', 's', 'o', 'm', 'i', 's', 'o', '2',
}

func localizerLimits() *cloud.Limits {
	return &cloud.Limits{
		NoTranscodeBelowMB:     30,
		InlineTransportBelowMB: 36,
		InlineHardCapMB:        100,
		HardMaxMB:              2048,
	}
}

// writeSourceFile drops content under a temp directory that t cleans up.
func writeSourceFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

// localizerContext primes a chain context with the job as the default input.
func localizerContext(job *model.Job) cor.Context {
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(context.Background())
	chainCtx.Add(cor.CtxIn, job)
	return chainCtx
}

// TestSourceLocalizerAcceptsLocalPath verifies that a job carrying a local
// file path is validated in place: the job lands under the shared job key and
// the path becomes the chain output for the probe stage. No storage client is
// touched.
func TestSourceLocalizerAcceptsLocalPath(t *testing.T) {
	path := writeSourceFile(t, "clip.mp4", mp4Magic)
	job := model.NewJob(model.ModeProfessional)
	job.SourcePath = path

	cmd := commands.NewSourceLocalizer("source-localizer", nil, localizerLimits())
	chainCtx := localizerContext(job)
	defer chainCtx.Close()

	cmd.Execute(chainCtx)

	require.False(t, chainCtx.HasErrors())
	assert.Equal(t, path, chainCtx.Get(cmd.GetOutputParam()))
	stored, ok := chainCtx.Get(commands.JobKey).(*model.Job)
	require.True(t, ok)
	assert.Equal(t, job.ID, stored.ID)
}

// TestSourceLocalizerRejectsNonVideoContent verifies that a local file with a
// video extension but non-video bytes records a validation error.
func TestSourceLocalizerRejectsNonVideoContent(t *testing.T) {
	path := writeSourceFile(t, "clip.mp4", []byte("plain text, not a container"))
	job := model.NewJob(model.ModeProfessional)
	job.SourcePath = path

	cmd := commands.NewSourceLocalizer("source-localizer", nil, localizerLimits())
	chainCtx := localizerContext(job)
	defer chainCtx.Close()

	cmd.Execute(chainCtx)

	require.True(t, chainCtx.HasErrors())
	assert.True(t, hasValidationError(chainCtx))
}

// TestSourceLocalizerRejectsUnsupportedExtension verifies the extension
// allow-list applies to local submissions too.
func TestSourceLocalizerRejectsUnsupportedExtension(t *testing.T) {
	path := writeSourceFile(t, "notes.txt", mp4Magic)
	job := model.NewJob(model.ModeProfessional)
	job.SourcePath = path

	cmd := commands.NewSourceLocalizer("source-localizer", nil, localizerLimits())
	chainCtx := localizerContext(job)
	defer chainCtx.Close()

	cmd.Execute(chainCtx)

	require.True(t, chainCtx.HasErrors())
	assert.True(t, hasValidationError(chainCtx))
}

func hasValidationError(chainCtx cor.Context) bool {
	for _, err := range chainCtx.GetErrors() {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			return true
		}
	}
	return false
}
