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

// Package model defines the core data structures for the video analysis
// pipeline. This file holds the error taxonomy shared by every stage so that
// callers can distinguish recoverable conditions (degrade and continue) from
// terminal ones (fail the job) with errors.Is and errors.As.
package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions callers branch on.
var (
	// ErrNotFound indicates a job, file, or result id that is unknown to the
	// store.
	ErrNotFound = errors.New("not found")

	// ErrToolUnavailable indicates that an external binary (ffmpeg, ffprobe)
	// is not installed on the host. Transcoding degrades to a copy-through;
	// probing fails the stage.
	ErrToolUnavailable = errors.New("external tool unavailable")

	// ErrJobTerminal indicates an attempt to transition a job that already
	// reached a terminal state.
	ErrJobTerminal = errors.New("job already in a terminal state")
)

// ProbeError wraps failures while inspecting a video with ffprobe.
type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe failed for %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// TranscodeError wraps a non-recoverable ffmpeg failure. A missing ffmpeg
// binary is deliberately not a TranscodeError; that path degrades to a
// copy-through instead.
type TranscodeError struct {
	Path string
	Err  error
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("transcode failed for %s: %v", e.Path, e.Err)
}

func (e *TranscodeError) Unwrap() error { return e.Err }

// ValidationError describes a rejected input: a malformed storage URI, a
// disallowed extension, or an object that fails its existence or size checks.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// PayloadTooLargeError is returned before any model call is attempted when a
// prepared payload exceeds the configured hard ceiling.
type PayloadTooLargeError struct {
	SizeBytes int64
	MaxBytes  int64
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("payload of %d bytes exceeds hard limit of %d bytes", e.SizeBytes, e.MaxBytes)
}

// InferenceError wraps a transport or service failure from a generative model
// call after retries are exhausted.
type InferenceError struct {
	Model string
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed on model %s: %v", e.Model, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// CategorizationParseError records a categorization response that could not
// be parsed into the structured schema. It is non-fatal: the pipeline keeps
// the raw output and completes the job with a degraded result.
type CategorizationParseError struct {
	RawOutput string
	Err       error
}

func (e *CategorizationParseError) Error() string {
	return fmt.Sprintf("could not parse categorization output: %v", e.Err)
}

func (e *CategorizationParseError) Unwrap() error { return e.Err }
