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
// pipeline. This file holds the media-preparation types: probe results,
// transcode outcomes, and the transport decision that determines how a video
// payload travels to the analysis model.
package model

// VideoInfo is the normalized result of probing a video file with ffprobe.
type VideoInfo struct {
	DurationSeconds float64 `json:"duration_seconds"`
	SizeBytes       int64   `json:"size_bytes"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	BitRate         int64   `json:"bit_rate"`
	VideoCodec      string  `json:"video_codec"`
	AudioCodec      string  `json:"audio_codec,omitempty"`
	FrameRate       float64 `json:"frame_rate,omitempty"`
}

// EncodeOutcome tags how the preparation stage produced its output file.
type EncodeOutcome string

const (
	// OutcomeTranscoded means ffmpeg re-encoded the input toward the target size.
	OutcomeTranscoded EncodeOutcome = "transcoded"
	// OutcomeCopiedSmallInput means the input was already at or under the
	// no-transcode threshold and was passed through untouched.
	OutcomeCopiedSmallInput EncodeOutcome = "copied_small_input"
	// OutcomeCopiedNoTool means ffmpeg is not installed; the original file was
	// passed through and the degradation recorded.
	OutcomeCopiedNoTool EncodeOutcome = "copied_no_tool"
)

// EncodeResult describes the output of the preparation stage. Exactly one
// outcome applies; CompressionRatio is 1.0 for both copy-through outcomes.
type EncodeResult struct {
	Outcome          EncodeOutcome `json:"outcome"`
	OutputPath       string        `json:"output_path"`
	InputSizeBytes   int64         `json:"input_size_bytes"`
	OutputSizeBytes  int64         `json:"output_size_bytes"`
	CompressionRatio float64       `json:"compression_ratio"`
	VideoBitRate     int64         `json:"video_bit_rate,omitempty"`
	Width            int           `json:"width,omitempty"`
	Height           int           `json:"height,omitempty"`
	Note             string        `json:"note,omitempty"`
}

// TransportKind says how the prepared payload is delivered to the analysis
// model: embedded in the request body or referenced by storage URI.
type TransportKind string

const (
	TransportInline    TransportKind = "inline"
	TransportReference TransportKind = "reference"
)

// MediaReference identifies a video object in Cloud Storage, plus the
// metadata needed to use it as a model input. OwnerProjectHint carries the
// caller-supplied project that owns the bucket; it is echoed on outbound
// reference requests.
type MediaReference struct {
	Bucket           string `json:"bucket"`
	Object           string `json:"object"`
	MIMEType         string `json:"mime_type"`
	SizeBytes        int64  `json:"size_bytes,omitempty"`
	OwnerProjectHint string `json:"owner_project_hint,omitempty"`
}

// URI renders the reference in gs:// form.
func (r *MediaReference) URI() string {
	return "gs://" + r.Bucket + "/" + r.Object
}

// TransportDecision is the resolved delivery plan for one analysis call.
// Exactly one of LocalPath (inline) or Reference (reference) is meaningful.
type TransportDecision struct {
	Kind      TransportKind   `json:"kind"`
	SizeBytes int64           `json:"size_bytes"`
	LocalPath string          `json:"-"`
	Reference *MediaReference `json:"reference,omitempty"`
}
