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

// Package media_test contains unit tests for the video preparation package.
// This file tests the parsing of ffprobe's JSON output.
package media_test

import (
	"testing"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleProbeOutput is a trimmed ffprobe -print_format json capture of an
// H.264 clip. The trailing mjpeg stream mimics an attached cover image and
// must lose to the first video stream.
const sampleProbeOutput = `{
  "streams": [
    {
      "codec_type": "video",
      "codec_name": "h264",
      "width": 1920,
      "height": 1080,
      "avg_frame_rate": "30000/1001"
    },
    {
      "codec_type": "audio",
      "codec_name": "aac"
    },
    {
      "codec_type": "video",
      "codec_name": "mjpeg",
      "width": 600,
      "height": 600,
      "avg_frame_rate": "0/0"
    }
  ],
  "format": {
    "duration": "125.480000",
    "bit_rate": "8000000"
  }
}`

// TestParseProbeOutput verifies the field extraction rules: duration and
// bitrate from the format block, dimensions and frame rate from the first
// video stream, and the caller-supplied size.
func TestParseProbeOutput(t *testing.T) {
	info, err := media.ParseProbeOutput([]byte(sampleProbeOutput), 123_456_789)
	require.NoError(t, err)

	assert.Equal(t, int64(123_456_789), info.SizeBytes)
	assert.InDelta(t, 125.48, info.DurationSeconds, 0.001)
	assert.Equal(t, int64(8_000_000), info.BitRate)
	assert.Equal(t, "h264", info.VideoCodec)
	assert.Equal(t, "aac", info.AudioCodec)
	assert.Equal(t, 1920, info.Width)
	assert.Equal(t, 1080, info.Height)
	// 30000/1001 is NTSC 29.97.
	assert.InDelta(t, 29.97, info.FrameRate, 0.01)
}

// TestParseProbeOutputRejectsMissingDuration verifies that a probe document
// without a usable duration is an error rather than a zero-duration video.
func TestParseProbeOutputRejectsMissingDuration(t *testing.T) {
	doc := `{
	  "streams": [{"codec_type": "video", "codec_name": "h264", "width": 640, "height": 360}],
	  "format": {}
	}`
	_, err := media.ParseProbeOutput([]byte(doc), 100)
	assert.Error(t, err)
}

// TestParseProbeOutputRejectsAudioOnly verifies that a file with only audio
// streams is rejected. Audio files sniff as valid containers and carry a
// duration, so without this rule they would reach the model with zero
// dimensions.
func TestParseProbeOutputRejectsAudioOnly(t *testing.T) {
	doc := `{
	  "streams": [{"codec_type": "audio", "codec_name": "aac"}],
	  "format": {"duration": "60.000000", "bit_rate": "128000"}
	}`
	_, err := media.ParseProbeOutput([]byte(doc), 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no video stream")
}

// TestParseProbeOutputRejectsGarbage verifies that non-JSON input reports a
// parse error.
func TestParseProbeOutputRejectsGarbage(t *testing.T) {
	_, err := media.ParseProbeOutput([]byte("not json at all"), 100)
	assert.Error(t, err)
}
