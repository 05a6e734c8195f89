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
// This file tests the bitrate and resolution math that sizes a transcode.
package media_test

import (
	"context"
	"testing"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/cloud"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/media"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encoderLimits is a threshold set with a 30 MB transcode skip line, matching
// the shipped defaults.
func encoderLimits() *cloud.Limits {
	return &cloud.Limits{
		NoTranscodeBelowMB:     30,
		InlineTransportBelowMB: 36,
		InlineHardCapMB:        100,
		HardMaxMB:              2048,
	}
}

// TestPrepareCopiesSmallInput verifies that an input at or under the
// no-transcode threshold passes through untouched: same path out, identical
// sizes, and a compression ratio of exactly 1.0. No ffmpeg is needed.
func TestPrepareCopiesSmallInput(t *testing.T) {
	enc := media.NewEncoder(&cloud.Encoder{}, encoderLimits())
	info := &model.VideoInfo{
		SizeBytes:       10 * 1024 * 1024,
		DurationSeconds: 30,
		BitRate:         2_000_000,
		Width:           1280,
		Height:          720,
	}

	var lastPercent int
	result, err := enc.Prepare(context.Background(), "/videos/small.mp4", info, func(p int) { lastPercent = p })
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeCopiedSmallInput, result.Outcome)
	assert.Equal(t, "/videos/small.mp4", result.OutputPath)
	assert.Equal(t, info.SizeBytes, result.InputSizeBytes)
	assert.Equal(t, info.SizeBytes, result.OutputSizeBytes)
	assert.Equal(t, 1.0, result.CompressionRatio)
	assert.Equal(t, 100, lastPercent)
}

// TestPrepareCopiesWhenToolMissing verifies the degrade path: an input above
// the threshold with no resolvable ffmpeg binary passes through with a note
// instead of failing the job. The transport stage still enforces its caps.
func TestPrepareCopiesWhenToolMissing(t *testing.T) {
	cfg := &cloud.Encoder{FfmpegPath: "/nonexistent/ffmpeg"}
	enc := media.NewEncoder(cfg, encoderLimits())
	info := &model.VideoInfo{
		SizeBytes:       40 * 1024 * 1024,
		DurationSeconds: 120,
		BitRate:         4_000_000,
		Width:           1920,
		Height:          1080,
	}

	result, err := enc.Prepare(context.Background(), "/videos/large.mp4", info, nil)
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeCopiedNoTool, result.Outcome)
	assert.Equal(t, "/videos/large.mp4", result.OutputPath)
	assert.Equal(t, 1.0, result.CompressionRatio)
	assert.NotEmpty(t, result.Note)
}

// TestTargetVideoBitRate verifies that the target bitrate spends the byte
// budget over the duration and leaves room for the audio track.
func TestTargetVideoBitRate(t *testing.T) {
	// 30 MB over 60 seconds is 4,194,304 bits per second; minus 128 kbps
	// audio leaves 4,066,304 bps for video.
	targetBytes := int64(30 * 1024 * 1024)
	got := media.TargetVideoBitRate(targetBytes, 60, 128_000)
	assert.Equal(t, int64(4_066_304), got)
}

// TestTargetVideoBitRateFloor verifies that absurdly long videos still get
// the minimum usable video bitrate rather than a negative one.
func TestTargetVideoBitRateFloor(t *testing.T) {
	// 1 MB over an hour leaves nothing after audio; the floor applies.
	got := media.TargetVideoBitRate(1024*1024, 3600, 128_000)
	assert.Equal(t, media.MinVideoBitRate, got)
}

// TestFitResolution verifies the downscale-only resolution fitting.
func TestFitResolution(t *testing.T) {
	cases := []struct {
		name          string
		width, height int
		wantW, wantH  int
	}{
		// A source already inside the box is left alone, signalled by (0, 0).
		{"already fits", 640, 360, 0, 0},
		{"exact fit", 854, 480, 0, 0},
		// 1920x1080 is height-bound: it scales by 480/1080 to 853x480, and 853
		// rounds down to the even 852.
		{"full hd", 1920, 1080, 852, 480},
		// A 4:3 source: 1440x1080 scales by 480/1080 to 640x480.
		{"four by three", 1440, 1080, 640, 480},
		// A portrait source is sharply width-limited by the landscape box.
		{"vertical video", 1080, 1920, 270, 480},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, h := media.FitResolution(tc.width, tc.height, 854, 480)
			assert.Equal(t, tc.wantW, w)
			assert.Equal(t, tc.wantH, h)
		})
	}
}
