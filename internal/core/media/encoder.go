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

// This file implements the conditional transcode stage. Small inputs skip
// ffmpeg entirely, a missing ffmpeg binary degrades to copy-through instead
// of failing the job, and everything else is re-encoded to H.264/AAC sized
// against the configured target.
package media

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"time"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/cloud"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/model"
)

// MinVideoBitRate is the floor for the computed video bit rate in bits per
// second. Very long inputs would otherwise drive the rate below what H.264
// can encode legibly.
const MinVideoBitRate = int64(100_000)

const encoderTempPrefix = "video-encode-"

// ProgressFunc receives synthetic progress checkpoints in the range [0,100]
// while a transcode runs. A nil ProgressFunc is valid and ignored.
type ProgressFunc func(percent int)

// Encoder performs the conditional transcode. It owns no job state; callers
// pass one file in and receive one prepared file out.
type Encoder struct {
	cfg    *cloud.Encoder
	limits *cloud.Limits
}

// NewEncoder creates an Encoder bound to the configured limits and ffmpeg
// settings.
func NewEncoder(cfg *cloud.Encoder, limits *cloud.Limits) *Encoder {
	return &Encoder{cfg: cfg, limits: limits}
}

// Available reports whether the ffmpeg binary can be resolved.
func (e *Encoder) Available() bool {
	path := e.cfg.FfmpegPath
	if path == "" {
		path = "ffmpeg"
	}
	_, err := exec.LookPath(path)
	return err == nil
}

// Prepare produces the payload that will travel to the model.
//
// Logic Flow:
//  1. Inputs at or under the no-transcode limit pass through untouched.
//  2. If ffmpeg is not installed, the input passes through with a note
//     instead of failing. The transport stage still enforces its caps.
//  3. Otherwise the input is re-encoded with a bit rate computed from the
//     configured target size and the probed duration, downscaled to fit the
//     configured resolution ceiling.
//
// Progress milestones are synthetic: they advance on wall-clock checkpoints
// while ffmpeg runs, not on parsed encoder output.
func (e *Encoder) Prepare(ctx context.Context, inputPath string, info *model.VideoInfo, progress ProgressFunc) (*model.EncodeResult, error) {
	report := func(percent int) {
		if progress != nil {
			progress(percent)
		}
	}
	report(0)

	if info.SizeBytes <= e.limits.NoTranscodeBelow() {
		report(100)
		return &model.EncodeResult{
			Outcome:          model.OutcomeCopiedSmallInput,
			OutputPath:       inputPath,
			InputSizeBytes:   info.SizeBytes,
			OutputSizeBytes:  info.SizeBytes,
			CompressionRatio: 1.0,
			VideoBitRate:     info.BitRate,
			Width:            info.Width,
			Height:           info.Height,
		}, nil
	}

	if !e.Available() {
		report(100)
		return &model.EncodeResult{
			Outcome:          model.OutcomeCopiedNoTool,
			OutputPath:       inputPath,
			InputSizeBytes:   info.SizeBytes,
			OutputSizeBytes:  info.SizeBytes,
			CompressionRatio: 1.0,
			VideoBitRate:     info.BitRate,
			Width:            info.Width,
			Height:           info.Height,
			Note:             "ffmpeg not found, sending source as-is",
		}, nil
	}

	videoBitRate := TargetVideoBitRate(e.cfg.TargetSizeBytes(), info.DurationSeconds, e.cfg.AudioBitRateBps)
	width, height := FitResolution(info.Width, info.Height, e.cfg.MaxWidth, e.cfg.MaxHeight)

	tempFile, err := os.CreateTemp("", encoderTempPrefix+"*.mp4")
	if err != nil {
		return nil, &model.TranscodeError{Path: inputPath, Err: err}
	}
	_ = tempFile.Close()
	outputPath := tempFile.Name()

	args := e.buildArgs(inputPath, outputPath, videoBitRate, width, height)
	cmd := exec.CommandContext(ctx, e.ffmpegPath(), args...)
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		_ = os.Remove(outputPath)
		return nil, &model.TranscodeError{Path: inputPath, Err: err}
	}

	// Advance synthetic milestones from 10 to 90 while ffmpeg works, then
	// jump to 95 on completion and 100 once the output is verified.
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	percent := 0
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
waiting:
	for {
		select {
		case err = <-done:
			break waiting
		case <-ticker.C:
			if percent < 90 {
				percent += 10
				report(percent)
			}
		}
	}
	if err != nil {
		_ = os.Remove(outputPath)
		return nil, &model.TranscodeError{Path: inputPath, Err: fmt.Errorf("error running ffmpeg: %w", err)}
	}
	report(95)

	stat, err := os.Stat(outputPath)
	if err != nil {
		return nil, &model.TranscodeError{Path: inputPath, Err: err}
	}
	report(100)

	return &model.EncodeResult{
		Outcome:          model.OutcomeTranscoded,
		OutputPath:       outputPath,
		InputSizeBytes:   info.SizeBytes,
		OutputSizeBytes:  stat.Size(),
		CompressionRatio: float64(info.SizeBytes) / float64(stat.Size()),
		VideoBitRate:     videoBitRate,
		Width:            width,
		Height:           height,
	}, nil
}

func (e *Encoder) ffmpegPath() string {
	if e.cfg.FfmpegPath != "" {
		return e.cfg.FfmpegPath
	}
	return "ffmpeg"
}

// buildArgs assembles the ffmpeg invocation: H.264 at the computed rate with
// a 2x bufsize, optional downscale, AAC audio, and a faststart container so
// the moov atom leads the file.
func (e *Encoder) buildArgs(inputPath, outputPath string, videoBitRate int64, width, height int) []string {
	args := []string{
		"-y",
		"-i", inputPath,
		"-c:v", "libx264",
		"-preset", e.cfg.Preset,
		"-crf", fmt.Sprintf("%d", e.cfg.CRF),
		"-maxrate", fmt.Sprintf("%d", videoBitRate),
		"-bufsize", fmt.Sprintf("%d", videoBitRate*2),
	}
	if width > 0 && height > 0 {
		args = append(args, "-vf", fmt.Sprintf("scale=%d:%d", width, height))
	}
	args = append(args,
		"-c:a", "aac",
		"-b:a", fmt.Sprintf("%d", e.cfg.AudioBitRateBps),
		"-movflags", "+faststart",
		outputPath,
	)
	return args
}

// TargetVideoBitRate computes the video bit rate in bits per second that
// lands the output near targetBytes: the total bit budget spread over the
// duration, minus the audio allocation, floored at MinVideoBitRate.
func TargetVideoBitRate(targetBytes int64, durationSeconds float64, audioBitRateBps int64) int64 {
	if durationSeconds <= 0 {
		return MinVideoBitRate
	}
	rate := int64(float64(targetBytes*8)/durationSeconds) - audioBitRateBps
	if rate < MinVideoBitRate {
		return MinVideoBitRate
	}
	return rate
}

// FitResolution downscales (never upscales) the source dimensions to fit
// inside maxWidth x maxHeight while preserving aspect ratio. Both returned
// dimensions are even, as H.264 requires. A zero return pair means the
// source already fits and no scale filter is needed.
func FitResolution(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	if width <= maxWidth && height <= maxHeight {
		return 0, 0
	}
	scaleW := float64(maxWidth) / float64(width)
	scaleH := float64(maxHeight) / float64(height)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	outW := int(math.Round(float64(width)*scale)) &^ 1
	outH := int(math.Round(float64(height)*scale)) &^ 1
	if outW < 2 {
		outW = 2
	}
	if outH < 2 {
		outH = 2
	}
	return outW, outH
}
