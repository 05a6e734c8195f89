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

// Package media implements the local video preparation stage: probing source
// files with ffprobe, conditionally transcoding them with ffmpeg, and deciding
// how the prepared payload travels to the model. The package shells out to the
// ffmpeg tool suite rather than binding a codec library, and degrades to
// copy-through behavior when the tools are absent.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/cloud"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/model"
)

// ffprobeArgs produce a machine-readable description of the container and
// every stream without any log noise on stderr.
var ffprobeArgs = []string{"-v", "quiet", "-print_format", "json", "-show_format", "-show_streams"}

// Prober extracts technical metadata from local video files by shelling out
// to ffprobe.
type Prober struct {
	commandPath string
}

// NewProber creates a Prober from the encoder configuration. An empty
// ffprobe_path falls back to resolving "ffprobe" on the PATH.
func NewProber(cfg *cloud.Encoder) *Prober {
	path := cfg.FfprobePath
	if path == "" {
		path = "ffprobe"
	}
	return &Prober{commandPath: path}
}

// Available reports whether the ffprobe binary can be resolved.
func (p *Prober) Available() bool {
	_, err := exec.LookPath(p.commandPath)
	return err == nil
}

// Probe runs ffprobe against the file at path and returns the parsed metadata.
// The file size always comes from the file system, not from the container
// header, so the transport decision sees the true on-disk size.
func (p *Prober) Probe(ctx context.Context, path string) (*model.VideoInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, &model.ProbeError{Path: path, Err: err}
	}
	cmd := exec.CommandContext(ctx, p.commandPath, append(append([]string{}, ffprobeArgs...), path)...)
	out, err := cmd.Output()
	if err != nil {
		return nil, &model.ProbeError{Path: path, Err: fmt.Errorf("ffprobe failed: %w", err)}
	}
	info, err := ParseProbeOutput(out, stat.Size())
	if err != nil {
		return nil, &model.ProbeError{Path: path, Err: err}
	}
	return info, nil
}

// probeDocument mirrors the subset of ffprobe's JSON output the pipeline
// consumes. ffprobe renders numeric format fields as strings.
type probeDocument struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
	} `json:"streams"`
}

// ParseProbeOutput converts raw ffprobe JSON into a VideoInfo. It is split
// from Probe so the parsing rules are testable without the binary installed.
func ParseProbeOutput(raw []byte, sizeBytes int64) (*model.VideoInfo, error) {
	var doc probeDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unparseable ffprobe output: %w", err)
	}
	info := &model.VideoInfo{SizeBytes: sizeBytes}
	info.DurationSeconds, _ = strconv.ParseFloat(doc.Format.Duration, 64)
	info.BitRate, _ = strconv.ParseInt(doc.Format.BitRate, 10, 64)
	hasVideo := false
	for _, stream := range doc.Streams {
		switch stream.CodecType {
		case "video":
			// The first video stream wins; attached previews come later.
			if !hasVideo {
				hasVideo = true
				info.VideoCodec = stream.CodecName
				info.Width = stream.Width
				info.Height = stream.Height
				info.FrameRate = parseFrameRate(stream.AvgFrameRate)
			}
		case "audio":
			if info.AudioCodec == "" {
				info.AudioCodec = stream.CodecName
			}
		}
	}
	// Audio files inside video containers still probe cleanly, so the codec
	// type has to be checked explicitly.
	if !hasVideo {
		return nil, fmt.Errorf("no video stream found")
	}
	if info.DurationSeconds <= 0 {
		return nil, fmt.Errorf("ffprobe reported no usable duration")
	}
	return info, nil
}

// parseFrameRate converts ffprobe's rational frame rate ("30000/1001") into a
// float. Malformed or zero-denominator values collapse to 0.
func parseFrameRate(in string) float64 {
	num, den, found := strings.Cut(in, "/")
	if !found {
		value, _ := strconv.ParseFloat(in, 64)
		return value
	}
	n, errN := strconv.ParseFloat(num, 64)
	d, errD := strconv.ParseFloat(den, 64)
	if errN != nil || errD != nil || d == 0 {
		return 0
	}
	return n / d
}
