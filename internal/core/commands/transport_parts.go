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
// Responsibility (COR) pattern's Command interface. This file renders a
// transport decision as a genai request part, shared by both analysis
// stages so payloads travel identically in basic and professional mode.
package commands

import (
	"fmt"
	"os"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/cloud"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/model"
	"google.golang.org/genai"
)

// buildVideoPart converts a completed transport decision into the video part
// of a model request. Inline payloads are read fully into memory, bounded by
// the inline hard cap; reference payloads point at the staged transfer
// object.
func buildVideoPart(limits *cloud.Limits, decision *model.TransportDecision) (*genai.Part, error) {
	switch decision.Kind {
	case model.TransportInline:
		if decision.SizeBytes > limits.InlineHardCap() {
			return nil, &model.PayloadTooLargeError{SizeBytes: decision.SizeBytes, MaxBytes: limits.InlineHardCap()}
		}
		data, err := os.ReadFile(decision.LocalPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read inline payload %s: %w", decision.LocalPath, err)
		}
		mimeType, ok := cloud.VideoMIMETypeForObject(decision.LocalPath)
		if !ok {
			mimeType = "video/mp4"
		}
		blob := cloud.NewInlineData(data, mimeType)
		return &genai.Part{InlineData: &blob}, nil
	case model.TransportReference:
		if decision.Reference == nil {
			return nil, fmt.Errorf("reference transport selected but no staged object present")
		}
		fileData := cloud.NewFileData(decision.Reference.URI(), decision.Reference.MIMEType)
		return &genai.Part{FileData: &fileData}, nil
	default:
		return nil, fmt.Errorf("unknown transport kind %q", decision.Kind)
	}
}
