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

// This file holds the transport decision. It is a pure function of the
// prepared payload size and the configured limits so the routing rule can be
// tested exhaustively without touching storage or the model.
package media

import (
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/cloud"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/model"
)

// ValidateSourceSize rejects sources over the absolute maximum before any
// probing or transcoding happens.
func ValidateSourceSize(sizeBytes int64, limits *cloud.Limits) error {
	if sizeBytes > limits.HardMax() {
		return &model.PayloadTooLargeError{SizeBytes: sizeBytes, MaxBytes: limits.HardMax()}
	}
	return nil
}

// SelectTransport decides how a prepared payload travels to the model.
// Payloads under the inline threshold go inline in the request body; larger
// ones go by storage reference. The inline hard cap is a separate guard: a
// payload that routes inline but exceeds the cap is an error, not a silent
// re-route, because it indicates the preparation stage failed to shrink the
// file as configured.
func SelectTransport(sizeBytes int64, limits *cloud.Limits) (model.TransportKind, error) {
	if sizeBytes < limits.InlineTransportBelow() {
		if sizeBytes > limits.InlineHardCap() {
			return "", &model.PayloadTooLargeError{SizeBytes: sizeBytes, MaxBytes: limits.InlineHardCap()}
		}
		return model.TransportInline, nil
	}
	return model.TransportReference, nil
}
