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
// This file tests the transport routing rule and the source size gate.
package media_test

import (
	"errors"
	"testing"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/cloud"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/media"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mb = int64(1024 * 1024)

// testLimits mirrors the default production thresholds.
func testLimits() *cloud.Limits {
	return &cloud.Limits{
		NoTranscodeBelowMB:     30,
		InlineTransportBelowMB: 36,
		InlineHardCapMB:        100,
		HardMaxMB:              2048,
	}
}

// TestSelectTransport verifies the routing rule around the inline threshold.
func TestSelectTransport(t *testing.T) {
	limits := testLimits()

	cases := []struct {
		name      string
		sizeBytes int64
		want      model.TransportKind
	}{
		{"small payload goes inline", 10 * mb, model.TransportInline},
		{"one byte under the threshold goes inline", 36*mb - 1, model.TransportInline},
		{"exactly the threshold goes by reference", 36 * mb, model.TransportReference},
		{"large payload goes by reference", 500 * mb, model.TransportReference},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := media.SelectTransport(tc.sizeBytes, limits)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

// TestSelectTransportInlineHardCap verifies that a payload routed inline but
// over the inline ceiling is an error, not a silent re-route. With the
// default ordering the threshold sits below the cap, so the case needs a
// deliberately widened inline band.
func TestSelectTransportInlineHardCap(t *testing.T) {
	limits := &cloud.Limits{
		NoTranscodeBelowMB:     30,
		InlineTransportBelowMB: 200,
		InlineHardCapMB:        100,
		HardMaxMB:              2048,
	}

	_, err := media.SelectTransport(150*mb, limits)
	var tooLarge *model.PayloadTooLargeError
	assert.True(t, errors.As(err, &tooLarge))
}

// TestValidateSourceSize verifies the absolute size gate.
func TestValidateSourceSize(t *testing.T) {
	limits := testLimits()

	assert.NoError(t, media.ValidateSourceSize(2048*mb, limits))

	err := media.ValidateSourceSize(2048*mb+1, limits)
	var tooLarge *model.PayloadTooLargeError
	require.True(t, errors.As(err, &tooLarge))
	assert.Equal(t, limits.HardMax(), tooLarge.MaxBytes)
}
