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
// Responsibility (COR) pattern's Command interface. This file defines the
// transport selection stage, which routes the prepared payload either inline
// into the model request or through the transfer bucket by reference.
package commands

import (
	"fmt"
	"os"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/cloud"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/cor"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/media"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/model"
)

// TransportSelect decides how the prepared file travels to the model.
type TransportSelect struct {
	cor.BaseCommand
	limits *cloud.Limits
}

// NewTransportSelect is the constructor for the TransportSelect command.
func NewTransportSelect(name string, limits *cloud.Limits) *TransportSelect {
	return &TransportSelect{BaseCommand: *cor.NewBaseCommand(name), limits: limits}
}

// Execute measures the prepared file and emits a TransportDecision. The
// decision's size comes from the file system so copy-through outcomes are
// measured the same way as transcoded ones.
func (c *TransportSelect) Execute(context cor.Context) {
	path := context.Get(c.GetInputParam()).(string)

	stat, err := os.Stat(path)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("cannot stat prepared payload %s: %w", path, err))
		return
	}

	kind, err := media.SelectTransport(stat.Size(), c.limits)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	decision := &model.TransportDecision{
		Kind:      kind,
		SizeBytes: stat.Size(),
		LocalPath: path,
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(TransportKey, decision)
	context.Add(c.GetOutputParam(), decision)
}
