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

// Package cor (Chain of Responsibility) provides the building blocks used to
// assemble the analysis pipelines. Workflows are expressed as chains of small,
// individually testable commands that communicate through a shared context.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the well-known keys a chain uses to pipe the primary
// output of one command into the primary input of the next.
const (
	// CtxIn is the default input key. A BaseChain populates it with the
	// previous command's output before each step runs.
	CtxIn = "__IN__"
	// CtxOut is the default output key. Commands place their primary result
	// here for the chain to pick up.
	CtxOut = "__OUT__"
)

// Context is the shared state object passed through a chain of commands. It
// carries data, accumulated errors, temp file bookkeeping, and the Go context
// used for cancellation and trace propagation.
type Context interface {
	// SetContext sets the standard Go context.Context for the execution.
	SetContext(context context.Context)

	// GetContext retrieves the standard Go context.Context.
	GetContext() context.Context

	// Add stores a key-value pair. Returns the Context for fluent chaining.
	Add(key string, value interface{}) Context

	// AddError records an error, keyed by the name of the command that
	// produced it.
	AddError(key string, err error)

	// GetErrors returns all errors collected during the workflow.
	GetErrors() map[string]error

	// Get retrieves a value by key, or nil when absent.
	Get(key string) interface{}

	// Remove deletes a key-value pair.
	Remove(key string)

	// HasErrors reports whether any command has recorded an error.
	HasErrors() bool

	// AddTempFile tracks a temporary file created during the workflow so it
	// can be removed in Close.
	AddTempFile(file string)

	// GetTempFiles returns all tracked temporary file paths.
	GetTempFiles() []string

	// Close removes all tracked temporary files. Defer it at the start of a
	// workflow execution.
	Close()
}

// Executable is implemented by anything with a core execution step.
type Executable interface {
	// Execute reads inputs from the Context and writes results back to it.
	Execute(context Context)
}

// Command is an atomic, thread-safe unit of work and the fundamental building
// block of a workflow.
type Command interface {
	Executable

	// GetName returns the command name used for logging and telemetry.
	GetName() string

	// GetInputParam returns the context key the command reads its primary
	// input from.
	GetInputParam() string

	// GetOutputParam returns the context key the command writes its primary
	// output to.
	GetOutputParam() string

	// IsExecutable is a precondition check run before Execute.
	IsExecutable(context Context) bool

	// GetTracer returns the OpenTelemetry tracer for this command.
	GetTracer() trace.Tracer

	// GetMeter returns the OpenTelemetry meter for creating metrics.
	GetMeter() metric.Meter

	// GetSuccessCounter returns a counter incremented on successful runs.
	GetSuccessCounter() metric.Int64Counter

	// GetErrorCounter returns a counter incremented on failed runs.
	GetErrorCounter() metric.Int64Counter
}

// Chain is an ordered sequence of commands. A Chain is itself a Command, so
// chains nest (Composite pattern).
type Chain interface {
	Command

	// ContinueOnFailure controls whether the chain keeps running commands
	// after one of them records an error.
	ContinueOnFailure(bool) Chain

	// AddCommand appends a command to the execution sequence.
	AddCommand(command Command) Chain
}
