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

// Package cor_test exercises the chain-of-responsibility building blocks with
// small scripted commands. These tests pin down the piping contract every
// pipeline in the system relies on: after each step the chain moves the
// value under CtxOut into CtxIn, so when a chain finishes its final artifact
// sits under CtxIn and CtxOut is empty.
package cor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/cor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// appendCommand is a scripted test command. It reads a string from its input
// key, appends its suffix, and writes the result to its output key. When
// `fail` is set it records an error instead, and `ran` lets tests observe
// whether the chain actually invoked it.
type appendCommand struct {
	cor.BaseCommand
	suffix string
	fail   bool
	ran    bool
}

func newAppendCommand(name string, suffix string) *appendCommand {
	return &appendCommand{BaseCommand: *cor.NewBaseCommand(name), suffix: suffix}
}

func (c *appendCommand) Execute(chainCtx cor.Context) {
	c.ran = true
	if c.fail {
		chainCtx.AddError(c.GetName(), errors.New("scripted failure"))
		return
	}
	in, _ := chainCtx.Get(c.GetInputParam()).(string)
	chainCtx.Add(c.GetOutputParam(), in+c.suffix)
}

// TestChainPipesOutputToInput verifies the flip-flop between steps: each
// command sees the previous command's output as its input, and the final
// output ends up under CtxIn with CtxOut cleared.
func TestChainPipesOutputToInput(t *testing.T) {
	first := newAppendCommand("first", "-a")
	second := newAppendCommand("second", "-b")

	chain := cor.NewBaseChain("piping")
	chain.AddCommand(first)
	chain.AddCommand(second)

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(context.Background())
	chainCtx.Add(cor.CtxIn, "seed")

	chain.Execute(chainCtx)

	require.False(t, chainCtx.HasErrors())
	assert.True(t, first.ran)
	assert.True(t, second.ran)

	// The chain's last flip-flop moves the final output into CtxIn.
	assert.Equal(t, "seed-a-b", chainCtx.Get(cor.CtxIn))
	assert.Nil(t, chainCtx.Get(cor.CtxOut))
}

// TestChainStopsOnFirstError verifies the default short-circuit: once a
// command records an error, later commands never run.
func TestChainStopsOnFirstError(t *testing.T) {
	first := newAppendCommand("first", "-a")
	second := newAppendCommand("second", "-b")
	second.fail = true
	third := newAppendCommand("third", "-c")

	chain := cor.NewBaseChain("short-circuit")
	chain.AddCommand(first)
	chain.AddCommand(second)
	chain.AddCommand(third)

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(context.Background())
	chainCtx.Add(cor.CtxIn, "seed")

	chain.Execute(chainCtx)

	require.True(t, chainCtx.HasErrors())
	assert.True(t, second.ran)
	assert.False(t, third.ran)

	// The error is keyed by the command that produced it.
	_, ok := chainCtx.GetErrors()["second"]
	assert.True(t, ok)
}

// TestChainContinueOnFailure verifies that a chain configured to continue on
// failure still runs the remaining commands after an error.
func TestChainContinueOnFailure(t *testing.T) {
	first := newAppendCommand("first", "-a")
	first.fail = true
	second := newAppendCommand("second", "-b")

	chain := cor.NewBaseChain("continue-on-failure")
	chain.ContinueOnFailure(true)
	chain.AddCommand(first)
	chain.AddCommand(second)

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(context.Background())
	chainCtx.Add(cor.CtxIn, "seed")

	chain.Execute(chainCtx)

	assert.True(t, chainCtx.HasErrors())
	assert.True(t, second.ran)
}

// TestChainSkipsNonExecutableCommand verifies that a command whose
// precondition fails is skipped without an error and without stopping the
// chain. The skipped command here wants an input key nothing provides.
func TestChainSkipsNonExecutableCommand(t *testing.T) {
	first := newAppendCommand("first", "-a")
	starved := newAppendCommand("starved", "-x")
	starved.InputParamName = "never-populated"

	chain := cor.NewBaseChain("skip")
	chain.AddCommand(first)
	chain.AddCommand(starved)

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(context.Background())
	chainCtx.Add(cor.CtxIn, "seed")

	chain.Execute(chainCtx)

	assert.False(t, chainCtx.HasErrors())
	assert.True(t, first.ran)
	assert.False(t, starved.ran)
}

// TestChainNotExecutableWithoutContext verifies the chain precondition: a
// chain needs a Go context before it can run.
func TestChainNotExecutableWithoutContext(t *testing.T) {
	chain := cor.NewBaseChain("no-context")
	chainCtx := cor.NewBaseContext()
	assert.False(t, chain.IsExecutable(chainCtx))

	chainCtx.SetContext(context.Background())
	assert.True(t, chain.IsExecutable(chainCtx))
}
