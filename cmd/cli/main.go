// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main is the interactive command-line variant of the video analyzer.
//
// It prompts on stdin for a gs:// video reference or a local file path, runs
// the professional analysis pipeline synchronously with stage logging, prints
// the categorized summary, and writes the full result document to the
// configured output directory. An empty input falls back to the configured
// sample video. After each run the loop offers another one.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"text/template"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/cloud"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/cor"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/model"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/services"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/workflow"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/telemetry"
)

// stageLogger prints pipeline progress to the terminal. It satisfies the
// commands.ProgressReporter interface in place of the server's job store.
type stageLogger struct{}

func (s *stageLogger) UpdateProgress(jobID string, stage string, percent int) {
	fmt.Printf("  [%s] %3d%%\n", stage, percent)
}

func main() {
	telemetry.SetupLogging()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config := loadConfig()

	_, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		log.Fatalf("failed to setup telemetry: %v", err)
	}

	serviceClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		log.Fatalf("failed to initialize cloud clients: %v", err)
	}
	defer serviceClients.Close()

	categorizationTemplate, err := template.New("categorization").Parse(config.PromptTemplates.Categorization)
	if err != nil {
		log.Fatalf("invalid categorization template: %v", err)
	}

	reporter := &stageLogger{}
	pipeline := workflow.NewProfessionalAnalysisWorkflow(config, serviceClients, reporter, categorizationTemplate)
	results := services.NewResultStore(config.Output.FilePrefix)

	reader := bufio.NewScanner(os.Stdin)
	for {
		source, ok := promptForSource(reader, config.Application.DefaultSampleURI)
		if !ok {
			break
		}

		doc, err := runAnalysis(ctx, pipeline, source)
		if err != nil {
			fmt.Printf("analysis failed: %v\n", err)
		} else {
			printSummary(doc)
			path, err := results.WriteFile(config.Output.Directory, doc)
			if err != nil {
				fmt.Printf("failed to write result file: %v\n", err)
			} else {
				fmt.Printf("result written to %s\n", path)
			}
		}

		fmt.Print("\nAnalyze another video? [y/N]: ")
		if !reader.Scan() || !strings.EqualFold(strings.TrimSpace(reader.Text()), "y") {
			break
		}
	}
	fmt.Println("bye")
}

// loadConfig loads and validates the hierarchical TOML configuration using
// the same environment conventions as the server.
func loadConfig() *cloud.Config {
	if os.Getenv(cloud.EnvConfigFilePrefix) == "" {
		if err := os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			log.Fatalf("failed to setup os environment: %v", err)
		}
	}
	if os.Getenv(cloud.EnvConfigRuntime) == "" {
		if err := os.Setenv(cloud.EnvConfigRuntime, "local"); err != nil {
			log.Fatalf("failed to setup os environment: %v", err)
		}
	}
	config := cloud.NewConfig()
	cloud.LoadConfig(config)
	if err := config.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	return config
}

// promptForSource asks for a gs:// reference or a local file path, falling
// back to the configured sample when the input is empty, and confirms the
// choice. The second return value is false when stdin closed.
func promptForSource(reader *bufio.Scanner, sampleURI string) (string, bool) {
	for {
		fmt.Printf("\nEnter a gs:// video URI or local file path (empty for sample %s): ", sampleURI)
		if !reader.Scan() {
			return "", false
		}
		source := strings.TrimSpace(reader.Text())
		if source == "" {
			source = sampleURI
		}
		if cloud.IsStorageURI(source) {
			if _, err := cloud.ParseStorageURI(source); err != nil {
				fmt.Printf("invalid reference: %v\n", err)
				continue
			}
		} else if stat, err := os.Stat(source); err != nil || stat.IsDir() {
			fmt.Printf("not a readable file: %s\n", source)
			continue
		}
		fmt.Printf("Analyze %s? [Y/n]: ", source)
		if !reader.Scan() {
			return "", false
		}
		answer := strings.TrimSpace(reader.Text())
		if answer == "" || strings.EqualFold(answer, "y") {
			return source, true
		}
	}
}

// runAnalysis executes the professional pipeline synchronously for the given
// source, a gs:// reference or a local file path, and returns the assembled
// result document.
func runAnalysis(ctx context.Context, pipeline cor.Command, source string) (*model.ResultDocument, error) {
	job := model.NewJob(model.ModeProfessional)
	if cloud.IsStorageURI(source) {
		job.SourceURI = source
	} else {
		job.SourcePath = source
	}
	if err := job.Transition(model.JobRunning); err != nil {
		return nil, err
	}

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	chainCtx.Add(cor.CtxIn, job)
	defer chainCtx.Close()

	slog.Info("starting analysis", "job", job.ID, "source", source)
	pipeline.Execute(chainCtx)

	if chainCtx.HasErrors() {
		for _, err := range chainCtx.GetErrors() {
			return nil, err
		}
	}
	doc, ok := chainCtx.Get(cor.CtxOut).(*model.ResultDocument)
	if !ok {
		return nil, fmt.Errorf("pipeline produced no result document")
	}
	return doc, nil
}

// printSummary prints the human-facing slice of a completed professional
// analysis.
func printSummary(doc *model.ResultDocument) {
	fmt.Println("\n=== analysis complete ===")
	fmt.Printf("job:       %s\n", doc.JobID)
	if doc.Professional == nil {
		return
	}
	if doc.Professional.Categorized != nil {
		cat := doc.Professional.Categorized
		fmt.Printf("type:      %s\n", cat.VideoType)
		fmt.Printf("confidence: %.2f\n", cat.ConfidenceScore)
		fmt.Printf("summary:   %s\n", cat.Summary)
		return
	}
	if doc.Professional.Fallback != nil {
		fmt.Println("categorization could not be parsed; raw analysis follows")
		fmt.Println(doc.Professional.RawAnalysis.Text)
	}
}
