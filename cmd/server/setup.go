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

// Package main contains the setup and initialization logic for the analyzer
// server's state. This file is responsible for creating and managing a
// centralized state manager that holds all shared dependencies: configuration,
// Google Cloud service clients, the in-memory job, file, and result stores,
// the preview service, and the job dispatcher.
//
// Functions:
//   - SetupOS: Configures necessary environment variables for the application,
//     pointing to the correct configuration files.
//   - GetConfig: A singleton function that loads the application's configuration
//     from TOML files. It ensures the configuration is loaded only once.
//   - InitState: The core initialization function that creates all service
//     clients, stores, and workflows, and starts the dispatcher workers and
//     Pub/Sub listeners.
package main

import (
	"context"
	"log"
	"os"
	"sync"
	"text/template"
	"time"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/cloud"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/services"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/workflow"
)

// jobRetention controls how long terminal jobs stay visible to status queries
// before the pruner drops them.
const jobRetention = 24 * time.Hour

// StateManager holds all the shared dependencies for the application, acting
// as a centralized container for service clients, stores, and configuration.
// configMu guards the runtime-tunable slice of the configuration (prompts and
// model ids) that the PUT /config handler may rewrite while workers read it.
type StateManager struct {
	config         *cloud.Config
	configMu       sync.RWMutex
	cloud          *cloud.ServiceClients
	jobs           *services.JobStore
	files          *services.FileStore
	results        *services.ResultStore
	preview        *services.PreviewService
	dispatcher     *workflow.Dispatcher
	categorization *template.Template
}

// state is a package-level variable that holds the single instance of StateManager.
var state = &StateManager{}

// SetupOS sets the necessary environment variables that the configuration
// loader uses to find the correct TOML files.
func SetupOS() (err error) {
	// Set the directory where configuration files are located.
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	// Set the current runtime environment to "local". The config loader will
	// look for a ".env.local.toml" file to override base settings.
	err = os.Setenv(cloud.EnvConfigRuntime, "local")
	return err
}

// GetConfig provides a singleton instance of the application configuration.
// It ensures that the configuration is loaded from the file system only once
// and validated before anything else consumes it.
func GetConfig() *cloud.Config {
	if state.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup os environment: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(config)
		if err := config.Validate(); err != nil {
			log.Fatalf("invalid configuration: %v\n", err)
		}
		state.config = config
	}
	return state.config
}

// InitState initializes the entire application state.
//
// This function performs the following steps:
//  1. Loads and validates the application configuration.
//  2. Initializes all Google Cloud service clients (Storage, Pub/Sub, GenAI,
//     BigQuery, IAM).
//  3. Creates the in-memory job, file, and result stores and the preview
//     service.
//  4. Builds both analysis pipelines and starts the dispatcher worker pool.
//  5. Starts the Pub/Sub listener that turns upload-bucket notifications into
//     professional analysis jobs.
//  6. Starts a background pruner that drops terminal jobs after the retention
//     window.
func InitState(ctx context.Context) {
	config := GetConfig()

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		panic(err)
	}
	state.cloud = cloudClients

	state.jobs = services.NewJobStore()
	state.files = services.NewFileStore()
	state.results = services.NewResultStore(config.Output.FilePrefix)
	state.preview = &services.PreviewService{
		StorageClient: cloudClients.StorageClient,
		IAMClient:     cloudClients.IAMClient,
		SignerEmail:   config.Application.SignerServiceAccountEmail,
	}

	categorizationTemplate, err := template.New("categorization").Parse(config.PromptTemplates.Categorization)
	if err != nil {
		panic(err)
	}
	state.categorization = categorizationTemplate

	professional := workflow.NewProfessionalAnalysisWorkflow(config, cloudClients, state.jobs, categorizationTemplate)
	basic := workflow.NewBasicAnalysisWorkflow(config, cloudClients, state.jobs)

	state.dispatcher = workflow.NewDispatcher(state.jobs, state.results, professional, basic, config.Application.ThreadPoolSize)
	state.dispatcher.Run(ctx)

	// Drop finished jobs once they age out so the in-memory store stays bounded.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				state.jobs.PruneTerminal(jobRetention)
			}
		}
	}()

	SetupListeners(config, cloudClients, ctx)
}
