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

// Package workflow defines the high-level business logic orchestrations,
// combining various commands into coherent pipelines. This file builds the
// two analysis pipelines.
//
// Both pipelines share the same preparation stem: localize the source,
// probe it, conditionally transcode, select transport, and stage the
// payload in the transfer bucket when it travels by reference. They diverge
// at the model stage. The professional pipeline runs one analysis call
// followed by a categorization call; the basic pipeline runs the three
// configured prompts independently. Both converge again on result assembly
// and the BigQuery audit sink.
package workflow

import (
	"text/template"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/cloud"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/commands"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/cor"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/media"
)

// ProfessionalAnalysisWorkflow orchestrates the two-stage professional
// pipeline: free-text video analysis followed by structured categorization.
type ProfessionalAnalysisWorkflow struct {
	cor.BaseCommand
	chain cor.Chain
}

// Execute runs the professional pipeline by invoking the underlying chain.
// The chain's final artifact lands in CtxIn after the last flip-flop, so it
// is re-exposed as this command's output.
func (w *ProfessionalAnalysisWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
	if out := context.Get(cor.CtxIn); out != nil {
		context.Add(cor.CtxOut, out)
	}
}

// NewProfessionalAnalysisWorkflow builds the professional pipeline.
//
// Inputs:
//   - config: The application's overall configuration.
//   - serviceClients: Initialized clients for GCP services.
//   - jobs: The progress sink for stage and percent updates.
//   - categorizationTemplate: The parsed prompt template for the
//     categorization stage.
func NewProfessionalAnalysisWorkflow(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	jobs commands.ProgressReporter,
	categorizationTemplate *template.Template) *ProfessionalAnalysisWorkflow {

	out := &ProfessionalAnalysisWorkflow{BaseCommand: *cor.NewBaseCommand("professional-analysis-workflow")}

	chain := cor.NewBaseChain(out.GetName())
	addPreparationStem(chain, config, serviceClients, jobs)
	chain.AddCommand(commands.NewVideoAnalyze("video-analyze", config, serviceClients.AgentModels[cloud.AnalysisModelKey], jobs))
	chain.AddCommand(commands.NewCategorizer("categorize", config, serviceClients.AgentModels[cloud.CategorizationModelKey], categorizationTemplate))
	chain.AddCommand(commands.NewCategoryJSONToStruct("category-json-to-struct"))
	chain.AddCommand(commands.NewTransferCleanup("transfer-cleanup", serviceClients.StorageClient))
	chain.AddCommand(commands.NewResultAssembly("result-assembly", config))
	chain.AddCommand(commands.NewResultPersistToBigQuery("result-persist", serviceClients.BigQueryClient, config.BigQueryDataSource.DatasetName, config.BigQueryDataSource.ResultsTable))
	out.chain = chain

	return out
}

// BasicAnalysisWorkflow orchestrates the basic pipeline: three independent
// prompts over the same prepared payload.
type BasicAnalysisWorkflow struct {
	cor.BaseCommand
	chain cor.Chain
}

// Execute runs the basic pipeline by invoking the underlying chain.
func (w *BasicAnalysisWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
	if out := context.Get(cor.CtxIn); out != nil {
		context.Add(cor.CtxOut, out)
	}
}

// NewBasicAnalysisWorkflow builds the basic pipeline.
func NewBasicAnalysisWorkflow(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	jobs commands.ProgressReporter) *BasicAnalysisWorkflow {

	out := &BasicAnalysisWorkflow{BaseCommand: *cor.NewBaseCommand("basic-analysis-workflow")}

	chain := cor.NewBaseChain(out.GetName())
	addPreparationStem(chain, config, serviceClients, jobs)
	chain.AddCommand(commands.NewBasicAnalyze("basic-analyze", config, serviceClients.AgentModels[cloud.AnalysisModelKey], jobs))
	chain.AddCommand(commands.NewTransferCleanup("transfer-cleanup", serviceClients.StorageClient))
	chain.AddCommand(commands.NewResultAssembly("result-assembly", config))
	chain.AddCommand(commands.NewResultPersistToBigQuery("result-persist", serviceClients.BigQueryClient, config.BigQueryDataSource.DatasetName, config.BigQueryDataSource.ResultsTable))
	out.chain = chain

	return out
}

// addPreparationStem appends the shared preparation commands that both
// pipelines run before their model stages.
func addPreparationStem(
	chain cor.Chain,
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	jobs commands.ProgressReporter) {

	prober := media.NewProber(&config.Encoder)
	encoder := media.NewEncoder(&config.Encoder, &config.Limits)

	chain.AddCommand(commands.NewSourceLocalizer("source-localizer", serviceClients.StorageClient, &config.Limits))
	chain.AddCommand(commands.NewVideoProbe("video-probe", prober, jobs))
	chain.AddCommand(commands.NewVideoEncode("video-encode", encoder, jobs))
	chain.AddCommand(commands.NewTransportSelect("transport-select", &config.Limits))
	chain.AddCommand(commands.NewTransferUpload("transfer-upload", serviceClients.StorageClient, config.Storage.TransferBucket))
}
