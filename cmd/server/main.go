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
// *****************************************************************************************************//
// Package main is the entry point for the video analyzer backend server.
//
// This application sets up and runs a web server using the Gin framework. It
// provides a REST API for uploading videos, validating storage references,
// submitting analysis jobs, and retrieving result documents. The server is
// instrumented with OpenTelemetry for logging, tracing, and metrics.
//
// The main function initializes the application's configuration, sets up
// logging and telemetry, and initializes the application state, including
// clients for Google Cloud services and the background job dispatcher. It
// defines API routes for uploads, references, analyses, results, and runtime
// configuration.
//
// The server also manages a background Pub/Sub listener that turns upload
// bucket notifications into professional analysis jobs.
//
// Functions:
//   - main: The main entry point of the application. It sets up the server,
//     configures routes, initializes services, and handles graceful shutdown.
//   - UploadRouter: Configures the multipart upload endpoint and the
//     per-file status and progress endpoints.
//   - ReferenceRouter: Configures validation and signed-URL preview of
//     gs:// video references.
//   - AnalysisRouter: Configures job submission and job status/result routes.
//   - ResultRouter: Configures listing, deletion, and download of stored
//     result documents.
//   - ConfigRouter: Exposes the runtime-tunable configuration slice.
package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/h2non/filetype"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/cloud"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/media"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/model"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/services"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/telemetry"
)

// sniffLen is how many leading bytes the MIME sniffer needs.
const sniffLen = 261

// serverName identifies this service in traces and correlated logs.
const serverName = "video-analyzer-server"

// logger emits through the OpenTelemetry slog bridge so server lifecycle
// logs correlate with traces.
var logger = otelslog.NewLogger(serverName)

// main is the primary entry point for the application.
// It orchestrates the setup of logging, telemetry, configuration, cloud
// services, the web server, API routes, and background listeners. It also
// handles graceful shutdown of the server upon receiving an interrupt signal.
func main() {
	// Initialize structured logging for the application.
	telemetry.SetupLogging()
	logger.Info("Logging initialized")

	// Create a new context that can be cancelled. This is the root context for the application.
	ctx, cancel := context.WithCancel(context.Background())
	// Defer the cancel function to be called when main exits, ensuring all child contexts are cancelled.
	defer cancel()

	// Load application configuration from TOML files.
	config := GetConfig()

	// Initialize OpenTelemetry for distributed tracing and metrics.
	_, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		logger.Error("Failed to setup OpenTelemetry", "error", err)
		log.Fatal(err)
	}
	logger.Info("Tracing initialized")

	// Initialize the application's state, including all necessary service
	// clients, stores, pipelines, and listeners.
	InitState(ctx)
	logger.Info("Initialized State")

	// Set up the Gin web server with default middleware.
	r := gin.Default()

	// Add OpenTelemetry middleware to the Gin router to trace incoming requests.
	r.Use(otelgin.Middleware(serverName))

	// Configure Cross-Origin Resource Sharing (CORS) middleware.
	// Using cors.Default() provides a permissive configuration suitable for
	// development, allowing requests from any origin.
	r.Use(cors.Default())

	// Group routes under the "/api/v1" prefix.
	apiV1 := r.Group("/api/v1")
	{
		UploadRouter(apiV1)
		ReferenceRouter(apiV1)
		AnalysisRouter(apiV1)
		ResultRouter(apiV1)
		ConfigRouter(apiV1)
		Dashboard(apiV1)
	}

	// Configure the HTTP server with the address and handler.
	srv := &http.Server{
		Addr:         ":8080",
		Handler:      r,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	// Start the HTTP server in a separate goroutine so it doesn't block the main thread.
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to listen: ", "error", err)
		}
	}()
	logger.Info("Server Ready on port 8080")

	// Set up a channel to listen for OS interrupt signals (e.g., Ctrl+C).
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	// Block until a signal is received on the quit channel.
	<-quit
	logger.Info("Shutdown Server ...")

	// Create a context with a timeout for the graceful shutdown.
	// This gives active requests 5 seconds to complete.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	// Attempt to gracefully shut down the server.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server Shutdown Failed:", "error", err)
	}

	log.Println("Server exiting")
}

// UploadRouter sets up the routes for handling file uploads and for querying
// the state of previously uploaded files.
//
// This function configures the following endpoints:
//   - POST /uploads: Accepts multipart/form-data under the "files" field.
//     Each file is checked against the video extension allow-list, sniffed
//     for a video MIME signature, and rejected when it exceeds the hard size
//     ceiling. Accepted files are streamed into the upload bucket and
//     registered in the file store. Responds with the new file records.
//   - GET /files/:id/status: Returns the stored file record, joined with the
//     status of the analysis job attached to it, if any.
//   - GET /files/:id/progress: Returns the coarse progress of the attached
//     analysis job as a percent and stage name.
func UploadRouter(r *gin.RouterGroup) {
	upload := r.Group("/uploads")
	{
		// Handler for POST /uploads
		upload.POST("", func(c *gin.Context) {
			// Parse the multipart form from the request.
			form, err := c.MultipartForm()
			if err != nil {
				c.String(http.StatusBadRequest, "get form err: %s", err.Error())
				return
			}
			// Get all files associated with the "files" field.
			files := form.File["files"]
			if len(files) == 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "no files in request"})
				return
			}
			bucket := state.cloud.StorageClient.Bucket(state.config.Storage.UploadBucket)

			out := make([]*services.UploadedFile, 0, len(files))
			for _, file := range files {
				// The extension allow-list is the first gate.
				mimeType, ok := cloud.VideoMIMETypeForObject(file.Filename)
				if !ok {
					c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported video format: " + file.Filename})
					return
				}
				if err := media.ValidateSourceSize(file.Size, &state.config.Limits); err != nil {
					c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
					return
				}

				record := services.NewUploadedFile(file.Filename)
				record.Bucket = state.config.Storage.UploadBucket
				record.Object = record.ID + filepath.Ext(file.Filename)
				record.MIMEType = mimeType
				record.SizeBytes = file.Size

				// Save the uploaded file to a local temporary path.
				localPath := uploadTempPath(record.ID, file.Filename)
				if err := c.SaveUploadedFile(file, localPath); err != nil {
					c.String(http.StatusBadRequest, "upload file err: %s", err.Error())
					return
				}

				// Sniff the leading bytes so a renamed non-video cannot slip
				// through on its extension alone.
				if err := sniffVideo(localPath); err != nil {
					_ = os.Remove(localPath)
					c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}

				// Stream the file into the upload bucket under its new id.
				local, err := os.Open(localPath)
				if err != nil {
					log.Println(err)
					c.Status(http.StatusInternalServerError)
					return
				}
				wc := bucket.Object(record.Object).NewWriter(c)
				wc.ContentType = mimeType
				_, err = io.Copy(wc, local)
				_ = local.Close()
				if err != nil {
					c.String(http.StatusInternalServerError, "write file to bucket err: %s", err.Error())
					return
				}
				// Close the GCS writer to finalize the upload.
				if err := wc.Close(); err != nil {
					c.String(http.StatusInternalServerError, "close bucket handle err: %s", err.Error())
					return
				}
				// Remove the temporary local file after a successful upload.
				if err := os.Remove(localPath); err != nil {
					log.Printf("failed to remove file from server: %v\n", err)
				}

				state.files.Put(record)
				out = append(out, record)
			}
			c.JSON(http.StatusOK, gin.H{"files": out})
		})
	}

	files := r.Group("/files")
	{
		// Handler for GET /files/:id/status
		files.GET("/:id/status", func(c *gin.Context) {
			file, err := state.files.Get(c.Param("id"))
			if err != nil {
				c.Status(http.StatusNotFound)
				return
			}
			resp := gin.H{"file": file}
			if file.JobID != "" {
				if job, err := state.jobs.Get(file.JobID); err == nil {
					resp["job"] = job
				}
			}
			c.JSON(http.StatusOK, resp)
		})

		// Handler for GET /files/:id/progress
		files.GET("/:id/progress", func(c *gin.Context) {
			file, err := state.files.Get(c.Param("id"))
			if err != nil {
				c.Status(http.StatusNotFound)
				return
			}
			// A file with no attached job has made no progress yet.
			progress := gin.H{"percent": 0, "stage": "stored"}
			if file.JobID != "" {
				if job, err := state.jobs.Get(file.JobID); err == nil {
					progress = gin.H{"percent": job.Progress, "stage": job.Stage}
				}
			}
			c.JSON(http.StatusOK, progress)
		})
	}
}

// uploadTempPath is where an incoming multipart file is staged before the
// bucket write. The name is derived from the record id, never the
// client-supplied filename, so a crafted name cannot escape the temp
// directory and concurrent uploads of the same file cannot collide.
func uploadTempPath(id, filename string) string {
	return filepath.Join(os.TempDir(), id+filepath.Ext(filepath.Base(filename)))
}

// sniffVideo reads the leading bytes of the file at path and verifies that
// they carry a recognizable video signature.
func sniffVideo(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	head := make([]byte, sniffLen)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return err
	}
	if !filetype.IsVideo(head[:n]) {
		return errors.New("file content is not a recognized video format: " + filepath.Base(path))
	}
	return nil
}

// ReferenceRouter sets up the routes for working with gs:// video references.
//
// This function configures the following endpoints:
//   - POST /references: Validates a gs:// URI from the request body. The URI
//     must carry the expected scheme, name a bucket and object, and end in a
//     supported video extension. The referenced object must exist and fit
//     under the hard size ceiling. Responds with the normalized reference and
//     its metadata.
//   - GET /references/preview: Generates a time-limited signed URL for a
//     validated reference so a browser can preview the video directly.
func ReferenceRouter(r *gin.RouterGroup) {
	refs := r.Group("/references")
	{
		// Handler for POST /references
		refs.POST("", func(c *gin.Context) {
			var body struct {
				URI string `json:"uri"`
			}
			if err := c.ShouldBindJSON(&body); err != nil || body.URI == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "request body requires a uri field"})
				return
			}
			obj, size, ok := resolveReference(c, body.URI)
			if !ok {
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"uri":        obj.URI(),
				"bucket":     obj.Bucket,
				"object":     obj.Name,
				"mime_type":  obj.MIMEType,
				"size_bytes": size,
			})
		})

		// Handler for GET /references/preview?uri=gs://...
		// This endpoint provides a secure, time-limited URL for clients to
		// preview video content without making the bucket public.
		refs.GET("/preview", func(c *gin.Context) {
			uri := c.Query("uri")
			if uri == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "uri query parameter is required"})
				return
			}
			signedURL, err := state.preview.GenerateSignedURL(c, uri, services.DefaultPreviewExpiry)
			if err != nil {
				log.Printf("Error generating signed URL: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not generate preview URL"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"url": signedURL})
		})
	}
}

// resolveReference parses a gs:// URI, HEADs the referenced object to confirm
// it exists, and enforces the hard size ceiling. On failure it writes the
// error response and reports false so the handler returns without side
// effects. Both reference validation and job submission pass through here, so
// a dangling or oversized reference is rejected synchronously.
func resolveReference(c *gin.Context, uri string) (*cloud.GCSObject, int64, bool) {
	obj, err := cloud.ParseStorageURI(uri)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, 0, false
	}
	attrs, err := state.cloud.StorageClient.Bucket(obj.Bucket).Object(obj.Name).Attrs(c)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "referenced object not found: " + obj.URI()})
		return nil, 0, false
	}
	if err := media.ValidateSourceSize(attrs.Size, &state.config.Limits); err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return nil, 0, false
	}
	return obj, attrs.Size, true
}

// analysisRequest is the submission body shared by both analysis endpoints.
// Exactly one of FileID and URI must be set. CustomPrompt is honored by the
// professional pipeline only.
type analysisRequest struct {
	FileID       string `json:"file_id"`
	URI          string `json:"uri"`
	CustomPrompt string `json:"custom_prompt"`
}

// AnalysisRouter sets up the routes for submitting and tracking analysis jobs.
//
// This function configures the following endpoints:
//   - POST /analyses/basic: Submits a basic analysis job for an uploaded
//     file id or a gs:// reference.
//   - POST /analyses/professional: Submits a professional analysis job, with
//     an optional custom prompt replacing the configured one.
//   - GET /analyses/:id/status: Returns the job record with its status,
//     progress, and error message, if any.
//   - GET /analyses/:id/result: Returns the completed result document. The
//     route responds 404 until the job has completed.
func AnalysisRouter(r *gin.RouterGroup) {
	analyses := r.Group("/analyses")
	{
		analyses.POST("/basic", func(c *gin.Context) {
			submitAnalysis(c, model.ModeBasic)
		})
		analyses.POST("/professional", func(c *gin.Context) {
			submitAnalysis(c, model.ModeProfessional)
		})

		// Handler for GET /analyses/:id/status
		analyses.GET("/:id/status", func(c *gin.Context) {
			job, err := state.jobs.Get(c.Param("id"))
			if err != nil {
				c.Status(http.StatusNotFound)
				return
			}
			c.JSON(http.StatusOK, job)
		})

		// Handler for GET /analyses/:id/result
		analyses.GET("/:id/result", func(c *gin.Context) {
			doc, err := state.results.Get(c.Param("id"))
			if err != nil {
				c.Status(http.StatusNotFound)
				return
			}
			rendered, err := state.results.Render(doc)
			if err != nil {
				c.Status(http.StatusInternalServerError)
				return
			}
			c.Data(http.StatusOK, "application/json; charset=utf-8", rendered)
		})
	}
}

// submitAnalysis resolves the video source from the request body, creates a
// queued job for the requested mode, and hands it to the dispatcher. A gs://
// source is resolved against storage first, so an invalid reference is
// rejected before any job exists. A full queue is reported as 503 rather
// than blocking the handler.
func submitAnalysis(c *gin.Context, mode model.AnalysisMode) {
	var body analysisRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if (body.FileID == "") == (body.URI == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one of file_id and uri is required"})
		return
	}

	job := model.NewJob(mode)
	job.CustomPrompt = body.CustomPrompt

	if body.URI != "" {
		// The reference must resolve before the job exists: a gs:// URI for
		// a missing or oversized object fails here, synchronously, and
		// nothing enters the store or the queue.
		obj, _, ok := resolveReference(c, body.URI)
		if !ok {
			return
		}
		job.SourceURI = obj.URI()
	} else {
		file, err := state.files.Get(body.FileID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown file id: " + body.FileID})
			return
		}
		job.SourceURI = file.URI()
		if err := state.files.AttachJob(file.ID, job.ID); err != nil {
			log.Printf("failed to attach job %s to file %s: %v", job.ID, file.ID, err)
		}
	}

	state.jobs.Create(job)
	if err := state.dispatcher.Submit(job); err != nil {
		_ = state.jobs.Fail(job.ID, err.Error())
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, job)
}

// ResultRouter sets up the routes for browsing stored result documents.
//
// This function configures the following endpoints:
//   - GET /results: Lists summaries of every stored result, newest first.
//   - DELETE /results/:id: Drops a stored result document.
//   - GET /results/:id/download: Returns the rendered document as a JSON
//     attachment with the canonical download filename.
func ResultRouter(r *gin.RouterGroup) {
	results := r.Group("/results")
	{
		results.GET("", func(c *gin.Context) {
			c.JSON(http.StatusOK, state.results.List())
		})

		results.DELETE("/:id", func(c *gin.Context) {
			if err := state.results.Delete(c.Param("id")); err != nil {
				c.Status(http.StatusNotFound)
				return
			}
			c.Status(http.StatusNoContent)
		})

		// Handler for GET /results/:id/download
		results.GET("/:id/download", func(c *gin.Context) {
			doc, err := state.results.Get(c.Param("id"))
			if err != nil {
				c.Status(http.StatusNotFound)
				return
			}
			rendered, err := state.results.Render(doc)
			if err != nil {
				c.Status(http.StatusInternalServerError)
				return
			}
			c.Header("Content-Disposition", `attachment; filename="`+state.results.DownloadName(doc)+`"`)
			c.Data(http.StatusOK, "application/json; charset=utf-8", rendered)
		})
	}
}

// runtimeSettings is the mutable slice of the configuration exposed over the
// API. Pointer fields distinguish "leave unchanged" from an explicit value.
// Size limits are deliberately absent; they are fixed for the process
// lifetime so every in-flight job sees one consistent set of thresholds.
type runtimeSettings struct {
	ProfessionalPrompt   *string  `json:"professional_prompt,omitempty"`
	CategorizationPrompt *string  `json:"categorization_prompt,omitempty"`
	BasicPrompts         []string `json:"basic_prompts,omitempty"`
	AnalysisModel        *string  `json:"analysis_model,omitempty"`
	CategorizationModel  *string  `json:"categorization_model,omitempty"`
}

// ConfigRouter exposes the runtime-tunable configuration.
//
// This function configures the following endpoints:
//   - GET /config: Returns the current prompts, model ids, and the read-only
//     size limits.
//   - PUT /config: Patches prompts and model ids. Limits cannot be changed
//     at runtime.
func ConfigRouter(r *gin.RouterGroup) {
	cfg := r.Group("/config")
	{
		cfg.GET("", func(c *gin.Context) {
			state.configMu.RLock()
			defer state.configMu.RUnlock()
			c.JSON(http.StatusOK, gin.H{
				"prompt_templates": state.config.PromptTemplates,
				"models": gin.H{
					"analysis":       state.cloud.AgentModels[cloud.AnalysisModelKey].ModelName,
					"categorization": state.cloud.AgentModels[cloud.CategorizationModelKey].ModelName,
				},
				"limits": state.config.Limits,
			})
		})

		cfg.PUT("", func(c *gin.Context) {
			var body runtimeSettings
			if err := c.ShouldBindJSON(&body); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
				return
			}
			if body.BasicPrompts != nil && len(body.BasicPrompts) != 3 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "basic_prompts requires exactly 3 entries"})
				return
			}

			state.configMu.Lock()
			defer state.configMu.Unlock()
			if body.ProfessionalPrompt != nil {
				state.config.PromptTemplates.Professional = *body.ProfessionalPrompt
			}
			if body.CategorizationPrompt != nil {
				// Parse redefines the template body in place, so the running
				// categorizer picks up the change on its next execution.
				if _, err := state.categorization.Parse(*body.CategorizationPrompt); err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": "invalid categorization template: " + err.Error()})
					return
				}
				state.config.PromptTemplates.Categorization = *body.CategorizationPrompt
			}
			if body.BasicPrompts != nil {
				state.config.PromptTemplates.BasicPrompts = body.BasicPrompts
			}
			if body.AnalysisModel != nil {
				state.cloud.AgentModels[cloud.AnalysisModelKey].ModelName = *body.AnalysisModel
			}
			if body.CategorizationModel != nil {
				state.cloud.AgentModels[cloud.CategorizationModelKey].ModelName = *body.CategorizationModel
			}
			c.Status(http.StatusNoContent)
		})
	}
}
