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

// Package telemetry provides utilities for setting up and configuring
// application observability, including logging, tracing, and metrics.
// This file wires structured logging: slog JSON output shaped for Google
// Cloud Logging, with the active trace context injected into every record so
// pipeline logs correlate with their spans.
package telemetry

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

// logFileName is the local copy of the log stream, written alongside stdout.
const logFileName = "app.log"

// traceContextHandler wraps another slog.Handler and stamps each record with
// the Cloud Logging trace correlation fields when a span is active.
type traceContextHandler struct {
	slog.Handler
}

// Handle injects the trace id, span id, and sampling flag using the field
// names Cloud Logging recognizes for log/trace correlation.
// See https://cloud.google.com/logging/docs/structured-logging#special-payload-fields
func (h *traceContextHandler) Handle(ctx context.Context, record slog.Record) error {
	if s := trace.SpanContextFromContext(ctx); s.IsValid() {
		record.AddAttrs(
			slog.Any("logging.googleapis.com/trace", s.TraceID()),
			slog.Any("logging.googleapis.com/spanId", s.SpanID()),
			slog.Bool("logging.googleapis.com/trace_sampled", s.TraceFlags().IsSampled()),
		)
	}
	return h.Handler.Handle(ctx, record)
}

// renameForCloudLogging maps slog's default attribute keys onto the names
// Cloud Logging parses for severity, timestamp, and message. slog's WARN
// level must also be spelled WARNING to match the LogSeverity enum.
func renameForCloudLogging(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.LevelKey:
		a.Key = "severity"
		if level := a.Value.Any().(slog.Level); level == slog.LevelWarn {
			a.Value = slog.StringValue("WARNING")
		}
	case slog.TimeKey:
		a.Key = "timestamp"
	case slog.MessageKey:
		a.Key = "message"
	}
	return a
}

// SetupLogging configures both the standard log package and slog to write
// JSON records to stdout and a local log file. The slog default handler is
// replaced process-wide, so every package logs through the same pipeline.
func SetupLogging() {
	file, _ := os.Create(logFileName)
	sink := io.MultiWriter(os.Stdout, file)

	log.SetOutput(sink)
	log.SetPrefix("[INFO] ")
	log.SetFlags(log.Ldate | log.Ltime)

	jsonHandler := slog.NewJSONHandler(sink, &slog.HandlerOptions{ReplaceAttr: renameForCloudLogging})
	slog.SetDefault(slog.New(&traceContextHandler{Handler: jsonHandler}))
	slog.SetLogLoggerLevel(slog.LevelInfo)
}
