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

// Package cloud provides components for interacting with Google Cloud services.
// This file defines the Pub/Sub listener that turns bucket notifications into
// pipeline work. The listener itself is message-agnostic: it hands each raw
// payload to an attached cor.Command and acks only when the command's chain
// finishes without errors, so a failed ingestion is redelivered on the
// subscription's retry policy.
package cloud

import (
	"context"
	"log"

	"cloud.google.com/go/pubsub"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/core/cor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// PubSubListener binds one subscription to one processing command. Listeners
// outlive individual API requests, so they live with the cloud clients rather
// than the HTTP layer.
type PubSubListener struct {
	client       *pubsub.Client
	subscription *pubsub.Subscription
	command      cor.Command
}

// NewPubSubListener creates a listener for the given subscription id. The
// command may be nil at construction and attached later with SetCommand,
// which is how the server wires listeners whose chains need state built
// after the clients exist.
func NewPubSubListener(
	pubsubClient *pubsub.Client,
	subscriptionID string,
	command cor.Command,
) (*PubSubListener, error) {
	return &PubSubListener{
		client:       pubsubClient,
		subscription: pubsubClient.Subscription(subscriptionID),
		command:      command,
	}, nil
}

// SetCommand attaches the processing command if none is set yet. An already
// attached command is never overwritten.
func (m *PubSubListener) SetCommand(command cor.Command) {
	if m.command == nil {
		m.command = command
	}
}

// Listen starts receiving messages in a background goroutine. Canceling ctx
// stops the receive loop, which is how graceful shutdown tears listeners down.
func (m *PubSubListener) Listen(ctx context.Context) {
	log.Printf("listening: %s", m.subscription)

	go func() {
		tracer := otel.Tracer("message-listener")
		err := m.subscription.Receive(ctx, func(_ context.Context, msg *pubsub.Message) {
			m.handleMessage(ctx, tracer, msg)
		})
		if err != nil {
			log.Printf("error receiving data: %v", err)
		}
	}()
}

// handleMessage runs one notification through the attached command under its
// own span. The message is acked only on a clean chain run; an errored run
// leaves the message un-acked so Pub/Sub redelivers it after the deadline.
func (m *PubSubListener) handleMessage(ctx context.Context, tracer trace.Tracer, msg *pubsub.Message) {
	spanCtx, span := tracer.Start(ctx, "receive-message")
	defer span.End()
	span.SetAttributes(attribute.String("msg", string(msg.Data)))
	log.Println("received message")

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(spanCtx)
	chainCtx.Add(cor.CtxIn, string(msg.Data))

	m.command.Execute(chainCtx)

	if chainCtx.HasErrors() {
		span.SetStatus(codes.Error, "failed")
		for _, e := range chainCtx.GetErrors() {
			log.Printf("error executing chain: %v", e)
		}
		return
	}

	span.SetStatus(codes.Ok, "success")
	msg.Ack()
}
