// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/safepulse/internal/logging"
)

// Topic carries prediction events.
const Topic = "predictions"

// Recorder accepts prediction records from the analytics components.
type Recorder interface {
	Record(ctx context.Context, predictionType PredictionType, input, result any, modelVersion string)
}

// NopRecorder discards every record.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(context.Context, PredictionType, any, any, string) {}

// Bus publishes prediction events on an in-process watermill topic and
// routes them to a Logger.
type Bus struct {
	pubsub *gochannel.GoChannel
	router *message.Router
	logger zerolog.Logger
}

// NewBus wires a gochannel pub/sub and a router whose single handler feeds
// sink. Call Run to start delivering.
func NewBus(sink *Logger, bufferSize int, logger zerolog.Logger) (*Bus, error) {
	wmLogger := watermill.NewSlogLogger(logging.NewSlogLogger("audit-bus"))
	if bufferSize <= 0 {
		bufferSize = DefaultConfig().BufferSize
	}

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: int64(bufferSize),
	}, wmLogger)

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create watermill router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)

	b := &Bus{
		pubsub: pubsub,
		router: router,
		logger: logger.With().Str("component", "audit_bus").Logger(),
	}
	router.AddConsumerHandler("prediction-audit", Topic, pubsub, func(msg *message.Message) error {
		var event Event
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			// Malformed payloads are acknowledged and dropped.
			b.logger.Warn().Err(err).Str("message_id", msg.UUID).Msg("Discarding malformed prediction event")
			return nil
		}
		sink.Log(&event)
		return nil
	})
	return b, nil
}

// Record implements Recorder. Encoding or publish failures are logged and
// never returned to the caller.
func (b *Bus) Record(ctx context.Context, predictionType PredictionType, input, result any, modelVersion string) {
	event := Event{
		ID:            watermill.NewUUID(),
		Timestamp:     time.Now().UTC(),
		Type:          predictionType,
		ModelVersion:  modelVersion,
		RequestID:     logging.RequestIDFromContext(ctx),
		CorrelationID: logging.CorrelationIDFromContext(ctx),
	}
	var err error
	if event.Input, err = json.Marshal(input); err != nil {
		b.logger.Warn().Err(err).Str("type", string(predictionType)).Msg("Failed to encode prediction input")
		return
	}
	if event.Result, err = json.Marshal(result); err != nil {
		b.logger.Warn().Err(err).Str("type", string(predictionType)).Msg("Failed to encode prediction result")
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Warn().Err(err).Msg("Failed to encode prediction event")
		return
	}
	if err := b.pubsub.Publish(Topic, message.NewMessage(event.ID, payload)); err != nil {
		b.logger.Warn().Err(err).Str("type", string(predictionType)).Msg("Failed to publish prediction event")
	}
}

// Run starts the router and blocks until ctx is cancelled.
func (b *Bus) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Running is closed once the router is delivering messages.
func (b *Bus) Running() <-chan struct{} {
	return b.router.Running()
}

// Close stops the router and the pub/sub.
func (b *Bus) Close() error {
	if err := b.router.Close(); err != nil {
		return err
	}
	return b.pubsub.Close()
}
