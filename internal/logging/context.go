// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// requestFields are the per-request identifiers carried through a context
// and stamped onto log records and audit entries.
type requestFields struct {
	requestID     string
	correlationID string
}

type fieldsKey struct{}

func fieldsFrom(ctx context.Context) requestFields {
	f, _ := ctx.Value(fieldsKey{}).(requestFields)
	return f
}

// ContextWithRequestID stores the HTTP request ID in ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	f := fieldsFrom(ctx)
	f.requestID = id
	return context.WithValue(ctx, fieldsKey{}, f)
}

// ContextWithNewCorrelationID stores a fresh eight-character correlation ID.
// The correlation ID ties together the log lines and audit entries of one
// prediction, including work that outlives the request.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	f := fieldsFrom(ctx)
	f.correlationID = uuid.NewString()[:8]
	return context.WithValue(ctx, fieldsKey{}, f)
}

// RequestIDFromContext returns the request ID or "".
func RequestIDFromContext(ctx context.Context) string {
	return fieldsFrom(ctx).requestID
}

// CorrelationIDFromContext returns the correlation ID or "".
func CorrelationIDFromContext(ctx context.Context) string {
	return fieldsFrom(ctx).correlationID
}

// Ctx returns the global logger annotated with the request identifiers in ctx.
//
//	logging.Ctx(ctx).Info().Msg("trend report generated")
func Ctx(ctx context.Context) *zerolog.Logger {
	f := fieldsFrom(ctx)
	zc := global.Load().With()
	if f.correlationID != "" {
		zc = zc.Str("correlation_id", f.correlationID)
	}
	if f.requestID != "" {
		zc = zc.Str("request_id", f.requestID)
	}
	l := zc.Logger()
	return &l
}
