package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanOperation represents a traced store operation.
type SpanOperation string

const (
	SpanOperationDBQuery  SpanOperation = "db.query"
	SpanOperationDBCount  SpanOperation = "db.count"
	SpanOperationDBInsert SpanOperation = "db.insert"
	SpanOperationDBUpdate SpanOperation = "db.update"
	SpanOperationDBDelete SpanOperation = "db.delete"

	SpanOperationCacheGet  SpanOperation = "cache.get"
	SpanOperationCacheSet  SpanOperation = "cache.set"
	SpanOperationCacheIncr SpanOperation = "cache.incr"
)

// StartDatabaseSpan starts a client span for a document store operation on collection.
func StartDatabaseSpan(ctx context.Context, operation SpanOperation, collection string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	name := fmt.Sprintf("DB %s", operation)
	if collection != "" {
		name = fmt.Sprintf("DB %s %s", operation, collection)
	}

	ctx, span := otel.Tracer("marketplace/store").Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("db.system", "mongodb"),
		attribute.String("db.operation", string(operation)),
		attribute.String("db.collection", collection),
	)
	span.SetAttributes(attrs...)
	return ctx, span
}

// StartCacheSpan starts a client span for a Redis operation on key.
func StartCacheSpan(ctx context.Context, operation SpanOperation, key string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("marketplace/cache").Start(ctx, fmt.Sprintf("Cache %s", operation), trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("cache.system", "redis"),
		attribute.String("cache.operation", string(operation)),
		attribute.String("cache.key", key),
	)
	return ctx, span
}

// End closes span, recording err when non-nil.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
