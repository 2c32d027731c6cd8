package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})

	return exporter
}

func TestTraceOp_Success(t *testing.T) {
	exporter := setupTestTracer(t)

	_, end := TraceOp(context.Background(), "redis", "session.get", "lms:session:access_token")
	end(nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "redis.session.get", spans[0].Name)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)

	attrs := make(map[string]string)
	for _, a := range spans[0].Attributes {
		attrs[string(a.Key)] = a.Value.Emit()
	}
	assert.Equal(t, "redis", attrs["db.system"])
	assert.Equal(t, "session.get", attrs["db.operation"])
	assert.Equal(t, "lms:session:access_token", attrs["db.key"])
}

func TestTraceOp_Error(t *testing.T) {
	exporter := setupTestTracer(t)

	_, end := TraceOp(context.Background(), "file", "session.set", "/tmp/session.json")
	end(errors.New("permission denied"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.NotEmpty(t, spans[0].Events)
}

func TestTraceOp_ChildOfParent(t *testing.T) {
	exporter := setupTestTracer(t)

	ctx, parent := otel.Tracer("test").Start(context.Background(), "parent")
	_, end := TraceOp(ctx, "redis", "session.clear", "k")
	end(nil)
	parent.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
}

func TestSlowOpLogging(t *testing.T) {
	setupTestTracer(t)
	t.Cleanup(func() { SetSlowOpLogging(0, nil) })

	t.Run("slow operation logged with error", func(t *testing.T) {
		var buf bytes.Buffer
		SetSlowOpLogging(time.Nanosecond, slog.New(slog.NewJSONHandler(&buf, nil)))

		_, end := TraceOp(context.Background(), "redis", "session.set", "k")
		end(errors.New("READONLY"))

		assert.Contains(t, buf.String(), "slow storage operation")
		assert.Contains(t, buf.String(), "session.set")
		assert.Contains(t, buf.String(), "READONLY")
	})

	t.Run("fast operation not logged", func(t *testing.T) {
		var buf bytes.Buffer
		SetSlowOpLogging(time.Hour, slog.New(slog.NewJSONHandler(&buf, nil)))

		_, end := TraceOp(context.Background(), "redis", "session.get", "k")
		end(nil)

		assert.Empty(t, buf.String())
	})

	t.Run("disabled", func(t *testing.T) {
		SetSlowOpLogging(0, nil)
		_, end := TraceOp(context.Background(), "redis", "session.get", "k")
		end(nil)
	})
}
