package tracing

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var line map[string]any
		require.NoError(t, dec.Decode(&line))
		out = append(out, line)
	}
	return out
}

func TestNewInstallsGlobalProvider(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	recorder := tracetest.NewSpanRecorder()
	tp := New("lucy-test", log, sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { Shutdown(context.Background(), tp, log) })

	ctx, parent := otel.Tracer("lucy/test").Start(context.Background(), "orchestrator.query")
	_, child := otel.Tracer("lucy/test").Start(ctx, "responder.query")
	child.SetAttributes(attribute.String("lucy.domain", "data"))
	child.End()
	parent.End()

	t.Run("spans carry real ids", func(t *testing.T) {
		ended := recorder.Ended()
		require.Len(t, ended, 2)
		assert.True(t, ended[0].SpanContext().IsValid())
		assert.Equal(t, ended[1].SpanContext().TraceID(), ended[0].SpanContext().TraceID())
		assert.Equal(t, ended[1].SpanContext().SpanID(), ended[0].Parent().SpanID())
	})

	t.Run("finished spans are logged", func(t *testing.T) {
		lines := decodeLines(t, &buf)
		require.Len(t, lines, 2)
		assert.Equal(t, "responder.query", lines[0]["span"])
		assert.Equal(t, "data", lines[0]["lucy.domain"])
		assert.Equal(t, "DEBUG", lines[0]["level"])
		assert.NotEmpty(t, lines[0]["parent_span_id"])
		assert.Equal(t, lines[0]["trace_id"], lines[1]["trace_id"])
		assert.NotContains(t, lines[1], "parent_span_id")
	})
}

func TestFailedSpanIsLoggedAtWarn(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(&logProcessor{logger: log}))
	t.Cleanup(func() { Shutdown(context.Background(), tp, log) })

	_, quick := tp.Tracer("lucy/test").Start(context.Background(), "gate.evaluate")
	quick.End()
	_, failed := tp.Tracer("lucy/test").Start(context.Background(), "responder.query")
	failed.SetStatus(codes.Error, "timeout")
	failed.End()

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1, "debug spans are dropped at info level")
	assert.Equal(t, "WARN", lines[0]["level"])
	assert.Equal(t, "timeout", lines[0]["status"])
}
