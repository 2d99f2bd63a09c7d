package observe

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return recorder
}

func TestStartSpan_RecordsSpan(t *testing.T) {
	recorder := installRecorder(t)

	ctx, span := StartSpan(context.Background(), "segment.flush")
	if !trace.SpanContextFromContext(ctx).HasTraceID() {
		t.Error("returned context carries no trace id")
	}
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("recorded spans = %d, want 1", len(ended))
	}
	if got := ended[0].Name(); got != "segment.flush" {
		t.Errorf("span name = %q, want segment.flush", got)
	}
}

func TestLogger_CarriesTraceIDs(t *testing.T) {
	installRecorder(t)

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx, span := StartSpan(context.Background(), "scoring.segment")
	defer span.End()

	Logger(ctx).Info("segment scored")
	line := buf.String()
	if !strings.Contains(line, "trace_id=") || !strings.Contains(line, "span_id=") {
		t.Errorf("log line missing trace correlation: %q", line)
	}

	buf.Reset()
	Logger(context.Background()).Info("no active span")
	if strings.Contains(buf.String(), "trace_id=") {
		t.Errorf("log line has trace_id without a span: %q", buf.String())
	}
}
