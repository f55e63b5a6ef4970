package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"go.opentelemetry.io/otel/trace"

	"github.com/stretchr/testify/require"

	"github.com/dawidpereira/quetty-sub002/internal/logging"
)

func TestInit_RespectsConfiguredLevel(t *testing.T) {
	logger := logging.Init(logging.Config{Level: "WARN", Format: "JSON"})
	require.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	require.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
}

func TestInit_DefaultsToInfoOnUnknownLevel(t *testing.T) {
	logger := logging.Init(logging.Config{Level: "", Format: "JSON"})
	require.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
	require.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestL_FallsBackToSlogDefaultBeforeInit(t *testing.T) {
	require.NotNil(t, logging.L())
}

func TestTraceHandler_AttachesTraceAndSpanIDsWhenSpanValid(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, nil)
	handler := logging.NewTraceHandler(base)
	logger := slog.New(handler)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    [16]byte{1},
		SpanID:     [8]byte{2},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	logger.InfoContext(ctx, "queue switched")

	require.Contains(t, buf.String(), "trace_id")
	require.Contains(t, buf.String(), "span_id")
}

func TestTraceHandler_OmitsTraceIDWithoutActiveSpan(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, nil)
	handler := logging.NewTraceHandler(base)
	logger := slog.New(handler)

	logger.InfoContext(context.Background(), "no span here")

	require.NotContains(t, buf.String(), "trace_id")
}
