package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/dmitrymomot/persistfsm/pkg/logger"
)

type entityKey struct{}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec))
	return rec
}

func TestNewDefaults(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf))

	log.Debug("guard evaluated")
	assert.Zero(t, buf.Len(), "debug must be filtered at the default level")

	log.Info("state changed", logger.Trigger("approve"))
	rec := decodeLine(t, &buf)
	assert.Equal(t, "state changed", rec["msg"])
	assert.Equal(t, "approve", rec["trigger"])
}

func TestEnvironmentProfiles(t *testing.T) {
	tests := []struct {
		env      string
		wantEnv  string
		debug    bool
		wantJSON bool
	}{
		{logger.EnvDevelopment, logger.EnvDevelopment, true, false},
		{logger.EnvStaging, logger.EnvStaging, false, true},
		{"stage", logger.EnvStaging, false, true},
		{logger.EnvProduction, logger.EnvProduction, false, true},
		{"prod", logger.EnvProduction, false, true},
		{"qa", logger.EnvDevelopment, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			var buf bytes.Buffer
			log := logger.New(logger.WithEnvironment(tt.env, "fsmctl"), logger.WithOutput(&buf))

			assert.Equal(t, tt.debug, log.Enabled(context.Background(), slog.LevelDebug))

			log.Info("snapshot stored")
			out := buf.String()
			if tt.wantJSON {
				rec := decodeLine(t, &buf)
				assert.Equal(t, "fsmctl", rec["service"])
				assert.Equal(t, tt.wantEnv, rec["env"])
				return
			}
			assert.Contains(t, out, "service=fsmctl")
			assert.Contains(t, out, "env="+tt.wantEnv)
		})
	}
}

func TestEnvironmentWithoutService(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.WithDevelopment(""), logger.WithOutput(&buf))

	log.Info("loaded")
	rec := decodeLine(t, &buf)
	assert.NotContains(t, rec, "service")
	assert.False(t, log.Enabled(context.Background(), slog.LevelDebug))
}

func TestLaterOptionsOverride(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(
		logger.WithProduction("fsmctl"),
		logger.WithLevel(slog.LevelDebug),
		logger.WithTextFormatter(),
		logger.WithOutput(&buf),
	)

	log.Debug("hook ran", logger.Phase("before"))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "time="), "expected text output, got %q", out)
	assert.Contains(t, out, "phase=before")
	assert.Contains(t, out, "env=production")
}

func TestWithLevelName(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"Error": slog.LevelError,
	} {
		log := logger.New(logger.WithLevelName(name), logger.WithOutput(&bytes.Buffer{}))
		assert.True(t, log.Enabled(context.Background(), want), name)
		assert.False(t, log.Enabled(context.Background(), want-1), name)
	}

	unchanged := logger.New(logger.WithLevelName(""), logger.WithOutput(&bytes.Buffer{}))
	assert.True(t, unchanged.Enabled(context.Background(), slog.LevelInfo))

	assert.Panics(t, func() {
		logger.New(logger.WithLevelName("chatty"))
	})
}

func TestWithFormatRejectsUnknown(t *testing.T) {
	assert.Panics(t, func() { logger.WithFormat("xml") })
	assert.NotPanics(t, func() { logger.WithFormat(logger.FormatJSON) })
}

func TestWithAttr(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(
		logger.WithAttr(logger.Component("pgstore"), logger.Entity("purchase_order")),
		logger.WithOutput(&buf),
	)

	log.Info("migrated")
	rec := decodeLine(t, &buf)
	assert.Equal(t, "pgstore", rec["component"])
	assert.Equal(t, "purchase_order", rec["entity"])
}

func TestContextExtractors(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithContextExtractors(nil, func(ctx context.Context) (slog.Attr, bool) {
			id, ok := ctx.Value(entityKey{}).(string)
			if !ok {
				return slog.Attr{}, false
			}
			return logger.PersistentID(id), true
		}),
	)

	t.Run("value present", func(t *testing.T) {
		buf.Reset()
		ctx := context.WithValue(context.Background(), entityKey{}, "42")
		log.InfoContext(ctx, "resumed")
		assert.Equal(t, "42", decodeLine(t, &buf)["persistent_id"])
	})

	t.Run("value absent", func(t *testing.T) {
		buf.Reset()
		log.InfoContext(context.Background(), "created")
		assert.NotContains(t, decodeLine(t, &buf), "persistent_id")
	})

	t.Run("survives With and WithGroup", func(t *testing.T) {
		buf.Reset()
		ctx := context.WithValue(context.Background(), entityKey{}, "7")
		log.With(logger.Component("engine")).WithGroup("fire").InfoContext(ctx, "fired", logger.Trigger("send"))

		rec := decodeLine(t, &buf)
		assert.Equal(t, "engine", rec["component"])
		group, ok := rec["fire"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "send", group["trigger"])
		assert.Equal(t, "7", group["persistent_id"])
	})
}

func TestWithTraceContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithTraceContext())

	log.InfoContext(context.Background(), "untraced")
	assert.NotContains(t, decodeLine(t, &buf), "trace")

	buf.Reset()
	ctx, span := tp.Tracer("test").Start(context.Background(), "statemachine.Fire")
	log.InfoContext(ctx, "traced")
	span.End()

	rec := decodeLine(t, &buf)
	tr, ok := rec["trace"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, span.SpanContext().TraceID().String(), tr["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), tr["span_id"])
}

func TestSetAsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger.SetAsDefault(logger.New(logger.WithOutput(&buf)))
	slog.Info("default logger", logger.State("approved"))

	assert.Equal(t, "approved", decodeLine(t, &buf)["state"])
}
