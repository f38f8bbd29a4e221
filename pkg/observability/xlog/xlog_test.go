package xlog_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xedge/pkg/observability/xlog"
)

func TestLogger_BasicLogging(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup, err := xlog.New().
		SetOutput(&buf).
		SetLevel(xlog.LevelDebug).
		Build()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, cleanup()) })

	ctx := context.Background()
	logger.Debug(ctx, "debug message")
	logger.Info(ctx, "info message")
	logger.Warn(ctx, "warn message")
	logger.Error(ctx, "error message")

	out := buf.String()
	for _, want := range []string{"debug message", "info message", "warn message", "error message"} {
		assert.Contains(t, out, want)
	}
}

func TestLogger_LevelFilter_DropsBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := xlog.New().SetOutput(&buf).SetLevelString("warn").Build()
	require.NoError(t, err)

	logger.Info(context.Background(), "hidden")
	logger.Warn(context.Background(), "shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	logger.SetLevel(xlog.LevelDebug)
	assert.Equal(t, xlog.LevelDebug, logger.GetLevel())
	assert.True(t, logger.Enabled(context.Background(), xlog.LevelDebug))
}

func TestLogger_JSONDegradedAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := xlog.New().SetOutput(&buf).SetFormat("json").Build()
	require.NoError(t, err)

	logger.With(xlog.Component("xquota")).Warn(context.Background(), "store unavailable",
		xlog.Stage("quota"), xlog.Degraded(), xlog.Err(errors.New("dial tcp: refused")))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "quota", rec[xlog.KeyStage])
	assert.Equal(t, true, rec[xlog.KeyDegraded])
	assert.Equal(t, "xquota", rec[xlog.KeyComponent])
	assert.Equal(t, "dial tcp: refused", rec[xlog.KeyError])
}

func TestLogger_WithGroup_NestsAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := xlog.New().SetOutput(&buf).SetFormat("json").Build()
	require.NoError(t, err)

	logger.WithGroup("req").Info(context.Background(), "m", slog.String("path", "/a"))
	assert.Contains(t, buf.String(), `"req":{"path":"/a"}`)
}

func TestBuilder_InvalidInput_ReturnsError(t *testing.T) {
	_, _, err := xlog.New().SetFormat("xml").Build()
	assert.Error(t, err)

	_, _, err = xlog.New().SetLevelString("loud").Build()
	assert.Error(t, err)

	_, _, err = xlog.New().SetRotation(" ", xlog.Rotation{}).Build()
	assert.Error(t, err)
}

func TestBuilder_Rotation_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edge.log")
	logger, cleanup, err := xlog.New().SetRotation(path, xlog.Rotation{MaxSizeMB: 1}).Build()
	require.NoError(t, err)

	logger.Info(context.Background(), "rotated")
	require.NoError(t, cleanup())
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "rotated"))
}

func TestErr_Nil_ReturnsEmptyAttr(t *testing.T) {
	assert.Equal(t, slog.Attr{}, xlog.Err(nil))
}

func TestDiscard_NeverWrites(t *testing.T) {
	l := xlog.Discard()
	l.Error(context.Background(), "nothing")
	assert.NotNil(t, l.With(xlog.Stage("x")))
}
