package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLevel("debug"))
	require.Equal(t, slog.LevelWarn, parseLevel("WARNING"))
	require.Equal(t, slog.LevelError, parseLevel("error"))
	require.Equal(t, slog.LevelInfo, parseLevel("nonsense"))
}

func TestComponentAndContext(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "debug", true)

	l := Component("room", "match_id", "m1")
	ctx := WithLogger(context.Background(), l)
	FromContext(ctx).Info("settled")

	out := buf.String()
	require.Contains(t, out, `"component":"room"`)
	require.Contains(t, out, `"match_id":"m1"`)
	require.Contains(t, out, `"msg":"settled"`)

	require.Equal(t, Get(), FromContext(context.Background()))
}
