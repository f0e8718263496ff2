package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFormatIncludesComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: LevelDebug, Format: "json", Output: &buf, Component: "scheduler"})

	l.Info(context.Background(), "rebuilding code", "entrypoint", "s#h")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "scheduler", decoded["component"])
	assert.Equal(t, "s#h", decoded["entrypoint"])
	assert.Equal(t, "rebuilding code", decoded["msg"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: LevelWarn, Format: "text", Output: &buf})

	l.Debug(context.Background(), "should not appear")
	l.Info(context.Background(), "should not appear either")
	assert.Empty(t, buf.String())

	l.Warn(context.Background(), errors.New("boom"), "should appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestWith_CarriesFieldsForward(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: LevelDebug, Format: "text", Output: &buf})

	child := l.With("src_path", "handlers/foo")
	child.Info(context.Background(), "dirty")

	assert.Contains(t, buf.String(), "src_path=handlers/foo")
}

func TestWithComponent_Overrides(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: LevelDebug, Format: "text", Output: &buf, Component: "root"})

	child := l.WithComponent("cdkstate")
	child.Info(context.Background(), "idle")

	assert.Contains(t, buf.String(), "component=cdkstate")
	assert.False(t, strings.Contains(buf.String(), "component=root"))
}

func TestSanitizeForLog_RedactsSecrets(t *testing.T) {
	assert.Equal(t, "[REDACTED]", SanitizeForLog("my-token=abc123"))
	assert.Equal(t, "fine", SanitizeForLog("fine"))
}

func TestSanitizeForLog_Truncates(t *testing.T) {
	long := strings.Repeat("a", 2000)
	got := SanitizeForLog(long)
	assert.Less(t, len(got), len(long))
	assert.Contains(t, got, "[TRUNCATED]")
}

func TestPerfLogger_EndLogsDuration(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: LevelDebug, Format: "text", Output: &buf})

	op := l.StartOperation("build")
	op.End(context.Background())

	assert.Contains(t, buf.String(), "operation=build")
	assert.Contains(t, buf.String(), "duration_ms")
}

func TestMultiLogger_FansOutToAllSinks(t *testing.T) {
	var a, b bytes.Buffer
	la := New(&Config{Level: LevelDebug, Format: "text", Output: &a})
	lb := New(&Config{Level: LevelDebug, Format: "text", Output: &b})

	m := NewMultiLogger(la, lb)
	m.Info(context.Background(), "done building code")

	assert.Contains(t, a.String(), "done building code")
	assert.Contains(t, b.String(), "done building code")
}
