package logger

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"butterfliy/pkg/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(buf *bytes.Buffer, level zerolog.Level) *zerologLogger {
	zlog := zerolog.New(buf).Level(level)
	return &zerologLogger{logger: &zlog, fields: map[string]interface{}{}}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"console info", &config.LoggingConfig{Level: "info", Format: "console"}, false},
		{"json debug", &config.LoggingConfig{Level: "debug", Format: "json"}, false},
		{"file output", &config.LoggingConfig{Level: "warn", File: filepath.Join(t.TempDir(), "logs", "cli.log")}, false},
		{"invalid level", &config.LoggingConfig{Level: "chatty"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, zerolog.WarnLevel)

	l.Debug("hidden debug")
	l.Info("hidden info")
	l.Warn("visible warn")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible warn")
}

func TestWithFieldsAreCopied(t *testing.T) {
	var buf bytes.Buffer
	base := newBufferLogger(&buf, zerolog.DebugLevel)

	child := base.WithField("component", "api")
	child.WithField("attempt", 2).Info("retrying")
	base.Info("parent message")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), `"component":"api"`)
	assert.Contains(t, string(lines[0]), `"attempt":2`)
	assert.NotContains(t, string(lines[1]), "component")
}

func TestStructuredFieldTypes(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, zerolog.DebugLevel)

	l.WarnWithFields("retry scheduled", map[string]interface{}{
		"attempt":  1,
		"delay":    2 * time.Second,
		"class":    "network",
		"retry":    true,
		"statuses": []string{"502", "503"},
		"cause":    errors.New("connection reset"),
	})

	out := buf.String()
	assert.Contains(t, out, "retry scheduled")
	assert.Contains(t, out, `"attempt":1`)
	assert.Contains(t, out, `"class":"network"`)
	assert.Contains(t, out, `"retry":true`)
	assert.Contains(t, out, `"cause":"connection reset"`)
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, zerolog.DebugLevel)

	assert.Same(t, l, l.WithError(nil))

	l.WithError(errors.New("dial tcp: refused")).Error("request failed")
	assert.Contains(t, buf.String(), "dial tcp: refused")
}

func TestLogExchange(t *testing.T) {
	tl := NewTestLogger()

	LogExchange(tl, "GET", "/api/locations", 200, 10*time.Millisecond)
	LogExchange(tl, "GET", "/api/locations/x", 404, time.Millisecond)
	LogExchange(tl, "GET", "/api/locations", 503, time.Millisecond)

	assert.Len(t, tl.GetMessagesByLevel("DEBUG"), 1)
	assert.Len(t, tl.GetMessagesByLevel("WARN"), 1)
	errs := tl.GetMessagesByLevel("ERROR")
	require.Len(t, errs, 1)
	assert.Equal(t, 503, errs[0].Fields["status_code"])
}

func TestTestLoggerCapturesDerivedContext(t *testing.T) {
	tl := NewTestLogger()
	cause := errors.New("boom")

	tl.WithField("component", "retry").WithError(cause).WarnWithFields("retrying", map[string]interface{}{"attempt": 1})

	msgs := tl.GetMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "WARN", msgs[0].Level)
	assert.Equal(t, "retry", msgs[0].Fields["component"])
	assert.Equal(t, 1, msgs[0].Fields["attempt"])
	assert.Equal(t, cause, msgs[0].Error)
	assert.True(t, tl.HasMessage("retrying"))

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestGlobalLogger(t *testing.T) {
	require.NoError(t, Initialize(&config.LoggingConfig{Level: "disabled", Format: "json"}))
	assert.NotNil(t, GetLogger())

	// must not panic
	WithField("key", "value").Info("with field")
	WithFields(map[string]interface{}{"k1": "v1"}).Info("with fields")
	WithError(errors.New("test")).Error("with error")
}
