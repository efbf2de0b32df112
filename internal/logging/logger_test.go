package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogger(t *testing.T) {
	originalLogger := defaultLogger
	defer func() {
		defaultLogger = originalLogger
	}()

	testCases := []struct {
		name      string
		level     LogLevel
		wantDebug bool
		wantInfo  bool
	}{
		{name: "Debug level", level: LevelDebug, wantDebug: true, wantInfo: true},
		{name: "Info level", level: LevelInfo, wantInfo: true},
		{name: "Warn level", level: LevelWarn},
		{name: "Error level", level: LevelError},
		{name: "Invalid level defaults to Info", level: LogLevel("invalid"), wantInfo: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			SetupLogger(&buf, tc.level)
			require.NotNil(t, defaultLogger)

			Debug("debug message")
			Info("info message")

			output := buf.String()
			assert.Equal(t, tc.wantDebug, strings.Contains(output, "debug message"))
			assert.Equal(t, tc.wantInfo, strings.Contains(output, "info message"))
		})
	}
}

func TestConfigureJSON(t *testing.T) {
	originalLogger := defaultLogger
	defer func() {
		defaultLogger = originalLogger
	}()

	var buf bytes.Buffer
	Configure(&buf, LevelInfo, FormatJSON)
	Warn("fetch failed", "attempt", 2)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "fetch failed", line["msg"])
	assert.Equal(t, 2.0, line["attempt"])
}

func TestLoggingFunctions(t *testing.T) {
	originalLogger := defaultLogger
	defer func() {
		defaultLogger = originalLogger
	}()

	var buf bytes.Buffer
	SetupLogger(&buf, LevelDebug)

	tests := []struct {
		name    string
		logFunc func(string, ...any)
		level   string
		message string
	}{
		{name: "Debug logging", logFunc: Debug, level: "DEBUG", message: "debug message"},
		{name: "Info logging", logFunc: Info, level: "INFO", message: "info message"},
		{name: "Warn logging", logFunc: Warn, level: "WARN", message: "warn message"},
		{name: "Error logging", logFunc: Error, level: "ERROR", message: "error message"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf.Reset()

			tc.logFunc(tc.message, "key", "value")

			output := buf.String()
			assert.Contains(t, output, "level="+tc.level)
			assert.Contains(t, output, tc.message)
			assert.Contains(t, output, "key=value")
		})
	}
}

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		input    string
		expected LogLevel
	}{
		{input: "debug", expected: LevelDebug},
		{input: " DEBUG ", expected: LevelDebug},
		{input: "Warn", expected: LevelWarn},
		{input: "warning", expected: LevelWarn},
		{input: "error", expected: LevelError},
		{input: "", expected: LevelInfo},
		{input: "verbose", expected: LevelInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseLevel(tc.input))
		})
	}
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger())
}

func TestMaskSensitive(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Empty string", input: "", expected: "<not set>"},
		{name: "Short string", input: "abc", expected: "<set>"},
		{name: "Exactly 4 characters", input: "abcd", expected: "<set>"},
		{name: "Long string", input: "abcdefghijklm", expected: "abcd...***"},
		{name: "Token-like string", input: "2Dn5j8fk39Dkf0s", expected: "2Dn5...***"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, MaskSensitive(tc.input))
		})
	}
}

func TestRedactURL(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Empty", input: "", expected: "<not set>"},
		{name: "No query", input: "https://docs.example.com/d/e/abc/pub", expected: "https://docs.example.com/d/e/abc/pub"},
		{name: "Query", input: "https://docs.example.com/pub?gid=0&output=csv", expected: "https://docs.example.com/pub?***"},
		{name: "User info", input: "https://user:pw@example.com/sheet.csv", expected: "https://***@example.com/sheet.csv"},
		{name: "At sign in path", input: "https://example.com/a@b", expected: "https://example.com/a@b"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, RedactURL(tc.input))
		})
	}
}
