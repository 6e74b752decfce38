package common

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSeverityString(t *testing.T) {
	tests := []struct {
		severity Severity
		expected string
		level    logrus.Level
	}{
		{SeverityDebug, "DEBUG", logrus.DebugLevel},
		{SeverityInfo, "INFO", logrus.InfoLevel},
		{SeverityWarning, "WARNING", logrus.WarnLevel},
		{SeverityError, "ERROR", logrus.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.severity.String(); got != tt.expected {
				t.Errorf("Severity.String() = %v, want %v", got, tt.expected)
			}
			if got := tt.severity.Level(); got != tt.level {
				t.Errorf("Severity.Level() = %v, want %v", got, tt.level)
			}
		})
	}
}

func TestLogrusLogger_Log(t *testing.T) {
	var out bytes.Buffer
	logger := NewLogrusLoggerWithWriter(&out, SeverityDebug)

	tests := []struct {
		name     string
		severity Severity
		message  string
		level    string
	}{
		{"Debug", SeverityDebug, "debug message", "level=debug"},
		{"Info", SeverityInfo, "info message", "level=info"},
		{"Warning", SeverityWarning, "warning message", "level=warning"},
		{"Error", SeverityError, "error message", "level=error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			logger.Log(tt.severity, tt.message)

			output := out.String()
			if !strings.Contains(output, tt.message) {
				t.Errorf("Log output should contain %q, got: %s", tt.message, output)
			}
			if !strings.Contains(output, tt.level) {
				t.Errorf("Log output should contain %q, got: %s", tt.level, output)
			}
		})
	}
}

func TestLogrusLogger_Logf(t *testing.T) {
	var out bytes.Buffer
	logger := NewLogrusLoggerWithWriter(&out, SeverityInfo)

	logger.Logf(SeverityInfo, "formatted %s %d", "test", 123)

	if !strings.Contains(out.String(), "formatted test 123") {
		t.Errorf("Logf output should contain formatted message, got: %s", out.String())
	}
}

func TestLogrusLogger_Error(t *testing.T) {
	var out bytes.Buffer
	logger := NewLogrusLoggerWithWriter(&out, SeverityInfo)

	logger.Error(errors.New("test error"))
	if !strings.Contains(out.String(), "test error") {
		t.Errorf("Error output should contain error message, got: %s", out.String())
	}

	out.Reset()
	logger.Error(nil)
	if out.Len() != 0 {
		t.Errorf("Error(nil) should not log anything, got: %s", out.String())
	}
}

func TestLogrusLogger_MinLevel(t *testing.T) {
	var out bytes.Buffer
	logger := NewLogrusLoggerWithWriter(&out, SeverityWarning)

	logger.Debug("debug message")
	logger.Info("info message")
	if out.Len() != 0 {
		t.Errorf("Debug and Info should not be logged when minLevel is Warning, got: %s", out.String())
	}

	logger.Warning("warning message")
	if !strings.Contains(out.String(), "warning message") {
		t.Errorf("Warning should be logged, got: %s", out.String())
	}
}

func TestLogrusLogger_WithField(t *testing.T) {
	var out bytes.Buffer
	logger := NewLogrusLoggerWithWriter(&out, SeverityInfo).WithField("session", "tcp")

	logger.Info("started")
	if !strings.Contains(out.String(), "session=tcp") {
		t.Errorf("expected field in output, got: %s", out.String())
	}
}

func TestNoOpLogger(t *testing.T) {
	logger := NewNoOpLogger()
	if logger == nil {
		t.Fatal("NewNoOpLogger() returned nil")
	}

	// All these should do nothing and not panic
	logger.Log(SeverityInfo, "test")
	logger.Logf(SeverityInfo, "test %s", "formatted")
	logger.Error(errors.New("test error"))
	logger.Debug("debug")
	logger.Info("info")
	logger.Warning("warning")
}
