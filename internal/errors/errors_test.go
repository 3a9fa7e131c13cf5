package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorCodes(t *testing.T) {
	codes := []ErrorCode{
		CodeUnknown,
		CodeValidation,
		CodeConfiguration,
		CodeCanceled,
		CodeTimeout,
		CodeConnectionRefused,
		CodeUnreachable,
		CodeTargetInvalid,
		CodeSourceEmpty,
		CodeSourceParse,
		CodeFileNotFound,
		CodeSinkOpen,
		CodeSinkWrite,
		CodeRateLimited,
	}

	for _, code := range codes {
		if string(code) == "" {
			t.Errorf("Error code %v should not be empty", code)
		}
	}
}

func TestProbeError(t *testing.T) {
	t.Run("basic error creation", func(t *testing.T) {
		err := NewProbeError(CodeTimeout, "probe timed out")
		if err.Code != CodeTimeout {
			t.Errorf("Expected code %s, got %s", CodeTimeout, err.Code)
		}
		if err.Message != "probe timed out" {
			t.Errorf("Expected message 'probe timed out', got '%s'", err.Message)
		}
		if err.Context == nil {
			t.Error("Context should be initialized")
		}
	})

	t.Run("error with target", func(t *testing.T) {
		err := NewProbeErrorWithTarget(CodeUnreachable, "host down", "203.0.114.7")
		if err.Target != "203.0.114.7" {
			t.Errorf("Expected target '203.0.114.7', got '%s'", err.Target)
		}
		expected := "[UNREACHABLE] host down (target: 203.0.114.7)"
		if err.Error() != expected {
			t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
		}
	})

	t.Run("error without target", func(t *testing.T) {
		err := NewProbeError(CodeValidation, "validation failed")
		expected := "[VALIDATION] validation failed"
		if err.Error() != expected {
			t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
		}
	})

	t.Run("wrapped error", func(t *testing.T) {
		cause := fmt.Errorf("network error")
		err := WrapProbeError(CodeUnreachable, "network issue", cause)
		if err.Unwrap() != cause {
			t.Error("Wrapped error should be unwrappable")
		}
		if err.Cause != cause {
			t.Error("Cause should be set correctly")
		}
	})

	t.Run("wrapped error with target", func(t *testing.T) {
		cause := fmt.Errorf("connection refused")
		err := WrapProbeErrorWithTarget(CodeConnectionRefused, "cannot connect", "8.8.8.8", cause)
		if err.Target != "8.8.8.8" {
			t.Errorf("Expected target '8.8.8.8', got '%s'", err.Target)
		}
		if err.Unwrap() != cause {
			t.Error("Should unwrap to original error")
		}
	})

	t.Run("with context", func(t *testing.T) {
		err := NewProbeError(CodeTimeout, "timeout occurred")
		err.WithContext("budget", "1500ms").WithContext("ports", 4)

		if err.Context["budget"] != "1500ms" {
			t.Errorf("Expected budget '1500ms', got %v", err.Context["budget"])
		}
		if err.Context["ports"] != 4 {
			t.Errorf("Expected ports 4, got %v", err.Context["ports"])
		}
	})
}

func TestSourceError(t *testing.T) {
	t.Run("basic source error", func(t *testing.T) {
		err := NewSourceError(CodeSourceEmpty, "no addresses")
		if err.Code != CodeSourceEmpty {
			t.Errorf("Expected code %s, got %s", CodeSourceEmpty, err.Code)
		}
		expected := "[SOURCE_EMPTY] no addresses"
		if err.Error() != expected {
			t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
		}
	})

	t.Run("source error with source name", func(t *testing.T) {
		err := NewSourceError(CodeSourceParse, "bad block")
		err.Source = "cidr"
		expected := "[SOURCE_PARSE] bad block (source: cidr)"
		if err.Error() != expected {
			t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
		}
	})

	t.Run("wrapped source error", func(t *testing.T) {
		cause := fmt.Errorf("open failed")
		err := WrapSourceError(CodeFileNotFound, "target file missing", cause)
		if err.Unwrap() != cause {
			t.Error("Should unwrap to original error")
		}
	})
}

func TestSinkError(t *testing.T) {
	t.Run("basic sink error", func(t *testing.T) {
		err := NewSinkError(CodeSinkWrite, "write failed", "pulse_results.log")
		if err.Code != CodeSinkWrite {
			t.Errorf("Expected code %s, got %s", CodeSinkWrite, err.Code)
		}
		expected := "[SINK_WRITE] write failed (path: pulse_results.log)"
		if err.Error() != expected {
			t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
		}
	})

	t.Run("wrapped sink error", func(t *testing.T) {
		cause := fmt.Errorf("permission denied")
		err := ErrSinkOpen("/var/log/pulse.log", cause)
		if err.Unwrap() != cause {
			t.Error("Should unwrap to original error")
		}
		if !errors.Is(err, cause) {
			t.Error("errors.Is should see the cause through the wrapper")
		}
	})
}

func TestConfigError(t *testing.T) {
	t.Run("basic config error", func(t *testing.T) {
		err := NewConfigError(CodeConfiguration, "config invalid")
		if err.Code != CodeConfiguration {
			t.Errorf("Expected code %s, got %s", CodeConfiguration, err.Code)
		}
		expected := "[CONFIGURATION] config invalid"
		if err.Error() != expected {
			t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
		}
	})

	t.Run("config field error", func(t *testing.T) {
		err := NewConfigFieldError(CodeValidation, "invalid rate", "scan.rate", 0)
		if err.Field != "scan.rate" {
			t.Errorf("Expected field 'scan.rate', got '%s'", err.Field)
		}
		if err.Value != 0 {
			t.Errorf("Expected value 0, got %v", err.Value)
		}
		expected := "[VALIDATION] invalid rate (field: scan.rate)"
		if err.Error() != expected {
			t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
		}
	})

	t.Run("wrapped config error", func(t *testing.T) {
		cause := fmt.Errorf("file not found")
		err := WrapConfigError(CodeFileNotFound, "config file missing", cause)
		if err.Unwrap() != cause {
			t.Error("Should unwrap to original error")
		}
	})
}

func TestUtilityFunctions(t *testing.T) {
	t.Run("IsCode", func(t *testing.T) {
		tests := []struct {
			name     string
			err      error
			code     ErrorCode
			expected bool
		}{
			{
				name:     "probe error matches",
				err:      NewProbeError(CodeTimeout, "timeout"),
				code:     CodeTimeout,
				expected: true,
			},
			{
				name:     "probe error does not match",
				err:      NewProbeError(CodeTimeout, "timeout"),
				code:     CodeValidation,
				expected: false,
			},
			{
				name:     "source error matches",
				err:      NewSourceError(CodeSourceEmpty, "empty"),
				code:     CodeSourceEmpty,
				expected: true,
			},
			{
				name:     "sink error matches",
				err:      NewSinkError(CodeSinkOpen, "open failed", "out.log"),
				code:     CodeSinkOpen,
				expected: true,
			},
			{
				name:     "config error matches",
				err:      NewConfigError(CodeConfiguration, "config error"),
				code:     CodeConfiguration,
				expected: true,
			},
			{
				name:     "standard error",
				err:      fmt.Errorf("standard error"),
				code:     CodeUnknown,
				expected: false,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				result := IsCode(tt.err, tt.code)
				if result != tt.expected {
					t.Errorf("Expected %v, got %v", tt.expected, result)
				}
			})
		}
	})

	t.Run("GetCode", func(t *testing.T) {
		tests := []struct {
			name     string
			err      error
			expected ErrorCode
		}{
			{
				name:     "probe error",
				err:      NewProbeError(CodeTimeout, "timeout"),
				expected: CodeTimeout,
			},
			{
				name:     "source error",
				err:      NewSourceError(CodeSourceParse, "parse failed"),
				expected: CodeSourceParse,
			},
			{
				name:     "sink error",
				err:      NewSinkError(CodeSinkWrite, "write failed", "out.log"),
				expected: CodeSinkWrite,
			},
			{
				name:     "config error",
				err:      NewConfigError(CodeConfiguration, "config error"),
				expected: CodeConfiguration,
			},
			{
				name:     "standard error",
				err:      fmt.Errorf("standard error"),
				expected: CodeUnknown,
			},
			{
				name:     "wrapped source error",
				err:      fmt.Errorf("loading targets: %w", NewSourceError(CodeFileNotFound, "missing file")),
				expected: CodeFileNotFound,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				result := GetCode(tt.err)
				if result != tt.expected {
					t.Errorf("Expected %v, got %v", tt.expected, result)
				}
			})
		}
	})

	t.Run("IsFatal", func(t *testing.T) {
		tests := []struct {
			name     string
			err      error
			expected bool
		}{
			{
				name:     "configuration error is fatal",
				err:      NewConfigError(CodeConfiguration, "bad config"),
				expected: true,
			},
			{
				name:     "validation error is fatal",
				err:      ErrConfigInvalid("scan.rate", 0),
				expected: true,
			},
			{
				name:     "sink open failure is fatal",
				err:      ErrSinkOpen("out.log", fmt.Errorf("denied")),
				expected: true,
			},
			{
				name:     "probe timeout is not fatal",
				err:      NewProbeErrorWithTarget(CodeTimeout, "probe timed out", "8.8.8.8"),
				expected: false,
			},
			{
				name:     "unreachable host is not fatal",
				err:      NewProbeErrorWithTarget(CodeUnreachable, "host unreachable", "8.8.8.8"),
				expected: false,
			},
			{
				name:     "fatal code survives wrapping",
				err:      fmt.Errorf("opening hit log: %w", ErrSinkOpen("out.log", fmt.Errorf("denied"))),
				expected: true,
			},
			{
				name:     "non-fatal code survives wrapping",
				err:      fmt.Errorf("probing: %w", NewProbeError(CodeTimeout, "timed out")),
				expected: false,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				result := IsFatal(tt.err)
				if result != tt.expected {
					t.Errorf("Expected %v, got %v", tt.expected, result)
				}
			})
		}
	})
}

func TestCommonErrorCreators(t *testing.T) {
	t.Run("ErrConfigMissing", func(t *testing.T) {
		err := ErrConfigMissing("scan.ports")
		if err.Code != CodeConfiguration {
			t.Errorf("Expected code %s, got %s", CodeConfiguration, err.Code)
		}
		if err.Field != "scan.ports" {
			t.Errorf("Expected field 'scan.ports', got '%s'", err.Field)
		}
	})
}
