package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestSourceUnavailableIsFatal(t *testing.T) {
	err := SourceUnavailable("payer directory", stderrors.New("connection refused"))

	if !err.IsFatal() {
		t.Error("source unavailable must be fatal")
	}
	if err.GetExitCode() != 2 {
		t.Errorf("exit code = %d, expected 2", err.GetExitCode())
	}
	if !IsSourceUnavailable(err) {
		t.Error("IsSourceUnavailable should recognize the error")
	}
	if err.Context["source"] != "payer directory" {
		t.Errorf("context = %v, expected the source name", err.Context)
	}
}

func TestWriteFailureIsNotFatal(t *testing.T) {
	err := WriteFailure("ENT_1", stderrors.New("disk full"))

	if err.IsFatal() {
		t.Error("a rejected write must not abort the run")
	}
	if err.Category != CategoryWrite {
		t.Errorf("category = %s, expected write", err.Category)
	}
	if err.Context["entry_id"] != "ENT_1" {
		t.Errorf("context = %v, expected the entry ID", err.Context)
	}
}

func TestErrorMessageIncludesSuggestion(t *testing.T) {
	err := New(CategoryValidation, CodeInvalidData, "bad record").WithSuggestion("fix the record")

	if !strings.Contains(err.Error(), "fix the record") {
		t.Errorf("Error() = %q, expected the suggestion", err.Error())
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("root cause")
	err := Wrap(cause, CategoryInternal, CodeUnexpectedError, "wrapped")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped error lost its cause")
	}
	if Wrap(nil, CategoryInternal, CodeUnexpectedError, "nothing") != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestAsEngineError(t *testing.T) {
	engineErr := ValidationError(CodeMissingField, "name", nil, nil)

	extracted, ok := AsEngineError(engineErr)
	if !ok || extracted.Code != CodeMissingField {
		t.Errorf("AsEngineError = %v, %t", extracted, ok)
	}

	if _, ok := AsEngineError(stderrors.New("plain")); ok {
		t.Error("plain errors must not extract as engine errors")
	}
}

func TestExitCodesByCategory(t *testing.T) {
	tests := []struct {
		category Category
		expected int
	}{
		{CategorySource, 2},
		{CategoryValidation, 3},
		{CategoryConfiguration, 4},
		{CategoryWrite, 5},
		{CategoryInternal, 5},
	}

	for _, tt := range tests {
		err := New(tt.category, CodeUnexpectedError, "test")
		if got := err.GetExitCode(); got != tt.expected {
			t.Errorf("exit code for %s = %d, expected %d", tt.category, got, tt.expected)
		}
	}
}

func TestWrapIfNeeded(t *testing.T) {
	original := ConfigurationError("threshold", 1.5, nil)
	rewrapped := WrapIfNeeded(original, CategoryInternal, CodeUnexpectedError, "should not apply")

	if rewrapped.Category != CategoryConfiguration {
		t.Error("an existing engine error must pass through unchanged")
	}

	plain := WrapIfNeeded(stderrors.New("plain"), CategoryInternal, CodeUnexpectedError, "wrapped")
	if plain.Category != CategoryInternal {
		t.Errorf("category = %s, expected internal", plain.Category)
	}
}
