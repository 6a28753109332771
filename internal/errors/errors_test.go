package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestBuildError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *BuildError
		expected string
	}{
		{
			name:     "error without cause",
			err:      New(CategoryConfig, SeverityFatal, "configuration invalid"),
			expected: "config (fatal): configuration invalid",
		},
		{
			name:     "error with cause",
			err:      Wrap(fmt.Errorf("file not found"), CategoryConfig, SeverityFatal, "failed to load config"),
			expected: "config (fatal): failed to load config: file not found",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := test.err.Error()
			if result != test.expected {
				t.Errorf("Error() = %q, want %q", result, test.expected)
			}
		})
	}
}

func TestBuildError_WithContext(t *testing.T) {
	err := New(CategoryStore, SeverityWarning, "save failed").
		WithContext("unit", "java:abc").
		WithContext("driver", "sqlite")

	if err.Context == nil {
		t.Fatal("Context should not be nil")
	}
	if err.Context["unit"] != "java:abc" {
		t.Errorf("Context[unit] = %v, want java:abc", err.Context["unit"])
	}
	if err.Context["driver"] != "sqlite" {
		t.Errorf("Context[driver] = %v, want sqlite", err.Context["driver"])
	}
}

type fakeCompileErr struct{ lines []string }

func (e *fakeCompileErr) Error() string                { return "compilation failed" }
func (e *fakeCompileErr) ErrorCategory() ErrorCategory { return CategoryCompile }
func (e *fakeCompileErr) Details() []string            { return e.lines }

func TestIsCategory(t *testing.T) {
	configErr := New(CategoryConfig, SeverityFatal, "config error")
	storeErr := New(CategoryStore, SeverityWarning, "store error")
	compileErr := fmt.Errorf("build A.java: %w", &fakeCompileErr{})
	standardErr := fmt.Errorf("standard error")

	tests := []struct {
		name     string
		err      error
		category ErrorCategory
		expected bool
	}{
		{"config error matches config category", configErr, CategoryConfig, true},
		{"config error doesn't match store category", configErr, CategoryStore, false},
		{"store error matches store category", storeErr, CategoryStore, true},
		{"wrapped domain error is classified", compileErr, CategoryCompile, true},
		{"standard error is internal", standardErr, CategoryInternal, true},
		{"nil error matches nothing", nil, CategoryInternal, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsCategory(test.err, test.category)
			if result != test.expected {
				t.Errorf("IsCategory() = %v, want %v", result, test.expected)
			}
		})
	}
}

func TestConvenienceFunctions(t *testing.T) {
	t.Run("ConfigNotFound", func(t *testing.T) {
		err := ConfigNotFound("/path/to/javabuild.yaml")
		if err.Category != CategoryConfig {
			t.Errorf("Category = %v, want %v", err.Category, CategoryConfig)
		}
		if err.Severity != SeverityFatal {
			t.Errorf("Severity = %v, want %v", err.Severity, SeverityFatal)
		}
		if err.Context["path"] != "/path/to/javabuild.yaml" {
			t.Errorf("Context[path] = %v, want /path/to/javabuild.yaml", err.Context["path"])
		}
	})

	t.Run("StoreError", func(t *testing.T) {
		cause := fmt.Errorf("disk full")
		err := StoreError("save", cause)
		if err.Category != CategoryStore {
			t.Errorf("Category = %v, want %v", err.Category, CategoryStore)
		}
		if !stdErrors.Is(err, cause) {
			t.Errorf("Cause should match wrapped cause: %v", cause)
		}
	})

	t.Run("ValidationFailed", func(t *testing.T) {
		err := ValidationFailed("compiler.kind", "unsupported value")
		if err.Category != CategoryValidation {
			t.Errorf("Category = %v, want %v", err.Category, CategoryValidation)
		}
		if err.Context["field"] != "compiler.kind" {
			t.Errorf("Context[field] = %v, want compiler.kind", err.Context["field"])
		}
		if err.Context["reason"] != "unsupported value" {
			t.Errorf("Context[reason] = %v, want unsupported value", err.Context["reason"])
		}
	})
}
