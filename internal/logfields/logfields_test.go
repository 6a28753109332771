package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"Unit", KeyUnit, "java:1234", Unit("java:1234")},
		{"Builder", KeyBuilder, "java", Builder("java")},
		{"Session", KeySession, "s1", Session("s1")},
		{"ExecutionID", KeyExecutionID, "e1", ExecutionID("e1")},
		{"Source", KeySource, "/src/A.java", Source("/src/A.java")},
		{"TargetDir", KeyTargetDir, "/bin", TargetDir("/bin")},
		{"Compiler", KeyCompiler, "javac", Compiler("javac")},
		{"MainClass", KeyMainClass, "p.Main", MainClass("p.Main")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"Stamp", KeyStamp, "content", Stamp("content")},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if tc.attr.Value.String() != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %s", tc.name, tc.attrVal, tc.attr.Value.String())
		}
	}
}

func TestNumericAndErrorHelpers(t *testing.T) {
	if a := Count(3); a.Key != KeyCount || a.Value.Int64() != 3 {
		t.Fatalf("unexpected count attr: %v", a)
	}
	if a := DurationMS(1.5); a.Key != KeyDurationMS || a.Value.Float64() != 1.5 {
		t.Fatalf("unexpected duration attr: %v", a)
	}
	if a := Error(nil); a.Value.String() != "" {
		t.Fatalf("nil error should render empty, got %q", a.Value.String())
	}
	if a := Error(errors.New("boom")); a.Value.String() != "boom" {
		t.Fatalf("unexpected error attr: %v", a)
	}
}
