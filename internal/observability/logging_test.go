package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	return m
}

func TestContextHandlerAddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewContextHandler(slog.NewJSONHandler(&buf, nil)))

	ctx := WithSession(context.Background(), "s-1")
	ctx = WithExecution(ctx, "e-1", "A.java")
	logger.InfoContext(ctx, "compiling")

	m := decode(t, &buf)
	if m["session_id"] != "s-1" || m["execution_id"] != "e-1" || m["unit"] != "A.java" {
		t.Fatalf("missing context attributes: %v", m)
	}
}

func TestContextHandlerKeepsExplicitAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewContextHandler(slog.NewJSONHandler(&buf, nil)))

	ctx := WithExecution(context.Background(), "e-1", "A.java")
	logger.InfoContext(ctx, "built", slog.String("unit", "B.java"))

	m := decode(t, &buf)
	if m["unit"] != "B.java" {
		t.Fatalf("unit = %v, want the explicit attribute", m["unit"])
	}
}

func TestFromContextWithoutValues(t *testing.T) {
	if lc := FromContext(context.Background()); lc != (LogContext{}) {
		t.Fatalf("FromContext = %+v, want zero", lc)
	}
}
