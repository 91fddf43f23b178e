package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type stubProvider struct {
	err      error
	deadline bool
}

func (s *stubProvider) Shutdown(ctx context.Context) error {
	_, s.deadline = ctx.Deadline()
	return s.err
}

func TestShutdownReportsError(t *testing.T) {
	want := errors.New("collector unreachable")
	p := &stubProvider{err: want}
	if err := Shutdown(p, time.Second); !errors.Is(err, want) {
		t.Errorf("Expected %v, got %v", want, err)
	}
	if !p.deadline {
		t.Error("Expected shutdown context to carry a deadline")
	}
}

func TestShutdownProvider(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	if err := Shutdown(tp, time.Second); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}

func TestTraceIDWithoutSpan(t *testing.T) {
	if id := TraceID(context.Background()); id != "" {
		t.Errorf("Expected empty trace id, got %q", id)
	}
}
