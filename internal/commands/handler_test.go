package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-blog/pkg/interfaces"
)

type testMessage struct{}

func (testMessage) Type() string { return "blog.test.message" }

func (testMessage) Validate() error { return nil }

type invalidMessage struct{}

func (invalidMessage) Type() string { return "blog.test.invalid" }

func (invalidMessage) Validate() error {
	return validationError()
}

func validationError() error {
	return errors.New("invalid")
}

func TestHandlerExecuteSuccess(t *testing.T) {
	called := false
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		called = true
		return nil
	})

	if err := h.Execute(context.Background(), testMessage{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !called {
		t.Fatal("expected handler to be invoked")
	}
}

func TestHandlerValidationShortCircuitsExecution(t *testing.T) {
	called := false
	h := NewHandler[invalidMessage](func(ctx context.Context, msg invalidMessage) error {
		called = true
		return nil
	})

	err := h.Execute(context.Background(), invalidMessage{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation category, got %v", err)
	}
	if called {
		t.Fatal("expected handler not to run when validation fails")
	}
}

func TestHandlerContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		called = true
		return nil
	})

	err := h.Execute(ctx, testMessage{})
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}
	if called {
		t.Fatal("expected handler not to run when context is cancelled")
	}
}

func TestHandlerWrapsExecutionError(t *testing.T) {
	execErr := errors.New("boom")
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		return execErr
	})

	err := h.Execute(context.Background(), testMessage{})
	if err == nil {
		t.Fatal("expected wrapped execution error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}
	if !goerrors.HasCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category to propagate, got %v", err)
	}
}

func TestHandlerHonoursTimeoutOption(t *testing.T) {
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(20 * time.Millisecond):
			return nil
		}
	}, WithTimeout[testMessage](10*time.Millisecond))

	err := h.Execute(context.Background(), testMessage{})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category for timeout, got %v", err)
	}
}

func TestHandlerReportsTelemetry(t *testing.T) {
	var got TelemetryInfo
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		return errors.New("boom")
	},
		WithOperation[testMessage]("test.op"),
		WithMessageFields(func(testMessage) map[string]any { return map[string]any{"drafts": true} }),
		WithTelemetry(func(_ context.Context, _ testMessage, info TelemetryInfo) { got = info }),
	)

	if err := h.Execute(context.Background(), testMessage{}); err == nil {
		t.Fatal("expected error")
	}
	if got.Status != TelemetryStatusFailed {
		t.Fatalf("expected failed status, got %q", got.Status)
	}
	if got.Command != "blog.test.message" || got.Operation != "test.op" {
		t.Fatalf("unexpected telemetry identity %+v", got)
	}
	if got.Fields["drafts"] != true {
		t.Fatalf("expected message fields, got %v", got.Fields)
	}
	if got.Error == nil {
		t.Fatal("expected telemetry to carry the error")
	}
}

func TestContentErrorKeepsCause(t *testing.T) {
	cause := errors.New("bad front matter")
	err := ContentError(cause, "site content is invalid")
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be preserved")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation category, got %v", err)
	}
	if ContentError(nil, "x") != nil {
		t.Fatal("expected nil for nil cause")
	}
}

type levelLogger struct {
	levels []string
}

func (l *levelLogger) Trace(string, ...any) { l.levels = append(l.levels, "trace") }
func (l *levelLogger) Debug(string, ...any) { l.levels = append(l.levels, "debug") }
func (l *levelLogger) Info(string, ...any)  { l.levels = append(l.levels, "info") }
func (l *levelLogger) Warn(string, ...any)  { l.levels = append(l.levels, "warn") }
func (l *levelLogger) Error(string, ...any) { l.levels = append(l.levels, "error") }
func (l *levelLogger) Fatal(string, ...any) { l.levels = append(l.levels, "fatal") }

func (l *levelLogger) WithContext(context.Context) interfaces.Logger { return l }

func TestDefaultTelemetryWarnsOnContentErrors(t *testing.T) {
	logger := &levelLogger{}
	telemetry := DefaultTelemetry[testMessage](logger)

	telemetry(context.Background(), testMessage{}, TelemetryInfo{
		Status: TelemetryStatusFailed,
		Error:  ContentError(errors.New("broken link"), "site has broken links"),
	})
	telemetry(context.Background(), testMessage{}, TelemetryInfo{
		Status: TelemetryStatusFailed,
		Error:  errors.New("disk full"),
	})
	telemetry(context.Background(), testMessage{}, TelemetryInfo{Status: TelemetryStatusSuccess})

	want := []string{"warn", "error", "info"}
	if len(logger.levels) != len(want) {
		t.Fatalf("expected %v, got %v", want, logger.levels)
	}
	for i := range want {
		if logger.levels[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, logger.levels)
		}
	}
}
