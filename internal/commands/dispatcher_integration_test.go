package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	goerrors "github.com/goliatone/go-errors"
)

type rebuildCommand struct {
	Changed []string
}

func (rebuildCommand) Type() string { return "blog.test.rebuild" }

func (rebuildCommand) Validate() error { return nil }

type invalidContentCommand struct{}

func (invalidContentCommand) Type() string { return "blog.test.invalid_content" }

func (invalidContentCommand) Validate() error { return nil }

func TestDispatchedRebuildRetriesTransientFailure(t *testing.T) {
	t.Parallel()

	var attempts int
	var seen []string
	handler := NewHandler(func(_ context.Context, msg rebuildCommand) error {
		attempts++
		seen = msg.Changed
		if attempts == 1 {
			return errors.New("output directory busy")
		}
		return nil
	}, WithTimeout[rebuildCommand](time.Second), WithOperation[rebuildCommand]("static.rebuild"))

	sub := dispatcher.SubscribeCommand(handler, runner.WithMaxRetries(1))
	t.Cleanup(sub.Unsubscribe)

	if err := dispatcher.Dispatch(context.Background(), rebuildCommand{Changed: []string{"_posts/a.md"}}); err != nil {
		t.Fatalf("dispatch: expected success after retry, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
	if len(seen) != 1 || seen[0] != "_posts/a.md" {
		t.Fatalf("expected changed paths to reach handler, got %v", seen)
	}
}

func TestDispatchedContentErrorKeepsCategory(t *testing.T) {
	t.Parallel()

	cause := errors.New("_posts/2024-01-01-x.md: title is required")
	handler := NewHandler(func(context.Context, invalidContentCommand) error {
		return ContentError(cause, "site content is invalid")
	}, WithTimeout[invalidContentCommand](time.Second))

	sub := dispatcher.SubscribeCommand(handler)
	t.Cleanup(sub.Unsubscribe)

	err := dispatcher.Dispatch(context.Background(), invalidContentCommand{})
	if err == nil {
		t.Fatal("expected dispatch to surface the content error")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause in chain, got %v", err)
	}
	if !goerrors.HasCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation category to survive dispatch, got %v", err)
	}
}
