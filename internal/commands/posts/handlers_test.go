package postscmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-blog/internal/posts"
)

func newTestHandler(t *testing.T) (*NewPostHandler, string) {
	t.Helper()
	root := t.TempDir()
	seoul, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	handler := NewNewPostHandler(Config{
		Source:   root,
		Location: seoul,
		Now:      func() time.Time { return time.Date(2024, 3, 2, 12, 10, 0, 0, time.UTC) },
	}, nil)
	return handler, root
}

func TestNewPostWritesValidPost(t *testing.T) {
	handler, root := newTestHandler(t)

	var created string
	err := handler.Execute(context.Background(), NewPostCommand{
		Title:      "Django ORM: .only() vs .values()",
		Categories: []string{"Django", "ORM"},
		Tags:       []string{"django"},
		Callback:   func(p string) { created = p },
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.HasPrefix(created, "_posts/2024-03-02-django-orm") || !strings.HasSuffix(created, ".md") {
		t.Fatalf("unexpected path %q", created)
	}

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(created)))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "date: 2024-03-02 21:10:00 +0900") {
		t.Fatalf("expected local date in front matter:\n%s", data)
	}

	post, err := posts.NewPost(created, data, time.Time{}, posts.BuildOptions{})
	if err != nil {
		t.Fatalf("NewPost: %v", err)
	}
	if err := posts.Validate(post); err != nil {
		t.Fatalf("scaffold should validate: %v", err)
	}
	if post.Title != "Django ORM: .only() vs .values()" || len(post.Categories) != 2 {
		t.Fatalf("unexpected post %+v", post)
	}
}

func TestNewDraftIsUndated(t *testing.T) {
	handler, root := newTestHandler(t)

	if err := handler.Execute(context.Background(), NewPostCommand{Title: "Select related", Draft: true}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(root, "_drafts", "select-related.md"))
	if err != nil {
		t.Fatalf("read draft: %v", err)
	}
	if strings.Contains(string(data), "date:") {
		t.Fatalf("draft should not carry a date:\n%s", data)
	}
}

func TestNewPostRefusesToOverwrite(t *testing.T) {
	handler, _ := newTestHandler(t)
	cmd := NewPostCommand{Title: "Hello"}

	if err := handler.Execute(context.Background(), cmd); err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	err := handler.Execute(context.Background(), cmd)
	if !errors.Is(err, ErrPostExists) {
		t.Fatalf("expected ErrPostExists, got %v", err)
	}
	if !goerrors.IsCategory(err, goerrors.CategoryConflict) {
		t.Fatalf("expected conflict category, got %v", err)
	}
}

func TestNewPostValidation(t *testing.T) {
	handler, root := newTestHandler(t)

	cases := []NewPostCommand{
		{Title: "   "},
		{Title: "Ok", Categories: []string{"Django", " "}},
		{Title: "Ok", Tags: []string{""}},
	}
	for _, cmd := range cases {
		err := handler.Execute(context.Background(), cmd)
		if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
			t.Fatalf("expected validation error for %+v, got %v", cmd, err)
		}
	}
	if entries, _ := os.ReadDir(root); len(entries) != 0 {
		t.Fatal("invalid commands should not write files")
	}
}
