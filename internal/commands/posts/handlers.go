package postscmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-blog/internal/commands"
	"github.com/goliatone/go-blog/internal/posts"
	"github.com/goliatone/go-blog/pkg/interfaces"
)

// ErrPostExists is returned instead of overwriting an existing file.
var ErrPostExists = errors.New("postscmd: post already exists")

// Config locates the content directories.
type Config struct {
	// Source is the site root on disk.
	Source    string
	PostsDir  string
	DraftsDir string
	Location  *time.Location
	Now       func() time.Time
}

// frontMatter fixes the key order of scaffolded files.
type frontMatter struct {
	Title       string   `yaml:"title"`
	Date        string   `yaml:"date,omitempty"`
	Categories  []string `yaml:"categories,flow"`
	Tags        []string `yaml:"tags,flow"`
	Description string   `yaml:"description,omitempty"`
	Pin         bool     `yaml:"pin,omitempty"`
}

// NewPostHandler writes new posts and drafts.
type NewPostHandler struct {
	inner *commands.Handler[NewPostCommand]
}

// NewNewPostHandler constructs a handler writing below cfg.Source.
func NewNewPostHandler(cfg Config, logger interfaces.Logger, opts ...commands.HandlerOption[NewPostCommand]) *NewPostHandler {
	baseLogger := commands.EnsureLogger(logger)
	if cfg.PostsDir == "" {
		cfg.PostsDir = "_posts"
	}
	if cfg.DraftsDir == "" {
		cfg.DraftsDir = "_drafts"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	exec := func(ctx context.Context, msg NewPostCommand) error {
		rel, data, err := scaffold(cfg, msg)
		if err != nil {
			return err
		}
		full := filepath.Join(cfg.Source, filepath.FromSlash(rel))
		if _, err := os.Stat(full); err == nil {
			return commands.ConflictError(fmt.Errorf("%w: %s", ErrPostExists, rel), "refusing to overwrite post")
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return fmt.Errorf("postscmd: create %s: %w", path.Dir(rel), err)
		}
		if err := atomic.WriteFile(full, bytes.NewReader(data)); err != nil {
			return fmt.Errorf("postscmd: write %s: %w", rel, err)
		}
		baseLogger.Info("posts.new.created", "path", rel, "draft", msg.Draft)
		if msg.Callback != nil {
			msg.Callback(rel)
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[NewPostCommand]{
		commands.WithLogger[NewPostCommand](baseLogger),
		commands.WithOperation[NewPostCommand]("posts.new"),
		commands.WithMessageFields(func(msg NewPostCommand) map[string]any {
			return map[string]any{"title": msg.Title, "draft": msg.Draft}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[NewPostCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &NewPostHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[NewPostCommand].
func (h *NewPostHandler) Execute(ctx context.Context, msg NewPostCommand) error {
	return h.inner.Execute(ctx, msg)
}

// scaffold returns the relative path and content for msg. Posts are named
// YYYY-MM-DD-slug.md; drafts are undated and named slug.md.
func scaffold(cfg Config, msg NewPostCommand) (string, []byte, error) {
	title := strings.TrimSpace(msg.Title)
	slug := posts.Slugify(firstNonEmpty(msg.Slug, title))
	if slug == "" {
		return "", nil, fmt.Errorf("postscmd: cannot derive a file name from %q", title)
	}

	fm := frontMatter{
		Title:       title,
		Categories:  trimmed(msg.Categories),
		Tags:        trimmed(msg.Tags),
		Description: strings.TrimSpace(msg.Description),
		Pin:         msg.Pin,
	}

	var rel string
	if msg.Draft {
		rel = path.Join(cfg.DraftsDir, slug+".md")
	} else {
		date := msg.Date
		if date.IsZero() {
			date = cfg.Now()
		}
		date = date.In(cfg.Location)
		fm.Date = date.Format("2006-01-02 15:04:05 -0700")
		rel = path.Join(cfg.PostsDir, date.Format("2006-01-02")+"-"+slug+".md")
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return "", nil, fmt.Errorf("postscmd: encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", nil, fmt.Errorf("postscmd: encode front matter: %w", err)
	}
	buf.WriteString("---\n\n")
	return rel, buf.Bytes(), nil
}

func trimmed(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
