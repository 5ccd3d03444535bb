// Package blog builds a static blog from Markdown posts with YAML front
// matter and checks the result for broken internal links.
package blog

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-blog/commands"
	postscmd "github.com/goliatone/go-blog/internal/commands/posts"
	staticcmd "github.com/goliatone/go-blog/internal/commands/static"
	"github.com/goliatone/go-blog/internal/di"
	"github.com/goliatone/go-blog/internal/generator"
	"github.com/goliatone/go-blog/internal/linkcheck"
	"github.com/goliatone/go-blog/internal/logging"
	"github.com/goliatone/go-blog/internal/posts"
	"github.com/goliatone/go-blog/internal/server"
	"github.com/goliatone/go-blog/internal/watch"
	"github.com/goliatone/go-blog/pkg/interfaces"
)

// ErrInvalidPost matches posts that fail front matter validation.
var ErrInvalidPost = posts.ErrInvalidPost

// ErrInvalidContent matches builds stopped by content validation.
var ErrInvalidContent = generator.ErrValidation

// ErrBrokenLinks matches link checks that found broken links.
var ErrBrokenLinks = linkcheck.ErrBrokenLinks

// ErrPostExists is returned by NewPost instead of overwriting a file.
var ErrPostExists = postscmd.ErrPostExists

// BuildResult exports the generator build summary.
type BuildResult = generator.BuildResult

// LinkReport exports the link checker report.
type LinkReport = linkcheck.Report

// BrokenLink exports a single link checker finding.
type BrokenLink = linkcheck.BrokenLink

// GeneratorService exports the static site generator contract.
type GeneratorService = generator.Service

// BuildOptions widens the configured build for a single run.
type BuildOptions struct {
	DryRun      bool
	Drafts      bool
	Future      bool
	Unpublished bool
	Incremental bool
	// CheckLinks runs the link checker after a successful build.
	CheckLinks bool
}

// BuildReport pairs a build result with the optional link report.
type BuildReport struct {
	Result *BuildResult
	Links  *LinkReport
}

// NewPostOptions describes a post to scaffold.
type NewPostOptions struct {
	Title       string
	Slug        string
	Date        time.Time
	Categories  []string
	Tags        []string
	Description string
	Pin         bool
	Draft       bool
}

// ServeOptions controls Serve.
type ServeOptions struct {
	// Addr overrides Config.Server.Addr.
	Addr string
	// Watch rebuilds the site when the source changes.
	Watch bool
	// Build options used for the initial build and every rebuild.
	Build BuildOptions
}

// Module represents the top level blog runtime façade.
type Module struct {
	container *di.Container
	logger    interfaces.Logger
	// serializes rebuilds triggered by the watcher with direct calls
	mu sync.Mutex
}

// New constructs a blog module using the provided configuration and optional DI overrides.
func New(cfg Config, opts ...di.Option) (*Module, error) {
	container, err := di.NewContainer(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{
		container: container,
		logger:    logging.ModuleLogger(container.LoggerProvider(), "blog"),
	}, nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// Config returns the validated configuration.
func (m *Module) Config() Config {
	return m.container.Config
}

// Generator returns the configured generator service.
func (m *Module) Generator() GeneratorService {
	return m.container.Generator()
}

// RegisterCommands exposes the module's command handlers to a host registry
// or dispatcher.
func (m *Module) RegisterCommands(opts commands.RegistrationOptions) (*commands.RegistrationResult, error) {
	return commands.RegisterContainerCommands(m.container, opts)
}

// Build renders the site. With DryRun nothing is written.
func (m *Module) Build(ctx context.Context, opts BuildOptions) (*BuildReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	report := &BuildReport{}
	err := m.container.BuildHandler().Execute(ctx, staticcmd.BuildSiteCommand{
		DryRun:      opts.DryRun,
		Drafts:      opts.Drafts,
		Future:      opts.Future,
		Unpublished: opts.Unpublished,
		Incremental: opts.Incremental,
		CheckLinks:  opts.CheckLinks || (m.container.Config.Build.CheckLinks && !opts.DryRun),
		ResultCallback: func(env staticcmd.ResultEnvelope) {
			report.Result = env.Result
			report.Links = env.Links
		},
	})
	return report, err
}

// Validate loads and validates content without writing anything.
func (m *Module) Validate(ctx context.Context, opts BuildOptions) (*BuildResult, error) {
	opts.DryRun = true
	opts.CheckLinks = false
	report, err := m.Build(ctx, opts)
	return report.Result, err
}

// Check runs the link checker over the current output.
func (m *Module) Check(ctx context.Context) (*LinkReport, error) {
	var report *LinkReport
	err := m.container.CheckLinksHandler().Execute(ctx, staticcmd.CheckLinksCommand{
		ResultCallback: func(env staticcmd.ResultEnvelope) { report = env.Links },
	})
	return report, err
}

// Clean removes everything below the output directory.
func (m *Module) Clean(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.container.CleanHandler().Execute(ctx, staticcmd.CleanSiteCommand{})
}

// NewPost scaffolds a post or draft and returns its path relative to the
// source directory.
func (m *Module) NewPost(ctx context.Context, opts NewPostOptions) (string, error) {
	var created string
	err := m.container.NewPostHandler().Execute(ctx, postscmd.NewPostCommand{
		Title:       opts.Title,
		Slug:        opts.Slug,
		Date:        opts.Date,
		Categories:  opts.Categories,
		Tags:        opts.Tags,
		Description: opts.Description,
		Pin:         opts.Pin,
		Draft:       opts.Draft,
		Callback:    func(path string) { created = path },
	})
	return created, err
}

// Serve builds the site, serves the output until ctx is done and, when
// asked, rebuilds on source changes.
func (m *Module) Serve(ctx context.Context, opts ServeOptions) error {
	cfg := m.container.Config
	watching := opts.Watch || cfg.Watch.Enabled

	if _, err := m.Build(ctx, opts.Build); err != nil {
		// keep serving the previous output so the error can be fixed live
		if !watching {
			return err
		}
		m.logger.Error("blog.serve.build_failed", "error", err)
	}

	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		addr = cfg.Server.Addr
	}
	var recorder server.Recorder
	if cfg.Server.Metrics {
		recorder = m.container.Metrics()
	}
	srv := server.New(server.Config{
		Addr:            addr,
		BaseURL:         cfg.BaseURL,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, m.container.Output(), recorder, logging.ServerLogger(m.container.LoggerProvider()))

	if !watching {
		return srv.Run(ctx)
	}

	watcher, err := watch.New(watch.Config{
		Root:     cfg.Source,
		Ignore:   m.watchIgnores(),
		Debounce: cfg.Watch.Debounce,
		Logger:   logging.WatchLogger(m.container.LoggerProvider()),
	}, func(ctx context.Context, events []watch.Event) error {
		rebuild := opts.Build
		rebuild.Incremental = true
		report, err := m.Build(ctx, rebuild)
		if err != nil {
			return err
		}
		if report.Result != nil {
			m.logger.Info("blog.serve.rebuilt", "changes", len(events), "pages", report.Result.PagesBuilt, "duration", report.Result.Duration)
		}
		return nil
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	watchErr := make(chan error, 1)
	go func() {
		watchErr <- watcher.Run(ctx)
	}()

	serveErr := srv.Run(ctx)
	cancel()
	return errors.Join(serveErr, <-watchErr)
}

// watchIgnores adds the output directory to the excludes so writes do not
// retrigger builds.
func (m *Module) watchIgnores() []string {
	cfg := m.container.Config
	ignore := append([]string(nil), cfg.Exclude...)
	source, err := filepath.Abs(cfg.Source)
	if err != nil {
		return ignore
	}
	dest, err := filepath.Abs(cfg.Destination)
	if err != nil {
		return ignore
	}
	if rel, err := filepath.Rel(source, dest); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
		ignore = append(ignore, filepath.ToSlash(rel))
	}
	return ignore
}
