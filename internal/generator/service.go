package generator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-blog/internal/logging"
	"github.com/goliatone/go-blog/internal/posts"
	"github.com/goliatone/go-blog/pkg/interfaces"
)

var (
	// ErrValidation wraps content problems that stop a build before anything is written.
	ErrValidation        = errors.New("generator: content validation failed")
	errRendererRequired  = errors.New("generator: template renderer is required")
	errLoaderRequired    = errors.New("generator: post loader is required")
	errParserRequired    = errors.New("generator: markdown parser is required")
	errStorageRequired   = errors.New("generator: storage is required")
	errReservedPermalink = errors.New("generator: permalink is reserved")
	errThemeAssetMissing = errors.New("generator: theme asset missing")
)

// Service describes the static site generator contract.
type Service interface {
	Build(ctx context.Context, opts BuildOptions) (*BuildResult, error)
	Clean(ctx context.Context) error
}

// SiteInfo is the site metadata exposed to layouts and feeds.
type SiteInfo struct {
	Title       string
	Tagline     string
	Description string
	// URL is the scheme and host, without BaseURL.
	URL     string
	BaseURL string
	Author  string
	Lang    string
}

// SiteURL joins URL and BaseURL.
func (s SiteInfo) SiteURL() string {
	base := strings.TrimRight(strings.TrimSpace(s.URL), "/")
	if base == "" {
		base = "http://localhost"
	}
	return base + strings.TrimRight(s.BaseURL, "/")
}

// Config captures runtime behaviour toggles for the generator.
type Config struct {
	OutputDir       string
	Site            SiteInfo
	Permalink       string
	Paginate        int
	Drafts          bool
	Future          bool
	Unpublished     bool
	CleanBuild      bool
	Incremental     bool
	Workers         int
	GenerateSitemap bool
	GenerateRobots  bool
	GenerateFeed    bool
	GenerateSearch  bool
	FeedLimit       int
	ExcerptWords    int
	// AssetsDir is the site asset directory inside Dependencies.Source.
	AssetsDir string
}

// BuildOptions narrows or widens a single run. Boolean toggles are OR-ed
// with the matching Config fields.
type BuildOptions struct {
	DryRun      bool
	Drafts      bool
	Future      bool
	Unpublished bool
	Incremental bool
}

// BuildResult reports aggregated build metadata.
type BuildResult struct {
	Posts         int
	Pages         int
	PagesBuilt    int
	PagesSkipped  int
	AssetsBuilt   int
	AssetsSkipped int
	FilesBuilt    int
	FilesSkipped  int
	Removed       []string
	GeneratedAt   time.Time
	Duration      time.Duration
	Rendered      []RenderedPage
	Diagnostics   []RenderDiagnostic
	Errors        []error
	DryRun        bool
}

// PostLoader reads content from the site source.
type PostLoader interface {
	LoadPosts(ctx context.Context, opts posts.LoadOptions) ([]*posts.Post, error)
	LoadPages(ctx context.Context) ([]*posts.Page, error)
}

// Renderer renders layouts and exposes the theme's static assets.
type Renderer interface {
	interfaces.TemplateRenderer
	AssetLayers() []fs.FS
	// AssetFiles maps the asset keys the theme manifest declares to paths
	// inside the published assets directory.
	AssetFiles() map[string]string
}

// Recorder receives build metrics. Optional.
type Recorder interface {
	ObserveBuild(err error, duration time.Duration, posts int)
	FileWritten(category string)
	FileSkipped(category string)
}

// Dependencies lists the services required by the generator.
type Dependencies struct {
	Loader   PostLoader
	Parser   interfaces.MarkdownParser
	Renderer Renderer
	Storage  Storage
	// Source is the site root; site assets are read from Config.AssetsDir in it.
	Source   fs.FS
	Schema   *posts.SchemaValidator
	Logger   interfaces.Logger
	Recorder Recorder
	Now      func() time.Time
}

// NewService wires a generator implementation with the provided configuration and dependencies.
func NewService(cfg Config, deps Dependencies) Service {
	if deps.Logger == nil {
		deps.Logger = logging.NoOp()
	}
	if deps.Recorder == nil {
		deps.Recorder = noopRecorder{}
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	if strings.TrimSpace(cfg.Permalink) == "" {
		cfg.Permalink = posts.DefaultPermalink
	}
	if cfg.FeedLimit <= 0 {
		cfg.FeedLimit = 20
	}
	return &service{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger,
		now:    now,
	}
}

type service struct {
	cfg    Config
	deps   Dependencies
	logger interfaces.Logger
	now    func() time.Time

	// builds are serialized; watch mode may trigger overlapping rebuilds.
	mu sync.Mutex
}

func (s *service) Build(ctx context.Context, opts BuildOptions) (result *BuildResult, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.checkDependencies(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	opts = s.effectiveOptions(opts)
	defer func() {
		count := 0
		if result != nil {
			count = result.Posts
		}
		if !opts.DryRun {
			s.deps.Recorder.ObserveBuild(err, time.Since(start), count)
		}
	}()

	buildCtx, err := s.loadContext(ctx, opts)
	if err != nil {
		s.logger.Error("generator.build.load_failed", "error", err)
		return nil, err
	}

	result = &BuildResult{
		Posts:       len(buildCtx.Posts),
		Pages:       len(buildCtx.Pages),
		GeneratedAt: buildCtx.GeneratedAt,
		DryRun:      opts.DryRun,
	}

	jobs := s.buildJobs(buildCtx)
	rendered, diagnostics, renderErr := s.renderPages(ctx, buildCtx, jobs)
	result.Diagnostics = diagnostics
	if renderErr != nil {
		result.Errors = append(result.Errors, renderErr)
		result.Duration = time.Since(start)
		return result, renderErr
	}

	if opts.DryRun {
		result.Rendered = rendered
		result.PagesBuilt = len(rendered)
		result.Duration = time.Since(start)
		s.logger.Info("generator.build.dry_run", "posts", result.Posts, "pages", len(rendered))
		return result, nil
	}

	var errs []error
	storage := s.deps.Storage

	previous := s.loadManifest(ctx)
	if s.cfg.CleanBuild && !opts.Incremental {
		if err := storage.Clean(ctx); err != nil {
			return result, err
		}
	}

	next := newBuildManifest()
	next.GeneratedAt = buildCtx.GeneratedAt
	writer := newArtifactWriter(storage, previous, next, opts.Incremental, s.deps.Recorder)

	built, skipped, err := s.persistPages(ctx, writer, rendered)
	result.PagesBuilt, result.PagesSkipped = built, skipped
	if err != nil {
		errs = append(errs, err)
	}

	assetSummary, err := s.copyAssets(ctx, writer)
	result.AssetsBuilt, result.AssetsSkipped = assetSummary.Built, assetSummary.Skipped
	if err != nil {
		errs = append(errs, err)
	}

	if err := s.writeSupportFiles(ctx, writer, buildCtx, rendered); err != nil {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		removed, err := s.prune(ctx, previous, next)
		result.Removed = removed
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		if err := s.persistManifest(ctx, next); err != nil {
			errs = append(errs, err)
		}
	}

	result.FilesBuilt, result.FilesSkipped = writer.written, writer.skipped
	result.Rendered = rendered
	result.Duration = time.Since(start)
	if len(errs) > 0 {
		result.Errors = append(result.Errors, errs...)
		joined := errors.Join(errs...)
		s.logger.Error("generator.build.failed", "error", joined)
		return result, joined
	}

	s.logger.Info("generator.build.complete",
		"posts", result.Posts,
		"pages_built", result.PagesBuilt,
		"pages_skipped", result.PagesSkipped,
		"assets_built", result.AssetsBuilt,
		"assets_skipped", result.AssetsSkipped,
		"removed", len(result.Removed),
		"duration", result.Duration,
	)
	return result, nil
}

func (s *service) Clean(ctx context.Context) error {
	if s.deps.Storage == nil {
		return errStorageRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.deps.Storage.Clean(ctx); err != nil {
		return err
	}
	s.logger.Info("generator.clean.complete", "output", s.cfg.OutputDir)
	return nil
}

func (s *service) checkDependencies() error {
	switch {
	case s.deps.Loader == nil:
		return errLoaderRequired
	case s.deps.Parser == nil:
		return errParserRequired
	case s.deps.Renderer == nil:
		return errRendererRequired
	case s.deps.Storage == nil:
		return errStorageRequired
	}
	return nil
}

func (s *service) effectiveOptions(opts BuildOptions) BuildOptions {
	opts.Drafts = opts.Drafts || s.cfg.Drafts
	opts.Future = opts.Future || s.cfg.Future
	opts.Unpublished = opts.Unpublished || s.cfg.Unpublished
	opts.Incremental = opts.Incremental || s.cfg.Incremental
	return opts
}

func (s *service) loadManifest(ctx context.Context) *buildManifest {
	data, err := s.deps.Storage.ReadFile(ctx, ManifestFileName)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("generator.manifest.read_failed", "error", err)
		}
		return newBuildManifest()
	}
	manifest, err := parseManifest(data)
	if err != nil {
		s.logger.Warn("generator.manifest.invalid", "error", err)
		return newBuildManifest()
	}
	return manifest
}

func (s *service) persistManifest(ctx context.Context, manifest *buildManifest) error {
	data, err := manifest.marshal()
	if err != nil {
		return fmt.Errorf("generator: encode manifest: %w", err)
	}
	return s.deps.Storage.WriteFile(ctx, ManifestFileName, strings.NewReader(string(data)))
}

func (s *service) prune(ctx context.Context, previous, next *buildManifest) ([]string, error) {
	stale := previous.stale(next)
	for _, output := range stale {
		if err := s.deps.Storage.Remove(ctx, output); err != nil {
			return nil, err
		}
		s.logger.Debug("generator.prune", "output", output)
	}
	return stale, nil
}

func (s *service) effectiveWorkerCount(jobs int) int {
	workers := s.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers < 1 {
		workers = 1
	}
	if jobs > 0 && workers > jobs {
		return jobs
	}
	return workers
}

// runPool feeds items to a bounded set of workers and stops handing out work
// once ctx is done.
func runPool[T any](ctx context.Context, workers int, items []T, fn func(context.Context, T)) error {
	if len(items) == 0 {
		return ctx.Err()
	}
	if workers < 1 {
		workers = 1
	}
	jobs := make(chan T)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				if ctx.Err() != nil {
					continue
				}
				fn(ctx, item)
			}
		}()
	}

	for _, item := range items {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		case jobs <- item:
		}
	}
	close(jobs)
	wg.Wait()
	return ctx.Err()
}

type noopRecorder struct{}

func (noopRecorder) ObserveBuild(error, time.Duration, int) {}
func (noopRecorder) FileWritten(string)                     {}
func (noopRecorder) FileSkipped(string)                     {}

func computeHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
