// Package di assembles the blog services from a runtime configuration.
package di

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goliatone/go-blog/internal/commands"
	postscmd "github.com/goliatone/go-blog/internal/commands/posts"
	staticcmd "github.com/goliatone/go-blog/internal/commands/static"
	"github.com/goliatone/go-blog/internal/generator"
	"github.com/goliatone/go-blog/internal/linkcheck"
	"github.com/goliatone/go-blog/internal/logging"
	"github.com/goliatone/go-blog/internal/logging/console"
	"github.com/goliatone/go-blog/internal/logging/gologger"
	"github.com/goliatone/go-blog/internal/markdown"
	"github.com/goliatone/go-blog/internal/metrics"
	"github.com/goliatone/go-blog/internal/posts"
	"github.com/goliatone/go-blog/internal/runtimeconfig"
	"github.com/goliatone/go-blog/internal/themes"
	"github.com/goliatone/go-blog/pkg/interfaces"
)

// Container wires the blog services. Build it with NewContainer.
type Container struct {
	Config runtimeconfig.Config

	loggerProvider interfaces.LoggerProvider
	location       *time.Location
	now            func() time.Time

	source   fs.FS
	output   fs.FS
	storage  generator.Storage
	renderer generator.Renderer
	parser   interfaces.MarkdownParser
	loader   generator.PostLoader
	schema   *posts.SchemaValidator
	metrics  *metrics.Metrics

	generatorSvc generator.Service
	checker      *linkcheck.Checker

	buildHandler   *staticcmd.BuildSiteHandler
	checkHandler   *staticcmd.CheckLinksHandler
	cleanHandler   *staticcmd.CleanSiteHandler
	newPostHandler *postscmd.NewPostHandler
}

// Option mutates the container before it is finalised.
type Option func(*Container)

// WithLoggerProvider overrides the provider selected by Config.Logging.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		if provider != nil {
			c.loggerProvider = provider
		}
	}
}

// WithSource reads site content from fsys instead of Config.Source.
func WithSource(fsys fs.FS) Option {
	return func(c *Container) {
		if fsys != nil {
			c.source = fsys
		}
	}
}

// WithStorage overrides the file storage rooted at Config.Destination.
func WithStorage(storage generator.Storage) Option {
	return func(c *Container) {
		if storage != nil {
			c.storage = storage
		}
	}
}

// WithOutput sets the filesystem the link checker reads. Pair it with
// WithStorage when the output does not live on disk.
func WithOutput(fsys fs.FS) Option {
	return func(c *Container) {
		if fsys != nil {
			c.output = fsys
		}
	}
}

// WithRenderer overrides the theme renderer.
func WithRenderer(renderer generator.Renderer) Option {
	return func(c *Container) {
		if renderer != nil {
			c.renderer = renderer
		}
	}
}

// WithParser overrides the goldmark parser.
func WithParser(parser interfaces.MarkdownParser) Option {
	return func(c *Container) {
		if parser != nil {
			c.parser = parser
		}
	}
}

// WithClock fixes the build clock.
func WithClock(now func() time.Time) Option {
	return func(c *Container) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMetrics shares a metrics instance, e.g. across rebuilds in serve mode.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Container) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewContainer validates cfg and builds every service it needs.
func NewContainer(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	c := &Container{
		Config:   cfg,
		location: loc,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.loggerProvider == nil {
		provider, err := configureLoggerProvider(cfg.Logging)
		if err != nil {
			return nil, err
		}
		c.loggerProvider = provider
	}
	if c.source == nil {
		c.source = os.DirFS(cfg.Source)
	}
	if c.storage == nil {
		c.storage = generator.NewFileStorage(cfg.Destination)
	}
	if c.output == nil {
		c.output = os.DirFS(cfg.Destination)
	}
	if c.metrics == nil {
		c.metrics = metrics.New()
	}
	if c.parser == nil {
		c.parser = markdown.NewGoldmarkParser(cfg.Markdown.Parser)
	}
	if c.renderer == nil {
		renderer, err := c.configureRenderer()
		if err != nil {
			return nil, err
		}
		c.renderer = renderer
	}
	if schemaPath := strings.TrimSpace(cfg.FrontMatterSchema); schemaPath != "" {
		schema, err := posts.LoadSchemaValidator(c.source, schemaPath)
		if err != nil {
			return nil, fmt.Errorf("blog: front matter schema: %w", err)
		}
		c.schema = schema
	}

	c.loader = posts.NewLoader(c.source, posts.LoaderConfig{
		PostsDir:  cfg.Content.PostsDir,
		DraftsDir: cfg.Content.DraftsDir,
		TabsDir:   cfg.Content.TabsDir,
		Pattern:   cfg.Content.Pattern,
		Exclude:   cfg.Exclude,
		Location:  loc,
	})

	c.configureGenerator()
	c.configureCommands()
	return c, nil
}

func configureLoggerProvider(cfg runtimeconfig.LoggingConfig) (interfaces.LoggerProvider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "gologger":
		provider, err := gologger.NewProvider(gologger.Config{
			Level:     cfg.Level,
			Format:    cfg.Format,
			AddSource: cfg.AddSource,
			Focus:     cfg.Focus,
		})
		if err != nil {
			return nil, err
		}
		return provider, nil
	default:
		level, _ := console.ParseLevel(cfg.Level)
		return console.NewProvider(console.Options{MinLevel: level}), nil
	}
}

func (c *Container) configureRenderer() (*themes.Renderer, error) {
	cfg := c.Config
	var layouts fs.FS
	if dir := strings.TrimSpace(cfg.Content.LayoutsDir); dir != "" {
		if info, err := fs.Stat(c.source, dir); err == nil && info.IsDir() {
			if sub, err := fs.Sub(c.source, dir); err == nil {
				layouts = sub
			}
		}
	}

	theme, themeName, err := c.resolveTheme()
	if err != nil {
		return nil, err
	}

	return themes.NewRenderer(themes.Config{
		Layouts:   layouts,
		Theme:     theme,
		ThemeName: themeName,
		Variant:   cfg.ThemeVariant,
		BaseURL:   runtimeconfig.NormalizedBaseURL(cfg.BaseURL),
		SiteURL:   c.siteInfo().SiteURL(),
	})
}

// resolveTheme opens the configured theme directory. Values that do not look
// like paths, such as a Jekyll gem name, fall back to the embedded theme.
func (c *Container) resolveTheme() (fs.FS, string, error) {
	name := strings.TrimSpace(c.Config.Theme)
	if name == "" {
		return nil, "", nil
	}
	dir := name
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(c.Config.Source, dir)
	}
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return os.DirFS(dir), filepath.Base(dir), nil
	}
	if looksLikePath(name) {
		return nil, "", fmt.Errorf("blog: theme %q is not a directory", name)
	}
	logging.ModuleLogger(c.loggerProvider, "blog.themes").Warn("themes.fallback_default",
		"theme", name,
		"reason", "not a theme directory",
	)
	return nil, "", nil
}

func looksLikePath(name string) bool {
	return strings.HasPrefix(name, ".") || filepath.IsAbs(name) || strings.ContainsAny(name, `/\`)
}

func (c *Container) siteInfo() generator.SiteInfo {
	cfg := c.Config
	return generator.SiteInfo{
		Title:       cfg.Title,
		Tagline:     cfg.Tagline,
		Description: cfg.Description,
		URL:         cfg.URL,
		BaseURL:     runtimeconfig.NormalizedBaseURL(cfg.BaseURL),
		Author:      cfg.Author,
		Lang:        cfg.Lang,
	}
}

func (c *Container) configureGenerator() {
	cfg := c.Config
	c.generatorSvc = generator.NewService(generator.Config{
		OutputDir:       cfg.Destination,
		Site:            c.siteInfo(),
		Permalink:       cfg.Permalink,
		Paginate:        cfg.Paginate,
		Drafts:          cfg.Build.Drafts,
		Future:          cfg.Build.Future,
		Unpublished:     cfg.Build.Unpublished,
		CleanBuild:      cfg.Build.CleanBuild,
		Incremental:     cfg.Build.Incremental,
		Workers:         cfg.Build.Workers,
		GenerateSitemap: cfg.Build.GenerateSitemap,
		GenerateRobots:  cfg.Build.GenerateRobots,
		GenerateFeed:    cfg.Build.GenerateFeed,
		GenerateSearch:  cfg.Build.GenerateSearch,
		FeedLimit:       cfg.Build.FeedLimit,
		ExcerptWords:    cfg.Markdown.ExcerptWords,
		AssetsDir:       cfg.Content.AssetsDir,
	}, generator.Dependencies{
		Loader:   c.loader,
		Parser:   c.parser,
		Renderer: c.renderer,
		Storage:  c.storage,
		Source:   c.source,
		Schema:   c.schema,
		Logger:   logging.GeneratorLogger(c.loggerProvider),
		Recorder: c.metrics,
		Now:      c.now,
	})

	c.checker = linkcheck.New(linkcheck.Config{
		Root:      c.output,
		BaseURL:   runtimeconfig.NormalizedBaseURL(cfg.BaseURL),
		SiteURL:   cfg.URL,
		Fragments: cfg.LinkCheck.Fragments,
		Ignore:    cfg.LinkCheck.Ignore,
		Workers:   cfg.Build.Workers,
		Logger:    logging.LinkCheckLogger(c.loggerProvider),
	})
}

func (c *Container) configureCommands() {
	logger := commands.CommandLogger(c.loggerProvider, "static")
	c.buildHandler = staticcmd.NewBuildSiteHandler(c.generatorSvc, recordingChecker{c.checker, c.metrics}, logger)
	c.checkHandler = staticcmd.NewCheckLinksHandler(c.checker, c.metrics, logger)
	c.cleanHandler = staticcmd.NewCleanSiteHandler(c.generatorSvc, logger)
	c.newPostHandler = postscmd.NewNewPostHandler(postscmd.Config{
		Source:    c.Config.Source,
		PostsDir:  c.Config.Content.PostsDir,
		DraftsDir: c.Config.Content.DraftsDir,
		Location:  c.location,
		Now:       c.now,
	}, commands.CommandLogger(c.loggerProvider, "posts"))
}

// recordingChecker reports checks run after a build to the metrics.
type recordingChecker struct {
	checker *linkcheck.Checker
	metrics *metrics.Metrics
}

func (r recordingChecker) Check(ctx context.Context) (*linkcheck.Report, error) {
	report, err := r.checker.Check(ctx)
	broken := 0
	if report != nil {
		broken = len(report.Broken)
	}
	r.metrics.ObserveLinkCheck(err, broken)
	return report, err
}

// LoggerProvider returns the configured logger provider.
func (c *Container) LoggerProvider() interfaces.LoggerProvider { return c.loggerProvider }

// Location returns the site time zone.
func (c *Container) Location() *time.Location { return c.location }

// Generator returns the static site generator.
func (c *Container) Generator() generator.Service { return c.generatorSvc }

// LinkChecker returns the output link checker.
func (c *Container) LinkChecker() *linkcheck.Checker { return c.checker }

// Metrics returns the Prometheus collectors.
func (c *Container) Metrics() *metrics.Metrics { return c.metrics }

// Output returns the filesystem holding the built site.
func (c *Container) Output() fs.FS { return c.output }

// BuildHandler returns the build command handler.
func (c *Container) BuildHandler() *staticcmd.BuildSiteHandler { return c.buildHandler }

// CheckLinksHandler returns the link check command handler.
func (c *Container) CheckLinksHandler() *staticcmd.CheckLinksHandler { return c.checkHandler }

// CleanHandler returns the clean command handler.
func (c *Container) CleanHandler() *staticcmd.CleanSiteHandler { return c.cleanHandler }

// NewPostHandler returns the post scaffolding handler.
func (c *Container) NewPostHandler() *postscmd.NewPostHandler { return c.newPostHandler }
