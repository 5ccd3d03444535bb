package runtimeconfig

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-blog/pkg/interfaces"
)

var (
	ErrSourceRequired         = errors.New("blog config: source directory is required")
	ErrDestinationRequired    = errors.New("blog config: destination directory is required")
	ErrPermalinkInvalid       = errors.New("blog config: permalink must start with a slash")
	ErrPaginateInvalid        = errors.New("blog config: paginate must be zero or positive")
	ErrSiteURLInvalid         = errors.New("blog config: url must be an absolute http(s) URL")
	ErrBaseURLInvalid         = errors.New("blog config: baseurl must be empty or start with a slash")
	ErrTimezoneInvalid        = errors.New("blog config: timezone is invalid")
	ErrWorkersInvalid         = errors.New("blog config: workers must be zero or positive")
	ErrLoggingProviderUnknown = errors.New("blog config: logging provider is invalid")
	ErrLoggingLevelInvalid    = errors.New("blog config: logging level is invalid")
	ErrLoggingFormatInvalid   = errors.New("blog config: logging format is invalid")
)

// Config is the full site and build configuration. Site keys sit at the top
// level of _config.yml, everything else is grouped by section.
type Config struct {
	SiteConfig `mapstructure:",squash"`

	Source      string          `mapstructure:"source"`
	Destination string          `mapstructure:"destination"`
	Build       BuildConfig     `mapstructure:"build"`
	Content     ContentConfig   `mapstructure:"content"`
	Markdown    MarkdownConfig  `mapstructure:"markdown"`
	LinkCheck   LinkCheckConfig `mapstructure:"linkcheck"`
	Server      ServerConfig    `mapstructure:"server"`
	Watch       WatchConfig     `mapstructure:"watch"`
	Logging     LoggingConfig   `mapstructure:"logging"`
}

// SiteConfig holds the site metadata exposed to templates.
type SiteConfig struct {
	Title             string   `mapstructure:"title"`
	Tagline           string   `mapstructure:"tagline"`
	Description       string   `mapstructure:"description"`
	URL               string   `mapstructure:"url"`
	BaseURL           string   `mapstructure:"baseurl"`
	Author            string   `mapstructure:"author"`
	Lang              string   `mapstructure:"lang"`
	Timezone          string   `mapstructure:"timezone"`
	Paginate          int      `mapstructure:"paginate"`
	Permalink         string   `mapstructure:"permalink"`
	Theme             string   `mapstructure:"theme"`
	ThemeVariant      string   `mapstructure:"theme_variant"`
	Exclude           []string `mapstructure:"exclude"`
	FrontMatterSchema string   `mapstructure:"frontmatter_schema"`
}

// BuildConfig toggles what a build reads and writes.
type BuildConfig struct {
	Drafts          bool `mapstructure:"drafts"`
	Future          bool `mapstructure:"future"`
	Unpublished     bool `mapstructure:"unpublished"`
	CleanBuild      bool `mapstructure:"clean"`
	Incremental     bool `mapstructure:"incremental"`
	Workers         int  `mapstructure:"workers"`
	GenerateSitemap bool `mapstructure:"sitemap"`
	GenerateRobots  bool `mapstructure:"robots"`
	GenerateFeed    bool `mapstructure:"feed"`
	GenerateSearch  bool `mapstructure:"search"`
	FeedLimit       int  `mapstructure:"feed_limit"`
	CheckLinks      bool `mapstructure:"check_links"`
}

// ContentConfig names the content directories, relative to Source.
type ContentConfig struct {
	PostsDir   string `mapstructure:"posts_dir"`
	DraftsDir  string `mapstructure:"drafts_dir"`
	TabsDir    string `mapstructure:"tabs_dir"`
	LayoutsDir string `mapstructure:"layouts_dir"`
	AssetsDir  string `mapstructure:"assets_dir"`
	Pattern    string `mapstructure:"pattern"`
}

// MarkdownConfig configures the goldmark parser and excerpts.
type MarkdownConfig struct {
	Parser       interfaces.ParseOptions `mapstructure:"parser"`
	ExcerptWords int                     `mapstructure:"excerpt_words"`
}

// LinkCheckConfig configures the output link checker.
type LinkCheckConfig struct {
	Fragments bool     `mapstructure:"fragments"`
	Ignore    []string `mapstructure:"ignore"`
}

// ServerConfig configures the preview server.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Metrics         bool          `mapstructure:"metrics"`
}

// WatchConfig configures rebuild-on-change.
type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// LoggingConfig selects the logging provider.
type LoggingConfig struct {
	Provider  string   `mapstructure:"provider"`
	Level     string   `mapstructure:"level"`
	Format    string   `mapstructure:"format"`
	AddSource bool     `mapstructure:"add_source"`
	Focus     []string `mapstructure:"focus"`
}

// DefaultConfig mirrors the Chirpy starter defaults.
func DefaultConfig() Config {
	return Config{
		SiteConfig: SiteConfig{
			Title:     "My Blog",
			Lang:      "en",
			Timezone:  "UTC",
			Paginate:  10,
			Permalink: "/posts/:title/",
			Exclude:   []string{"*.gem", "*.gemspec", "tools", "README.md", "LICENSE", "package*.json", "node_modules", "vendor"},
		},
		Source:      ".",
		Destination: "_site",
		Build: BuildConfig{
			CleanBuild:      true,
			GenerateSitemap: true,
			GenerateRobots:  true,
			GenerateFeed:    true,
			GenerateSearch:  true,
			FeedLimit:       20,
		},
		Content: ContentConfig{
			PostsDir:   "_posts",
			DraftsDir:  "_drafts",
			TabsDir:    "_tabs",
			LayoutsDir: "_layouts",
			AssetsDir:  "assets",
			Pattern:    "**/*.{md,markdown}",
		},
		Markdown: MarkdownConfig{
			ExcerptWords: 50,
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:4000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     time.Minute,
			ShutdownTimeout: 10 * time.Second,
			Metrics:         true,
		},
		Watch: WatchConfig{
			Debounce: 300 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
		},
	}
}

// Validate reports the first configuration problem found.
func (cfg Config) Validate() error {
	if strings.TrimSpace(cfg.Source) == "" {
		return ErrSourceRequired
	}
	if strings.TrimSpace(cfg.Destination) == "" {
		return ErrDestinationRequired
	}
	if p := strings.TrimSpace(cfg.Permalink); p != "" && !strings.HasPrefix(p, "/") {
		return fmt.Errorf("%w: %s", ErrPermalinkInvalid, p)
	}
	if cfg.Paginate < 0 {
		return ErrPaginateInvalid
	}
	if raw := strings.TrimSpace(cfg.URL); raw != "" {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %s", ErrSiteURLInvalid, raw)
		}
	}
	if b := strings.TrimSpace(cfg.BaseURL); b != "" && !strings.HasPrefix(b, "/") {
		return fmt.Errorf("%w: %s", ErrBaseURLInvalid, b)
	}
	if _, err := cfg.Location(); err != nil {
		return err
	}
	if cfg.Build.Workers < 0 {
		return ErrWorkersInvalid
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.Logging.Provider))
	switch provider {
	case "", "console", "gologger":
	default:
		return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
	}
	if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
		return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
	}
	if provider == "gologger" {
		if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
			return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
		}
	}
	return nil
}

// Location resolves Timezone, defaulting to UTC.
func (cfg Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(cfg.Timezone)
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTimezoneInvalid, tz)
	}
	return loc, nil
}

// SiteURL joins URL and BaseURL without a trailing slash.
func (cfg Config) SiteURL() string {
	return strings.TrimRight(strings.TrimSpace(cfg.URL), "/") + NormalizedBaseURL(cfg.BaseURL)
}

// NormalizedBaseURL trims whitespace and trailing slashes; "/" becomes "".
func NormalizedBaseURL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return ""
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return base
}

func isSupportedLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	}
	return false
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "console", "pretty":
		return true
	}
	return false
}
