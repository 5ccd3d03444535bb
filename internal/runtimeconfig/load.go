package runtimeconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. BLOG_BUILD_DRAFTS=true.
const EnvPrefix = "BLOG"

// DefaultConfigFile is looked up inside the source directory.
const DefaultConfigFile = "_config.yml"

// LoadOptions controls where Load reads from.
type LoadOptions struct {
	// File is an explicit config path. Empty means <Source>/_config.yml.
	File string
	// Source overrides the content root before the config file is located.
	Source string
	// Viper lets callers share an instance with bound CLI flags.
	Viper *viper.Viper
}

// Load merges DefaultConfig, the YAML config file (when present) and BLOG_*
// environment variables, then validates the result.
func Load(opts LoadOptions) (Config, error) {
	v := opts.Viper
	if v == nil {
		v = viper.New()
	}

	defaults := DefaultConfig()
	if src := strings.TrimSpace(opts.Source); src != "" {
		defaults.Source = src
	}
	setDefaults(v, defaults)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	file := strings.TrimSpace(opts.File)
	explicit := file != ""
	if !explicit {
		file = filepath.Join(defaults.Source, DefaultConfigFile)
	}
	v.SetConfigFile(file)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound)
		if !missing || explicit {
			return Config{}, fmt.Errorf("blog config: read %s: %w", file, err)
		}
	}

	cfg := defaults
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("blog config: decode: %w", err)
	}
	if src := strings.TrimSpace(opts.Source); src != "" {
		cfg.Source = src
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	defaults := map[string]any{
		"title":              cfg.Title,
		"tagline":            cfg.Tagline,
		"description":        cfg.Description,
		"url":                cfg.URL,
		"baseurl":            cfg.BaseURL,
		"author":             cfg.Author,
		"lang":               cfg.Lang,
		"timezone":           cfg.Timezone,
		"paginate":           cfg.Paginate,
		"permalink":          cfg.Permalink,
		"theme":              cfg.Theme,
		"theme_variant":      cfg.ThemeVariant,
		"exclude":            cfg.Exclude,
		"frontmatter_schema": cfg.FrontMatterSchema,

		"source":      cfg.Source,
		"destination": cfg.Destination,

		"build.drafts":      cfg.Build.Drafts,
		"build.future":      cfg.Build.Future,
		"build.unpublished": cfg.Build.Unpublished,
		"build.clean":       cfg.Build.CleanBuild,
		"build.incremental": cfg.Build.Incremental,
		"build.workers":     cfg.Build.Workers,
		"build.sitemap":     cfg.Build.GenerateSitemap,
		"build.robots":      cfg.Build.GenerateRobots,
		"build.feed":        cfg.Build.GenerateFeed,
		"build.search":      cfg.Build.GenerateSearch,
		"build.feed_limit":  cfg.Build.FeedLimit,
		"build.check_links": cfg.Build.CheckLinks,

		"content.posts_dir":   cfg.Content.PostsDir,
		"content.drafts_dir":  cfg.Content.DraftsDir,
		"content.tabs_dir":    cfg.Content.TabsDir,
		"content.layouts_dir": cfg.Content.LayoutsDir,
		"content.assets_dir":  cfg.Content.AssetsDir,
		"content.pattern":     cfg.Content.Pattern,

		"markdown.parser.extensions": cfg.Markdown.Parser.Extensions,
		"markdown.parser.hard_wraps": cfg.Markdown.Parser.HardWraps,
		"markdown.parser.safe_mode":  cfg.Markdown.Parser.SafeMode,
		"markdown.excerpt_words":     cfg.Markdown.ExcerptWords,

		"linkcheck.fragments": cfg.LinkCheck.Fragments,
		"linkcheck.ignore":    cfg.LinkCheck.Ignore,

		"server.addr":             cfg.Server.Addr,
		"server.read_timeout":     cfg.Server.ReadTimeout,
		"server.write_timeout":    cfg.Server.WriteTimeout,
		"server.idle_timeout":     cfg.Server.IdleTimeout,
		"server.shutdown_timeout": cfg.Server.ShutdownTimeout,
		"server.metrics":          cfg.Server.Metrics,

		"watch.enabled":  cfg.Watch.Enabled,
		"watch.debounce": cfg.Watch.Debounce,

		"logging.provider":   cfg.Logging.Provider,
		"logging.level":      cfg.Logging.Level,
		"logging.format":     cfg.Logging.Format,
		"logging.add_source": cfg.Logging.AddSource,
		"logging.focus":      cfg.Logging.Focus,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}
