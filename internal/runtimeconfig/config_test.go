package runtimeconfig_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goliatone/go-blog/internal/runtimeconfig"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := runtimeconfig.DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*runtimeconfig.Config)
		want   error
	}{
		{"destination", func(c *runtimeconfig.Config) { c.Destination = " " }, runtimeconfig.ErrDestinationRequired},
		{"source", func(c *runtimeconfig.Config) { c.Source = "" }, runtimeconfig.ErrSourceRequired},
		{"permalink", func(c *runtimeconfig.Config) { c.Permalink = "posts/:title/" }, runtimeconfig.ErrPermalinkInvalid},
		{"paginate", func(c *runtimeconfig.Config) { c.Paginate = -1 }, runtimeconfig.ErrPaginateInvalid},
		{"url", func(c *runtimeconfig.Config) { c.URL = "example.com" }, runtimeconfig.ErrSiteURLInvalid},
		{"baseurl", func(c *runtimeconfig.Config) { c.BaseURL = "blog" }, runtimeconfig.ErrBaseURLInvalid},
		{"timezone", func(c *runtimeconfig.Config) { c.Timezone = "Mars/Olympus" }, runtimeconfig.ErrTimezoneInvalid},
		{"workers", func(c *runtimeconfig.Config) { c.Build.Workers = -2 }, runtimeconfig.ErrWorkersInvalid},
		{"provider", func(c *runtimeconfig.Config) { c.Logging.Provider = "syslog" }, runtimeconfig.ErrLoggingProviderUnknown},
		{"level", func(c *runtimeconfig.Config) { c.Logging.Level = "loud" }, runtimeconfig.ErrLoggingLevelInvalid},
		{"format", func(c *runtimeconfig.Config) {
			c.Logging.Provider = "gologger"
			c.Logging.Format = "xml"
		}, runtimeconfig.ErrLoggingFormatInvalid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := runtimeconfig.DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestSiteURLJoinsBaseURL(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.URL = "https://example.com/"
	cfg.BaseURL = "/blog/"

	if got := cfg.SiteURL(); got != "https://example.com/blog" {
		t.Fatalf("unexpected site url %q", got)
	}
	if got := runtimeconfig.NormalizedBaseURL("/"); got != "" {
		t.Fatalf("expected root baseurl to normalize to empty, got %q", got)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`title: Query Notes
url: https://notes.example.com
timezone: Asia/Seoul
paginate: 5
build:
  drafts: true
  workers: 3
watch:
  debounce: 1s
markdown:
  parser:
    extensions: [gfm, footnote]
`)
	if err := os.WriteFile(filepath.Join(dir, "_config.yml"), content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := runtimeconfig.Load(runtimeconfig.LoadOptions{Source: dir})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Title != "Query Notes" {
		t.Fatalf("expected title from file, got %q", cfg.Title)
	}
	if cfg.Paginate != 5 {
		t.Fatalf("expected paginate 5, got %d", cfg.Paginate)
	}
	if !cfg.Build.Drafts || cfg.Build.Workers != 3 {
		t.Fatalf("expected build section to decode, got %+v", cfg.Build)
	}
	if !cfg.Build.GenerateFeed {
		t.Fatal("expected defaults to survive for unset keys")
	}
	if cfg.Watch.Debounce != time.Second {
		t.Fatalf("expected 1s debounce, got %s", cfg.Watch.Debounce)
	}
	if len(cfg.Markdown.Parser.Extensions) != 2 {
		t.Fatalf("expected parser extensions, got %v", cfg.Markdown.Parser.Extensions)
	}
	if cfg.Source != dir {
		t.Fatalf("expected source %q, got %q", dir, cfg.Source)
	}
}

func TestLoadWithoutConfigFileUsesDefaults(t *testing.T) {
	cfg, err := runtimeconfig.Load(runtimeconfig.LoadOptions{Source: t.TempDir()})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Permalink != "/posts/:title/" {
		t.Fatalf("expected default permalink, got %q", cfg.Permalink)
	}
}

func TestLoadFailsForMissingExplicitFile(t *testing.T) {
	_, err := runtimeconfig.Load(runtimeconfig.LoadOptions{File: filepath.Join(t.TempDir(), "missing.yml")})
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadAppliesEnvironmentOverrides(t *testing.T) {
	t.Setenv("BLOG_TITLE", "From Env")
	t.Setenv("BLOG_BUILD_FUTURE", "true")

	cfg, err := runtimeconfig.Load(runtimeconfig.LoadOptions{Source: t.TempDir()})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Title != "From Env" {
		t.Fatalf("expected env title, got %q", cfg.Title)
	}
	if !cfg.Build.Future {
		t.Fatal("expected BLOG_BUILD_FUTURE to enable future posts")
	}
}
