package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/goliatone/go-blog"
)

// app carries the state shared by every subcommand.
type app struct {
	v          *viper.Viper
	configFile string
	source     string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "blog",
		Short: "Build a static blog from Markdown posts",
		Long: `blog renders Markdown posts with YAML front matter into a static site
and verifies that every internal link in the output resolves.

Configuration is read from <source>/_config.yml, BLOG_* environment
variables and the flags below, in increasing order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "config file (default <source>/_config.yml)")
	flags.StringVarP(&a.source, "source", "s", "", "site source directory (default .)")
	flags.StringP("dest", "d", "", "output directory (default _site)")
	flags.String("log-level", "", "log level (trace, debug, info, warn, error)")
	flags.String("log-format", "", "go-logger output format (json, console, pretty)")
	flags.String("log-provider", "", "logging provider (console, gologger)")
	for key, name := range map[string]string{
		"destination":      "dest",
		"logging.level":    "log-level",
		"logging.format":   "log-format",
		"logging.provider": "log-provider",
	} {
		cobra.CheckErr(a.v.BindPFlag(key, flags.Lookup(name)))
	}

	root.AddCommand(
		newBuildCmd(a),
		newCheckCmd(a),
		newValidateCmd(a),
		newNewCmd(a),
		newCleanCmd(a),
		newServeCmd(a),
	)
	return root
}

// config loads the site configuration and lets the caller adjust it before
// validation by the module.
func (a *app) config() (blog.Config, error) {
	cfg, err := blog.LoadConfig(blog.LoadOptions{
		File:   a.configFile,
		Source: a.source,
		Viper:  a.v,
	})
	if err != nil {
		return blog.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (a *app) module(mutate func(*blog.Config)) (*blog.Module, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return blog.New(cfg)
}

func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
