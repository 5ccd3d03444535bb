package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-blog"
)

type buildFlags struct {
	drafts      bool
	future      bool
	unpublished bool
	incremental bool
	dryRun      bool
	check       bool
}

func (f *buildFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.drafts, "drafts", "D", false, "render posts from the drafts directory")
	cmd.Flags().BoolVar(&f.future, "future", false, "publish posts dated in the future")
	cmd.Flags().BoolVar(&f.unpublished, "unpublished", false, "render posts marked published: false")
}

func (f *buildFlags) options() blog.BuildOptions {
	return blog.BuildOptions{
		DryRun:      f.dryRun,
		Drafts:      f.drafts,
		Future:      f.future,
		Unpublished: f.unpublished,
		Incremental: f.incremental,
		CheckLinks:  f.check,
	}
}

func newBuildCmd(a *app) *cobra.Command {
	flags := &buildFlags{}
	cmd := &cobra.Command{
		Use:     "build",
		Aliases: []string{"b"},
		Short:   "Render the site into the output directory",
		Example: `  blog build
  blog build --drafts --future
  blog build --incremental --check`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			module, err := a.module(nil)
			if err != nil {
				return err
			}
			report, err := module.Build(cmd.Context(), flags.options())
			printBuild(cmd.OutOrStdout(), report)
			return err
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVarP(&flags.incremental, "incremental", "I", false, "skip outputs whose content did not change")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "render without writing anything")
	cmd.Flags().BoolVar(&flags.check, "check", false, "check internal links after building")
	cmd.MarkFlagsMutuallyExclusive("dry-run", "check")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	flags := &buildFlags{}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load, validate and render every post without writing output",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			module, err := a.module(nil)
			if err != nil {
				return err
			}
			result, err := module.Validate(cmd.Context(), flags.options())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d posts and %d pages are valid (%d pages rendered)\n", result.Posts, result.Pages, len(result.Rendered))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func printBuild(out io.Writer, report *blog.BuildReport) {
	if report == nil || report.Result == nil {
		return
	}
	res := report.Result
	if res.DryRun {
		fmt.Fprintf(out, "dry run: %d posts, %d pages rendered in %s\n", res.Posts, len(res.Rendered), res.Duration)
	} else {
		fmt.Fprintf(out, "built %d posts: %d pages written, %d unchanged, %d assets, %d removed in %s\n",
			res.Posts, res.PagesBuilt, res.PagesSkipped, res.AssetsBuilt, len(res.Removed), res.Duration)
	}
	for _, diag := range res.Diagnostics {
		fmt.Fprintf(out, "  %s (%s): %v\n", diag.Route, diag.Layout, diag.Err)
	}
	if report.Links != nil {
		printLinks(out, report.Links)
	}
}
