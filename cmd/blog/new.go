package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-blog"
	"github.com/goliatone/go-blog/internal/posts"
)

func newNewCmd(a *app) *cobra.Command {
	var (
		opts       blog.NewPostOptions
		categories []string
		tags       []string
		date       string
	)
	cmd := &cobra.Command{
		Use:   "new <title>",
		Short: "Scaffold a post or draft with front matter",
		Example: `  blog new "Hello World" --categories Blogging,Tutorial --tags getting-started
  blog new "Half an idea" --draft`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			module, err := a.module(nil)
			if err != nil {
				return err
			}
			opts.Title = strings.Join(args, " ")
			opts.Categories = splitList(categories)
			opts.Tags = splitList(tags)
			if date = strings.TrimSpace(date); date != "" {
				parsed, err := posts.ParseDate(date, module.Container().Location())
				if err != nil {
					return fmt.Errorf("parse --date: %w", err)
				}
				opts.Date = parsed
			}

			created, err := module.NewPost(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), created)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&categories, "categories", nil, "comma separated categories")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "comma separated tags")
	cmd.Flags().StringVar(&date, "date", "", "post date (default now)")
	cmd.Flags().StringVar(&opts.Slug, "slug", "", "file slug (default derived from the title)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "post description")
	cmd.Flags().BoolVar(&opts.Pin, "pin", false, "pin the post to the top of the home page")
	cmd.Flags().BoolVar(&opts.Draft, "draft", false, "write to the drafts directory without a date")
	return cmd
}
