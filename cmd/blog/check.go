package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-blog"
)

func newCheckCmd(a *app) *cobra.Command {
	var fragments bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report broken internal links in the built site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			module, err := a.module(func(cfg *blog.Config) {
				if fragments {
					cfg.LinkCheck.Fragments = true
				}
			})
			if err != nil {
				return err
			}
			report, err := module.Check(cmd.Context())
			if report != nil {
				printLinks(cmd.OutOrStdout(), report)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&fragments, "fragments", false, "also verify #fragment targets")
	return cmd
}

func printLinks(out io.Writer, report *blog.LinkReport) {
	fmt.Fprintf(out, "checked %d links in %d pages: %d broken\n", report.Links, report.Pages, len(report.Broken))
	for _, link := range report.Broken {
		fmt.Fprintf(out, "  %s\n", link)
	}
}
