package main

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-blog"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr  string
		watch bool
	)
	flags := &buildFlags{}
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"s"},
		Short:   "Build and serve the site locally",
		Example: `  blog serve
  blog serve --watch --drafts --addr 127.0.0.1:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			module, err := a.module(nil)
			if err != nil {
				return err
			}
			return module.Serve(cmd.Context(), blog.ServeOptions{
				Addr:  addr,
				Watch: watch,
				Build: flags.options(),
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default server.addr)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "rebuild when the source changes")
	return cmd
}
