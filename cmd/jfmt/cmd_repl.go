package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sambeau/jsonatafmt/pkg/jsonata/repl"
)

func (a *app) replCommand() *cobra.Command {
	var layout layoutFlags
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Format expressions interactively",
		Long: `Start an interactive session that formats each expression as it is
entered. Type :help for the session commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := layout.options(cmd, a.cfg.Format.Options())
			if err != nil {
				return err
			}
			repl.Start(a.stdout, Version, opts)
			return nil
		},
	}
	layout.register(cmd)
	return cmd
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "jfmt version %s\n", Version)
		},
	}
}
