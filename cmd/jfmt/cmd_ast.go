package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sambeau/jsonatafmt/pkg/jsonata/ast"
	"github.com/sambeau/jsonatafmt/pkg/jsonata/errors"
	"github.com/sambeau/jsonatafmt/pkg/jsonata/jsonata"
)

func (a *app) astCommand() *cobra.Command {
	var expr string
	var compact bool
	cmd := &cobra.Command{
		Use:   "ast [flags] [file|-]",
		Short: "Print the syntax tree of an expression as JSON",
		Long: `Print the syntax tree of a JSONata expression as JSON, in the shape
produced by the ast() function of the JavaScript implementation. Comments
are listed under "jsonataComments".`,
		Example: `  jfmt ast -e 'Account.Order[0]'
  jfmt ast query.jsonata`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "<expr>"
			src := expr
			if expr == "" {
				var err error
				if name, src, err = a.readInput(args); err != nil {
					return err
				}
			} else if len(args) > 0 {
				return fmt.Errorf("cannot use -e with a file argument")
			}

			prog, err := a.formatter.Parse(src)
			if err != nil {
				return a.reportSyntaxError(name, src, err)
			}

			indent := "  "
			if compact {
				indent = ""
			}
			data, err := ast.Encode(prog, indent)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%s\n", data)
			return nil
		},
	}
	cmd.Flags().StringVarP(&expr, "eval", "e", "", "expression to parse instead of a file")
	cmd.Flags().BoolVar(&compact, "compact", false, "print the JSON on one line")
	return cmd
}

func (a *app) serializeCommand() *cobra.Command {
	var layout layoutFlags
	cmd := &cobra.Command{
		Use:   "serialize [flags] [file.json|-]",
		Short: "Format a JSON syntax tree back into an expression",
		Long: `Read a syntax tree in the JSON shape printed by "jfmt ast" and print the
formatted expression it describes.`,
		Example: `  jfmt ast -e 'a+b' | jfmt serialize
  jfmt serialize --width 40 tree.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := layout.options(cmd, a.cfg.Format.Options())
			if err != nil {
				return err
			}
			name, src, err := a.readInput(args)
			if err != nil {
				return err
			}
			tree, err := ast.Decode([]byte(src))
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			out, err := a.formatter.FormatTree(tree, jsonata.WithOptions(opts))
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			fmt.Fprintln(a.stdout, out)
			return nil
		},
	}
	layout.register(cmd)
	return cmd
}

// readInput returns the named file, or standard input for no argument or "-".
func (a *app) readInput(args []string) (name, content string, err error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return "", "", fmt.Errorf("reading standard input: %w", err)
		}
		return "<stdin>", string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", err
	}
	return args[0], string(data), nil
}

// reportSyntaxError prints err with its source context.
func (a *app) reportSyntaxError(name, src string, err error) error {
	var se *errors.SyntaxError
	if !stderrors.As(err, &se) {
		return err
	}
	if name != "<stdin>" && name != "<expr>" {
		se = se.WithFile(name)
	}
	fmt.Fprintf(a.stderr, "%s %s\n", newStyles(a.stderr).errorLabel.Render("error:"), se.PrettyString(src))
	return &exitError{code: codeFailure}
}
