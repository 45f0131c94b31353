package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sambeau/jsonatafmt/pkg/jsonata/errors"
	"github.com/sambeau/jsonatafmt/pkg/jsonata/format"
	"github.com/sambeau/jsonatafmt/pkg/jsonata/jsonata"
)

type fmtFlags struct {
	write  bool
	diff   bool
	list   bool
	check  bool
	cache  bool
	layout layoutFlags
}

func (a *app) fmtCommand() *cobra.Command {
	var f fmtFlags
	cmd := &cobra.Command{
		Use:   "fmt [flags] [path ...]",
		Short: "Format JSONata files",
		Long: `Format JSONata files.

Directories are searched recursively for files with the configured
extensions (default .jsonata). With no paths, or the path "-", the
expression is read from standard input and written to standard output.`,
		Example: `  jfmt fmt query.jsonata          Print formatted output
  jfmt fmt -w queries/            Format every file in place
  jfmt fmt -l queries/            List files that need formatting
  jfmt fmt -d query.jsonata       Show what would change
  jfmt fmt --check queries/       Exit 1 if any file needs formatting
  echo 'a+b' | jfmt fmt           Format standard input`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := f.layout.options(cmd, a.cfg.Format.Options())
			if err != nil {
				return err
			}

			run := &fmtRun{app: a, flags: f, opts: opts, styles: newStyles(a.stdout), errStyles: newStyles(a.stderr)}

			if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
				if f.write {
					return fmt.Errorf("cannot use -w with standard input")
				}
				run.stdin()
				return run.status()
			}

			if f.cache {
				store, err := a.openStore()
				if err != nil {
					return err
				}
				defer store.Close()
				run.store = store
			}

			files, err := collectFiles(args, a.cfg.Watch.Extensions)
			if err != nil {
				return err
			}
			for _, path := range files {
				run.file(path)
			}
			if f.check && run.failures == 0 && run.unformatted == 0 {
				fmt.Fprintf(a.stderr, "%s %d files formatted\n", run.errStyles.ok.Render("ok"), len(files))
			}
			return run.status()
		},
	}

	cmd.Flags().BoolVarP(&f.write, "write", "w", false, "write result to the source file instead of stdout")
	cmd.Flags().BoolVarP(&f.diff, "diff", "d", false, "display diffs instead of formatted output")
	cmd.Flags().BoolVarP(&f.list, "list", "l", false, "list files whose formatting differs")
	cmd.Flags().BoolVar(&f.check, "check", false, "exit with status 1 if any file needs formatting")
	cmd.Flags().BoolVar(&f.cache, "cache", false, "skip files recorded as formatted in the cache")
	f.layout.register(cmd)
	return cmd
}

// fmtRun formats a batch of inputs and tallies the outcome.
type fmtRun struct {
	app       *app
	flags     fmtFlags
	opts      format.Options
	store     *Store
	styles    styles
	errStyles styles

	failures    int
	unformatted int
}

// printing reports whether formatted output goes to stdout.
func (r *fmtRun) printing() bool {
	return !r.flags.write && !r.flags.diff && !r.flags.list && !r.flags.check
}

func (r *fmtRun) stdin() {
	data, err := io.ReadAll(r.app.stdin)
	if err != nil {
		r.fail("<stdin>", err)
		return
	}
	r.process("<stdin>", data)
}

func (r *fmtRun) file(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		r.fail(path, err)
		return
	}

	key := storeKey(r.opts, data)
	known, err := r.store.Known(key)
	if err != nil {
		r.app.logger.Warn("cache lookup failed", "file", path, "error", err)
	}
	if known {
		r.app.logger.Debug("already formatted", "file", path)
		if r.printing() {
			r.app.stdout.Write(data)
		}
		return
	}

	formatted, changed, ok := r.process(path, data)
	if !ok {
		return
	}

	if r.flags.write && changed {
		info, err := os.Stat(path)
		if err != nil {
			r.fail(path, err)
			return
		}
		if err := os.WriteFile(path, []byte(formatted), info.Mode().Perm()); err != nil {
			r.fail(path, fmt.Errorf("writing file: %w", err))
			return
		}
		r.app.logger.Info("formatted", "file", path)
		key = storeKey(r.opts, []byte(formatted))
		changed = false
	}
	if !changed {
		if err := r.store.Remember(key, path); err != nil {
			r.app.logger.Warn("cache update failed", "file", path, "error", err)
		}
	}
}

// process formats data and reports it according to the flags.
func (r *fmtRun) process(name string, data []byte) (formatted string, changed, ok bool) {
	src := string(data)
	out, err := r.app.formatter.FormatSource(src, jsonata.WithOptions(r.opts))
	if err != nil {
		r.syntaxError(name, src, err)
		return "", false, false
	}
	formatted = out + "\n"
	changed = formatted != src

	if changed {
		if r.flags.list {
			fmt.Fprintln(r.app.stdout, name)
		}
		if r.flags.diff {
			r.showDiff(name, src, formatted)
		}
		if r.flags.check {
			r.unformatted++
			if !r.flags.list {
				fmt.Fprintf(r.app.stderr, "%s %s\n", r.errStyles.warn.Render("unformatted"), name)
			}
		}
	}
	if r.printing() {
		io.WriteString(r.app.stdout, formatted)
	}
	return formatted, changed, true
}

func (r *fmtRun) syntaxError(name, src string, err error) {
	r.failures++
	var se *errors.SyntaxError
	if stderrors.As(err, &se) {
		if name != "<stdin>" {
			se = se.WithFile(name)
		}
		fmt.Fprintf(r.app.stderr, "%s %s\n", r.errStyles.errorLabel.Render("error:"), se.PrettyString(src))
		return
	}
	fmt.Fprintf(r.app.stderr, "%s %s: %v\n", r.errStyles.errorLabel.Render("error:"), name, err)
}

func (r *fmtRun) fail(name string, err error) {
	r.failures++
	fmt.Fprintf(r.app.stderr, "%s %s: %v\n", r.errStyles.errorLabel.Render("error:"), name, err)
}

// status turns the tallies into the command's exit status.
func (r *fmtRun) status() error {
	if r.failures > 0 {
		return &exitError{code: codeFailure}
	}
	if r.flags.check && r.unformatted > 0 {
		return &exitError{code: codeUnformatted}
	}
	return nil
}

// showDiff prints the lines that differ between original and formatted.
func (r *fmtRun) showDiff(name, original, formatted string) {
	fmt.Fprintln(r.app.stdout, r.styles.header.Render("diff "+name))

	origLines := strings.Split(original, "\n")
	fmtLines := strings.Split(formatted, "\n")

	for i := range max(len(origLines), len(fmtLines)) {
		origLine := ""
		fmtLine := ""
		if i < len(origLines) {
			origLine = origLines[i]
		}
		if i < len(fmtLines) {
			fmtLine = fmtLines[i]
		}
		if origLine == fmtLine {
			continue
		}
		if origLine != "" {
			fmt.Fprintln(r.app.stdout, r.styles.removed.Render(fmt.Sprintf("-%d: %s", i+1, origLine)))
		}
		if fmtLine != "" {
			fmt.Fprintln(r.app.stdout, r.styles.added.Render(fmt.Sprintf("+%d: %s", i+1, fmtLine)))
		}
	}
}

// collectFiles expands directories into the files beneath them that carry
// one of extensions. Named files are kept whatever their extension.
func collectFiles(paths []string, extensions []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if strings.HasPrefix(d.Name(), ".") && p != path {
					return filepath.SkipDir
				}
				return nil
			}
			if hasExtension(p, extensions) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func hasExtension(path string, extensions []string) bool {
	return slices.Contains(extensions, strings.ToLower(filepath.Ext(path)))
}
