// Command jfmt formats JSONata expressions.
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sambeau/jsonatafmt/config"
	"github.com/sambeau/jsonatafmt/pkg/jsonata/format"
	"github.com/sambeau/jsonatafmt/pkg/jsonata/jsonata"
)

// Version is set at compile time via -ldflags
var Version = "0.1.0"

// Exit codes.
const (
	codeOK          = 0
	codeUnformatted = 1 // --check found files that would change
	codeFailure     = 2 // syntax, I/O or usage errors
)

// exitError carries an exit code for failures that were already reported.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.Getenv)
	stop()
	os.Exit(code)
}

// app holds the state shared by every subcommand.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string

	configPath string
	cfg        *config.Config
	logger     *slog.Logger
	closeLog   func() error
	formatter  *jsonata.Formatter
}

// execute runs jfmt with args and returns the process exit code.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string) int {
	a := &app{
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
		getenv:   getenv,
		logger:   jsonata.NullLogger(),
		closeLog: func() error { return nil },
	}
	defer func() { a.closeLog() }()

	root := a.rootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return codeOK
	}
	var exit *exitError
	if stderrors.As(err, &exit) {
		return exit.code
	}
	fmt.Fprintln(stderr, newStyles(stderr).errorLabel.Render("Error:"), err)
	return codeFailure
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "jfmt",
		Short: "Format JSONata expressions",
		Long: `jfmt pretty-prints JSONata expressions.

Files are read as UTF-8 and formatted with a print width of 150 columns and
two-space indentation unless a configuration file or flags say otherwise.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.load()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "",
		"configuration file (default: $"+config.EnvConfig+", ./jsonatafmt.yaml, ~/.config/jsonatafmt/jsonatafmt.yaml)")

	root.AddCommand(
		a.fmtCommand(),
		a.astCommand(),
		a.serializeCommand(),
		a.watchCommand(),
		a.replCommand(),
		a.versionCommand(),
	)
	return root
}

// load reads the configuration and sets up logging.
func (a *app) load() error {
	cfg, path, err := config.LoadWithPath(a.configPath, a.getenv)
	if err != nil {
		return err
	}
	a.cfg = cfg

	out, closeLog, err := jsonata.OpenLogOutput(cfg.Logging.Output, a.stdout, a.stderr)
	if err != nil {
		return err
	}
	a.closeLog = closeLog
	a.logger = jsonata.NewLogger(out, cfg.Logging.Level, cfg.Logging.Format)
	if path != "" {
		a.logger.Debug("loaded configuration", "path", path)
	}

	a.formatter = jsonata.New(jsonata.Config{
		Options: cfg.Format.Options(),
		Logger:  jsonata.NullLogger(),
	})
	return nil
}

// layoutFlags are the layout overrides shared by the formatting commands.
type layoutFlags struct {
	width    int
	tabWidth int
	useTabs  bool
}

func (l *layoutFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&l.width, "width", format.DefaultPrintWidth, "maximum line width")
	cmd.Flags().IntVar(&l.tabWidth, "tab-width", format.DefaultTabWidth, "spaces per indentation level")
	cmd.Flags().BoolVar(&l.useTabs, "use-tabs", format.DefaultUseTabs, "indent with tabs")
}

// options applies the flags the user set over base.
func (l *layoutFlags) options(cmd *cobra.Command, base format.Options) (format.Options, error) {
	flags := cmd.Flags()
	if flags.Changed("width") {
		if l.width < 1 {
			return base, fmt.Errorf("--width must be positive, got %d", l.width)
		}
		base.PrintWidth = l.width
	}
	if flags.Changed("tab-width") {
		if l.tabWidth < 1 {
			return base, fmt.Errorf("--tab-width must be positive, got %d", l.tabWidth)
		}
		base.TabWidth = l.tabWidth
	}
	if flags.Changed("use-tabs") {
		base.UseTabs = l.useTabs
	}
	return base, nil
}
