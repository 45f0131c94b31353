// Package repl implements an interactive prompt that formats each expression
// as it is entered.
package repl

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/sambeau/jsonatafmt/pkg/jsonata/ast"
	"github.com/sambeau/jsonatafmt/pkg/jsonata/errors"
	"github.com/sambeau/jsonatafmt/pkg/jsonata/format"
	"github.com/sambeau/jsonatafmt/pkg/jsonata/jsonata"
)

const PROMPT = ">> "
const PROMPT_AST = "{} "
const CONTINUATION_PROMPT = ".. "

const LOGO = `
▀█ █▀ █▀█ █▄░█ ▄▀█ ▀█▀ ▄▀█
█▄█ ▄█ █▄█ █░▀█ █▀█ ░█░ █▀█ fmt`

// JSONata operators, literals and built-in functions for tab completion
var completionWords = []string{
	// Keywords and literals
	"and", "or", "in", "function", "true", "false", "null",
	// Aggregation
	"$sum", "$count", "$max", "$min", "$average",
	// Strings
	"$string", "$length", "$substring", "$substringBefore", "$substringAfter",
	"$uppercase", "$lowercase", "$trim", "$pad", "$contains", "$split",
	"$join", "$match", "$replace", "$eval", "$base64encode", "$base64decode",
	// Numbers
	"$number", "$abs", "$floor", "$ceil", "$round", "$power", "$sqrt",
	"$random", "$formatNumber", "$formatBase", "$parseInteger",
	// Arrays and objects
	"$append", "$sort", "$reverse", "$shuffle", "$distinct", "$zip",
	"$keys", "$lookup", "$spread", "$merge", "$each", "$sift", "$type",
	"$error", "$assert",
	// Higher order
	"$map", "$filter", "$single", "$reduce",
	// Dates
	"$now", "$millis", "$fromMillis", "$toMillis",
	// Booleans
	"$boolean", "$not", "$exists",
}

// Session holds the layout options and output mode of one REPL.
type Session struct {
	formatter *jsonata.Formatter
	opts      format.Options
	showAST   bool
	out       io.Writer
}

// NewSession creates a session writing to out.
func NewSession(out io.Writer, opts format.Options) *Session {
	if opts == (format.Options{}) {
		opts = format.DefaultOptions()
	}
	return &Session{
		formatter: jsonata.New(jsonata.Config{Options: opts}),
		opts:      opts,
		out:       out,
	}
}

// Options returns the session's current layout options.
func (s *Session) Options() format.Options {
	return s.opts
}

// Eval formats input, or prints its tree in AST mode, writing the result or
// the syntax error to the session output.
func (s *Session) Eval(input string) {
	prog, err := s.formatter.Parse(input)
	if err != nil {
		printSyntaxError(s.out, input, err)
		return
	}

	if s.showAST {
		data, err := ast.Encode(prog, "  ")
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			return
		}
		io.WriteString(s.out, string(data))
		io.WriteString(s.out, "\n")
		return
	}

	result, err := s.formatter.FormatTree(prog, jsonata.WithOptions(s.opts))
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	io.WriteString(s.out, result)
	io.WriteString(s.out, "\n")
}

// Command handles REPL meta-commands that start with ':'
func (s *Session) Command(cmd string) {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return
	}
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch fields[0] {
	case ":help", ":h", ":?":
		fmt.Fprintln(s.out, "REPL Commands:")
		fmt.Fprintln(s.out, "  :help, :h, :?     Show this help")
		fmt.Fprintln(s.out, "  :width N          Set the print width")
		fmt.Fprintln(s.out, "  :tabwidth N       Set the indentation width")
		fmt.Fprintln(s.out, "  :tabs             Toggle tab indentation")
		fmt.Fprintln(s.out, "  :ast              Toggle AST output")
		fmt.Fprintln(s.out, "  :options          Show the current options")
		fmt.Fprintln(s.out, "  :quit, :q         Exit the REPL (also exit, quit)")
		fmt.Fprintln(s.out, "")
		fmt.Fprintln(s.out, "Output Modes:")
		fmt.Fprintln(s.out, "  >> (format)       Shows the formatted expression")
		fmt.Fprintln(s.out, "  {} (ast)          Shows the parsed tree as JSON")

	case ":width":
		n, ok := positiveArg(s.out, cmd, arg)
		if ok {
			s.opts.PrintWidth = n
			fmt.Fprintf(s.out, "Print width set to %d\n", n)
		}

	case ":tabwidth":
		n, ok := positiveArg(s.out, cmd, arg)
		if ok {
			s.opts.TabWidth = n
			fmt.Fprintf(s.out, "Tab width set to %d\n", n)
		}

	case ":tabs":
		s.opts.UseTabs = !s.opts.UseTabs
		if s.opts.UseTabs {
			fmt.Fprintln(s.out, "Indenting with tabs")
		} else {
			fmt.Fprintln(s.out, "Indenting with spaces")
		}

	case ":ast":
		s.showAST = !s.showAST
		if s.showAST {
			fmt.Fprintln(s.out, "AST output mode ON")
		} else {
			fmt.Fprintln(s.out, "AST output mode OFF (formatted output)")
		}

	case ":options":
		fmt.Fprintf(s.out, "  width: %d\n  tab width: %d\n  tabs: %t\n",
			s.opts.PrintWidth, s.opts.TabWidth, s.opts.UseTabs)

	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type :help for commands)\n", cmd)
	}
}

func isQuit(s string) bool {
	switch s {
	case "exit", "quit", ":quit", ":q":
		return true
	}
	return false
}

func positiveArg(out io.Writer, cmd, arg string) (int, bool) {
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		fmt.Fprintf(out, "Usage: %s N (N must be a positive number)\n", strings.Fields(cmd)[0])
		return 0, false
	}
	return n, true
}

// Start starts the REPL with line editing, history, and tab completion
func Start(out io.Writer, version string, opts format.Options) {
	line := liner.NewLiner()
	defer line.Close()

	// Enable Ctrl+C to abort current line
	line.SetCtrlCAborts(true)
	line.SetCompleter(filterCompletions)

	historyFile := filepath.Join(os.TempDir(), ".jfmt_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	session := NewSession(out, opts)

	fmt.Fprintf(out, "%s", LOGO)
	fmt.Fprintln(out, " v", version)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Type 'exit' or Ctrl+D to quit")
	fmt.Fprintln(out, "Use Tab for completion, ↑↓ for history")
	fmt.Fprintln(out, "Type ':help' for REPL commands")
	fmt.Fprintln(out, "")

	var inputBuffer strings.Builder
	for {
		currentPrompt := PROMPT
		if session.showAST {
			currentPrompt = PROMPT_AST
		}
		if inputBuffer.Len() > 0 {
			currentPrompt = CONTINUATION_PROMPT
		}
		input, err := line.Prompt(currentPrompt)
		if err != nil {
			if err == liner.ErrPromptAborted {
				if inputBuffer.Len() > 0 {
					fmt.Fprintln(out, "^C (cleared)")
				} else {
					fmt.Fprintln(out, "^C")
				}
				inputBuffer.Reset()
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(out, "Error reading input: %v\n", err)
			continue
		}

		trimmed := strings.TrimSpace(input)
		if inputBuffer.Len() == 0 && isQuit(trimmed) {
			fmt.Fprintln(out, "Goodbye!")
			return
		}
		if inputBuffer.Len() == 0 && strings.HasPrefix(trimmed, ":") {
			session.Command(trimmed)
			continue
		}
		if inputBuffer.Len() == 0 && trimmed == "" {
			continue
		}

		if inputBuffer.Len() > 0 {
			inputBuffer.WriteString("\n")
		}
		inputBuffer.WriteString(input)

		fullInput := inputBuffer.String()
		if needsMoreInput(fullInput) {
			continue
		}
		line.AppendHistory(fullInput)
		session.Eval(fullInput)
		inputBuffer.Reset()
	}
}

// filterCompletions returns completion suggestions based on current input
func filterCompletions(line string) []string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}
	if line[len(line)-1] == ' ' || line[len(line)-1] == '\t' {
		return nil
	}

	// complete the trailing word, keeping everything before it
	start := strings.LastIndexAny(line, " \t([{,.;:") + 1
	prefix, word := line[:start], line[start:]
	if word == "" {
		return nil
	}

	var matches []string
	for _, w := range completionWords {
		if strings.HasPrefix(w, word) {
			matches = append(matches, prefix+w)
		}
	}
	return matches
}

// needsMoreInput checks if the input has unclosed brackets, strings or
// comments.
func needsMoreInput(input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}

	depth := 0
	var quote byte
	for i := 0; i < len(input); i++ {
		ch := input[i]

		if quote != 0 {
			if ch == '\\' && quote != '`' {
				i++
				continue
			}
			if ch == quote {
				quote = 0
			}
			continue
		}

		switch ch {
		case '"', '\'', '`':
			quote = ch
		case '/':
			if i+1 < len(input) && input[i+1] == '*' {
				end := strings.Index(input[i+2:], "*/")
				if end < 0 {
					return true
				}
				i += end + 3
			}
		case '{', '[', '(':
			depth++
		case '}', ']', ')':
			depth--
		}
	}
	return depth > 0 || quote != 0
}

func printSyntaxError(out io.Writer, input string, err error) {
	var se *errors.SyntaxError
	if stderrors.As(err, &se) {
		io.WriteString(out, se.PrettyString(input))
		io.WriteString(out, "\n")
		return
	}
	fmt.Fprintf(out, "Error: %v\n", err)
}
