// Package repl runs a line-oriented question loop against an agents.Asker.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/germanamz/agentapi/pkg/agents"
	"github.com/muesli/termenv"
)

// Prompt is printed before every line is read.
const Prompt = "Enter the query: "

const (
	exitCommand = "exit"
	maxLineSize = 1 << 20
	wrapWidth   = 100
)

// Options configures a REPL.
type Options struct {
	// Markdown renders replies as terminal markdown.
	Markdown bool
}

// REPL reads questions from in and writes answers to out.
type REPL struct {
	asker  agents.Asker
	in     io.Reader
	out    io.Writer
	prompt lipgloss.Style
	md     *glamour.TermRenderer
}

// New creates a REPL. Styling follows out: plain text unless out is a
// terminal.
func New(asker agents.Asker, in io.Reader, out io.Writer, opts Options) (*REPL, error) {
	renderer := lipgloss.NewRenderer(out)

	r := &REPL{
		asker:  asker,
		in:     in,
		out:    out,
		prompt: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
	}

	if opts.Markdown {
		style := glamour.WithAutoStyle()
		if renderer.ColorProfile() == termenv.Ascii {
			style = glamour.WithStandardStyle(styles.NoTTYStyle)
		}

		md, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(wrapWidth))
		if err != nil {
			return nil, fmt.Errorf("repl: markdown renderer: %w", err)
		}
		r.md = md
	}

	return r, nil
}

// Run loops until the user types exit, in reaches EOF, or ctx is done. An
// error from the asker ends the loop and is returned.
func (r *REPL) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, err := fmt.Fprint(r.out, r.prompt.Render(Prompt)); err != nil {
			return fmt.Errorf("repl: %w", err)
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("repl: read input: %w", err)
			}
			_, _ = fmt.Fprintln(r.out)
			return nil
		}

		line := scanner.Text()
		if strings.EqualFold(strings.TrimSpace(line), exitCommand) {
			return nil
		}

		res, err := r.asker.Ask(ctx, line)
		if err != nil {
			return err
		}

		if err := r.print(res.FinalOutput); err != nil {
			return err
		}
	}
}

func (r *REPL) print(text string) error {
	if r.md != nil {
		rendered, err := r.md.Render(text)
		if err == nil {
			_, err = fmt.Fprint(r.out, rendered)
			return err
		}
	}

	_, err := fmt.Fprintln(r.out, text)
	return err
}
