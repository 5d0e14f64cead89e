// Package console prints agent progress and asks the operator questions.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"autodev/pkg/agent"
)

// Printer renders agent messages as "Agent: <position>: <message>" with the
// position in green and the message colored by kind.
type Printer struct {
	mu  sync.Mutex
	out io.Writer

	position lipgloss.Style
	question lipgloss.Style
	kinds    map[agent.MessageKind]lipgloss.Style
}

// NewPrinter returns a Printer writing to out. Colors are dropped when out is not a terminal.
func NewPrinter(out io.Writer) *Printer {
	r := lipgloss.NewRenderer(out)
	return &Printer{
		out:      out,
		position: r.NewStyle().Foreground(lipgloss.Color("2")),
		question: r.NewStyle().Foreground(lipgloss.Color("4")),
		kinds: map[agent.MessageKind]lipgloss.Style{
			agent.MessageAICall:   r.NewStyle().Foreground(lipgloss.Color("6")),
			agent.MessageUnitTest: r.NewStyle().Foreground(lipgloss.Color("5")),
			agent.MessageIssue:    r.NewStyle().Foreground(lipgloss.Color("1")),
		},
	}
}

// Report implements agent.Observer.
func (p *Printer) Report(position string, kind agent.MessageKind, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	style, ok := p.kinds[kind]
	if !ok {
		style = lipgloss.NewStyle()
	}
	fmt.Fprintf(p.out, "%s%s\n", p.position.Render("Agent: "+position+": "), style.Render(message))
}

func (p *Printer) printQuestion(question string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "\n%s\n", p.question.Render(question))
}

// ErrNoAnswer means input ended before the operator answered.
var ErrNoAnswer = errors.New("no answer on input")

// Prompter reads operator input line by line.
type Prompter struct {
	printer *Printer
	in      *bufio.Reader
}

// NewPrompter returns a Prompter reading from in and printing questions with printer.
func NewPrompter(in io.Reader, printer *Printer) *Prompter {
	return &Prompter{printer: printer, in: bufio.NewReader(in)}
}

// Ask prints question and returns the next input line, trimmed.
func (p *Prompter) Ask(question string) (string, error) {
	p.printer.printQuestion(question)

	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && strings.TrimSpace(line) != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrNoAnswer
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// SafetyWarning is the question asked before generated code is built and run.
const SafetyWarning = "WARNING: You are about to run code written entirely by AI. " +
	"Review your code and confirm you wish to continue.\n[1] All good\n[2] Let's stop this project"

// Confirmer is the operator gate in front of running generated code.
type Confirmer struct {
	prompter    *Prompter
	assumeYes   bool
	interactive bool
}

// ConfirmerOptions configures a Confirmer.
type ConfirmerOptions struct {
	// AssumeYes approves every prompt without reading input.
	AssumeYes bool
	// Interactive reports whether input is attached to an operator. A
	// non-interactive Confirmer declines unless AssumeYes is set.
	Interactive bool
}

// NewConfirmer returns a Confirmer asking through prompter.
func NewConfirmer(prompter *Prompter, opts ConfirmerOptions) *Confirmer {
	return &Confirmer{prompter: prompter, assumeYes: opts.AssumeYes, interactive: opts.Interactive}
}

// Confirm asks question until it gets a yes or a no. Accepted answers are
// 1/y/yes and 2/n/no.
func (c *Confirmer) Confirm(question string) (bool, error) {
	if c.assumeYes {
		return true, nil
	}
	if !c.interactive {
		return false, nil
	}

	for {
		answer, err := c.prompter.Ask(question)
		if err != nil {
			if errors.Is(err, ErrNoAnswer) {
				return false, nil
			}
			return false, err
		}

		switch strings.ToLower(answer) {
		case "1", "y", "yes":
			return true, nil
		case "2", "n", "no":
			return false, nil
		}
		c.prompter.printer.Report("Operator", agent.MessageIssue, fmt.Sprintf("invalid answer %q, enter 1 or 2", answer))
	}
}

// StdinIsTerminal reports whether standard input is a terminal.
func StdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) //nolint:gosec // fd fits in int
}
