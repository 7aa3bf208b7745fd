package ui

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter asks the operator for a decision at a pipeline checkpoint. All
// methods block until answered.
type Prompter interface {
	// Confirm asks a yes/no question and returns the answer.
	// defaultAnswer is returned when stdin is not a terminal.
	Confirm(question string, defaultAnswer bool) bool
	// Acknowledge blocks until the operator presses enter.
	Acknowledge(message string)
}

// TerminalPrompter reads answers from stdin.
type TerminalPrompter struct {
	in *bufio.Reader
}

// NewTerminalPrompter creates a prompter reading from stdin.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{in: bufio.NewReader(os.Stdin)}
}

// Confirm asks a yes/no question. Unattended runs (stdin not a terminal)
// get the default answer so the pipeline keeps moving.
func (p *TerminalPrompter) Confirm(question string, defaultAnswer bool) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		answer := "no"
		if defaultAnswer {
			answer = "yes"
		}
		PrintWarning(fmt.Sprintf("%s -> %s (non-interactive)", question, answer))
		return defaultAnswer
	}

	hint := "[y/N]"
	if defaultAnswer {
		hint = "[Y/n]"
	}

	for {
		fmt.Printf("%s %s ", Yellow(question), Dim(hint))
		line, err := p.in.ReadString('\n')
		if err != nil {
			return defaultAnswer
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "":
			return defaultAnswer
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
	}
}

// Acknowledge blocks until the operator presses enter. Non-interactive runs
// return immediately.
func (p *TerminalPrompter) Acknowledge(message string) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		PrintWarning(message + " (non-interactive, continuing)")
		return
	}
	fmt.Printf("%s %s", Yellow(message), Dim("press enter to continue"))
	_, _ = p.in.ReadString('\n')
}
