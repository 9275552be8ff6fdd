// terminal_host.go - Line input for the machine monitor prompt

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// stdinStdout satisfies io.ReadWriter for term.Terminal.
type stdinStdout struct{}

func (stdinStdout) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdinStdout) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

// TerminalHost supplies line input for the monitor prompt. On a real
// terminal it uses a raw-mode x/term line editor with history; on a pipe it
// falls back to plain buffered reads. Raw mode is only active while the
// prompt session is open, so the guest console and SIGINT behave normally
// while the machine runs.
type TerminalHost struct {
	fd    int
	isTTY bool

	vt       *term.Terminal
	oldState *term.State
	scanner  *bufio.Reader
	prompt   string
}

func NewTerminalHost(prompt string) *TerminalHost {
	fd := int(os.Stdin.Fd())
	h := &TerminalHost{fd: fd, isTTY: term.IsTerminal(fd), prompt: prompt}
	if h.isTTY {
		h.vt = term.NewTerminal(stdinStdout{}, prompt)
	} else {
		h.scanner = bufio.NewReader(os.Stdin)
	}
	return h
}

// Begin opens a prompt session (enters raw mode on a terminal).
func (h *TerminalHost) Begin() {
	if !h.isTTY {
		return
	}
	if state, err := term.MakeRaw(h.fd); err == nil {
		h.oldState = state
	}
}

// End closes the prompt session and restores the terminal.
func (h *TerminalHost) End() {
	if h.oldState != nil {
		_ = term.Restore(h.fd, h.oldState)
		h.oldState = nil
	}
}

// ReadLine reads one command line. io.EOF means the user closed stdin.
func (h *TerminalHost) ReadLine() (string, error) {
	if h.isTTY {
		return h.vt.ReadLine()
	}
	fmt.Print(h.prompt)
	line, err := h.scanner.ReadString('\n')
	if len(line) > 0 {
		return trimEOL(line), nil
	}
	if err != nil {
		return "", io.EOF
	}
	return line, nil
}

func trimEOL(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
