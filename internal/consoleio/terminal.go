// Package consoleio implements debugger.ConsoleIO for local interactive
// use: a writer to stdout that writes each Output/OutputLine call
// immediately, and a gated reader that feeds complete lines to a
// LineHandler (the command dispatcher).
package consoleio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

// LineHandler receives one line of REPL input at a time, with the
// trailing newline already stripped.
type LineHandler func(line string)

// Terminal implements debugger.ConsoleIO over the given reader/writer
// (normally os.Stdin/os.Stdout, swapped out in tests). Reading from the
// underlying stream starts once and runs for Terminal's whole lifetime;
// StartInput/StopInput gate only whether a completed line is dispatched
// to onLine, since a blocking read on a real terminal cannot be
// interrupted mid-line the way the DAP-side state machine can toggle
// READY/not-ready on a whim.
type Terminal struct {
	mu     sync.Mutex
	out    io.Writer
	onLine LineHandler
	prompt string

	reading    bool
	closed     bool
	showPrompt bool
	doneCh     chan struct{}
}

// New builds a Terminal reading from in and writing to out. onLine is
// invoked once per line while input is started; it is never called
// concurrently with itself. The prompt is only ever printed when out is
// a real terminal, since a piped or redirected stdout has no one to
// read it and it would only corrupt scripted output.
func New(in io.Reader, out io.Writer, onLine LineHandler) *Terminal {
	t := &Terminal{
		out:        out,
		onLine:     onLine,
		prompt:     "(xdbg) ",
		doneCh:     make(chan struct{}),
		showPrompt: isTerminal(out),
	}
	go t.readLoop(bufio.NewScanner(in))
	return t
}

// NewStdTerminal builds a Terminal wired to os.Stdin/os.Stdout.
func NewStdTerminal(onLine LineHandler) *Terminal {
	return New(os.Stdin, os.Stdout, onLine)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// SetPrompt changes the prompt string printed before each read, letting
// a StoppedHook reflect the current frame (e.g. "(xdbg:main.go:7) ").
func (t *Terminal) SetPrompt(prompt string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prompt = prompt
}

// Output writes text with no trailing newline.
func (t *Terminal) Output(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprint(t.out, text)
}

// OutputLine writes text followed by a newline.
func (t *Terminal) OutputLine(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, text)
}

// StartInput begins dispatching scanned lines to onLine and prints the
// prompt. A no-op if input is already started.
func (t *Terminal) StartInput() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.reading || t.closed {
		return
	}
	t.reading = true
	if t.showPrompt {
		fmt.Fprint(t.out, t.prompt)
	}
}

// StopInput stops dispatching scanned lines to onLine. Lines typed
// while stopped are read off the stream (so the next Scan() call isn't
// left blocking on a half-consumed buffer) but silently discarded.
func (t *Terminal) StopInput() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reading = false
}

func (t *Terminal) readLoop(scanner *bufio.Scanner) {
	defer close(t.doneCh)
	for scanner.Scan() {
		line := scanner.Text()

		t.mu.Lock()
		active := t.reading
		t.mu.Unlock()
		if !active {
			continue
		}

		t.onLine(line)

		t.mu.Lock()
		if t.reading && t.showPrompt {
			fmt.Fprint(t.out, t.prompt)
		}
		t.mu.Unlock()
	}
}

// Close marks the terminal closed; it no longer dispatches typed lines.
// The underlying reader goroutine exits on its own once the stream
// reaches EOF or is closed by the caller.
func (t *Terminal) Close() {
	t.mu.Lock()
	t.reading = false
	t.closed = true
	t.mu.Unlock()
}
