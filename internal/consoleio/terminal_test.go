package consoleio

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForLines(t *testing.T, got func() []string, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if lines := got(); len(lines) >= n {
			return lines
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d dispatched line(s)", n)
	return nil
}

func TestTerminalDispatchesOnlyWhileInputStarted(t *testing.T) {
	// A pipe hands each line to the reader only when it is written, so
	// every line is read in the gating state the test sets up for it.
	in, inW := io.Pipe()
	defer inW.Close()
	var out bytes.Buffer

	var mu sync.Mutex
	var lines []string
	term := New(in, &out, func(line string) {
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
	})
	defer term.Close()

	term.StartInput()
	_, _ = io.WriteString(inW, "first\n")
	got := waitForLines(t, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), lines...)
	}, 1)
	assert.Equal(t, []string{"first"}, got)

	term.StopInput()
	_, _ = io.WriteString(inW, "second\nthird\n")
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	stillOne := len(lines)
	mu.Unlock()
	assert.Equal(t, 1, stillOne, "lines read while stopped must be discarded, not queued")
}

func TestTerminalOutputWritesWithAndWithoutNewline(t *testing.T) {
	in := bytes.NewBufferString("")
	var out bytes.Buffer
	term := New(in, &out, func(string) {})
	defer term.Close()

	term.Output("no newline")
	term.OutputLine("with newline")

	assert.Equal(t, "no newlinewith newline\n", out.String())
}

func TestTerminalDoesNotShowPromptForNonTTYWriter(t *testing.T) {
	in := bytes.NewBufferString("line\n")
	var out bytes.Buffer
	var mu sync.Mutex
	var got []string
	term := New(in, &out, func(line string) {
		mu.Lock()
		got = append(got, line)
		mu.Unlock()
	})
	defer term.Close()

	term.StartInput()
	waitForLines(t, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), got...)
	}, 1)

	assert.False(t, strings.Contains(out.String(), "(xdbg)"), "a non-terminal writer (e.g. a bytes.Buffer in tests) must never see the prompt")
}

func TestSetPromptChangesPromptText(t *testing.T) {
	term := New(bytes.NewBufferString(""), &bytes.Buffer{}, func(string) {})
	defer term.Close()

	term.SetPrompt("(xdbg:main.go:7) ")
	require.Equal(t, "(xdbg:main.go:7) ", term.prompt)
}

func TestCloseStopsDispatchingFurtherLines(t *testing.T) {
	in, inW := io.Pipe()
	defer inW.Close()
	var out bytes.Buffer
	var mu sync.Mutex
	var got []string
	term := New(in, &out, func(line string) {
		mu.Lock()
		got = append(got, line)
		mu.Unlock()
	})
	term.StartInput()
	_, _ = io.WriteString(inW, "a\n")
	waitForLines(t, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), got...)
	}, 1)

	term.Close()
	_, _ = io.WriteString(inW, "b\n")
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	n := len(got)
	mu.Unlock()
	assert.Equal(t, 1, n, "Close must stop further dispatch even if the stream has more buffered lines")
}
