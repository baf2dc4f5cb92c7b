// Package dapsession implements debugger.DebugSession over a spawned
// adapter process's stdio or a dialed TCP connection, framing the
// Debug Adapter Protocol on top of it, decoding payloads with
// google/go-dap's wire types and demultiplexing the adapter's event
// stream into the per-kind channels the engine selects over.
package dapsession

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/go-dap"
	"github.com/vburojevic/xdbg/internal/debugger"
)

// Session drives one adapter connection, framing messages per the DAP
// header ("Content-Length: N\r\n\r\n{json}") convention on top of
// either a spawned process's stdio (Spawn) or a TCP connection to an
// already-running adapter (Dial, for attach-by-address presets like
// node-inspector).
type Session struct {
	cmd    *exec.Cmd // set only for Spawn; nil for Dial
	conn   net.Conn  // set only for Dial; nil for Spawn
	stdin  io.WriteCloser
	reader *bufio.Reader

	seq     int64
	pending sync.Map // int -> chan rawResponse

	initHub       *hub[dap.InitializedEvent]
	outputHub     *hub[dap.OutputEvent]
	continuedHub  *hub[dap.ContinuedEvent]
	stoppedHub    *hub[dap.StoppedEvent]
	threadHub     *hub[dap.ThreadEvent]
	exitedHub     *hub[dap.ExitedEvent]
	terminatedHub *hub[dap.TerminatedEvent]
	adapterExited *hub[debugger.AdapterExitedEvent]
	breakpointHub *hub[dap.BreakpointEvent]
	moduleHub     *hub[dap.ModuleEvent]
	customHub     *hub[dap.Event]

	closeOnce    sync.Once
	done         chan struct{}
	readLoopDone chan struct{}
	readLoopErr  error
}

type rawResponse struct {
	success bool
	message string
	body    json.RawMessage
}

// envelope is used only to peek the fields every DAP message shares
// before deciding how to decode its body into a concrete go-dap type.
type envelope struct {
	Seq        int             `json:"seq"`
	Type       string          `json:"type"`
	Event      string          `json:"event"`
	Command    string          `json:"command"`
	RequestSeq int             `json:"request_seq"`
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Body       json.RawMessage `json:"body"`
}

// Spawn starts the adapter binary (name plus args) and begins reading
// its stdout for DAP protocol messages. The returned Session satisfies
// debugger.DebugSession.
func Spawn(ctx context.Context, name string, args []string) (*Session, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start adapter: %w", err)
	}

	s := newSession(stdin, stdout)
	s.cmd = cmd

	go s.readLoop()
	go s.waitLoop()

	return s, nil
}

// Dial connects to an adapter already listening on addr (e.g. Node's
// inspector protocol or vscode-js-debug), for attach presets that have
// no process of their own to spawn.
func Dial(ctx context.Context, network, addr string) (*Session, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial adapter at %s: %w", addr, err)
	}

	s := newSession(conn, conn)
	s.conn = conn

	go s.readLoop()
	go s.connWaitLoop()

	return s, nil
}

func newSession(w io.WriteCloser, r io.Reader) *Session {
	return &Session{
		stdin:         w,
		reader:        bufio.NewReader(r),
		initHub:       newHub[dap.InitializedEvent](),
		outputHub:     newHub[dap.OutputEvent](),
		continuedHub:  newHub[dap.ContinuedEvent](),
		stoppedHub:    newHub[dap.StoppedEvent](),
		threadHub:     newHub[dap.ThreadEvent](),
		exitedHub:     newHub[dap.ExitedEvent](),
		terminatedHub: newHub[dap.TerminatedEvent](),
		adapterExited: newHub[debugger.AdapterExitedEvent](),
		breakpointHub: newHub[dap.BreakpointEvent](),
		moduleHub:     newHub[dap.ModuleEvent](),
		customHub:     newHub[dap.Event](),
		done:          make(chan struct{}),
		readLoopDone:  make(chan struct{}),
	}
}

// waitLoop reports a spawned process's exit, mirroring the adapter
// lifecycle a real DAP client observes when the child process dies.
func (s *Session) waitLoop() {
	err := s.cmd.Wait()
	exitCode := 0
	if s.cmd.ProcessState != nil {
		exitCode = s.cmd.ProcessState.ExitCode()
	}
	s.adapterExited.publish(&debugger.AdapterExitedEvent{ExitCode: exitCode, Err: err})
	s.closeOnce.Do(func() { close(s.done) })
}

// connWaitLoop is Dial's analogue of waitLoop: a dialed connection has
// no exit code, only a closed/broken socket once readLoop gives up.
func (s *Session) connWaitLoop() {
	<-s.readLoopDone
	s.adapterExited.publish(&debugger.AdapterExitedEvent{ExitCode: 0, Err: s.readLoopErr})
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Session) readLoop() {
	for {
		raw, err := readMessage(s.reader)
		if err != nil {
			s.readLoopErr = err
			close(s.readLoopDone)
			return
		}
		s.dispatch(raw)
	}
}

// readMessage reads one "Content-Length: N\r\n\r\n{json body}" frame.
func readMessage(r *bufio.Reader) ([]byte, error) {
	var length int
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if name, value, ok := strings.Cut(line, ":"); ok && strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			length, err = strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("invalid Content-Length header %q: %w", value, err)
			}
		}
	}
	if length <= 0 {
		return nil, fmt.Errorf("missing or invalid Content-Length header")
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}

// writeMessage frames body per the DAP header convention and writes it
// in a single call, since concurrent requests share one stdin pipe.
func writeMessage(w io.Writer, body []byte) error {
	_, err := fmt.Fprintf(w, "Content-Length: %d\r\n\r\n%s", len(body), body)
	return err
}

func (s *Session) dispatch(raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return
	}

	switch env.Type {
	case "response":
		s.resolve(env.RequestSeq, rawResponse{success: env.Success, message: env.Message, body: env.Body})
	case "event":
		s.dispatchEvent(env.Event, env.Body)
	}
}

func (s *Session) dispatchEvent(kind string, body json.RawMessage) {
	switch kind {
	case "initialized":
		s.initHub.publish(&dap.InitializedEvent{})
	case "output":
		var b dap.OutputEventBody
		_ = json.Unmarshal(body, &b)
		s.outputHub.publish(&dap.OutputEvent{Body: b})
	case "continued":
		var b dap.ContinuedEventBody
		_ = json.Unmarshal(body, &b)
		s.continuedHub.publish(&dap.ContinuedEvent{Body: b})
	case "stopped":
		var b dap.StoppedEventBody
		_ = json.Unmarshal(body, &b)
		s.stoppedHub.publish(&dap.StoppedEvent{Body: b})
	case "thread":
		var b dap.ThreadEventBody
		_ = json.Unmarshal(body, &b)
		s.threadHub.publish(&dap.ThreadEvent{Body: b})
	case "exited":
		var b dap.ExitedEventBody
		_ = json.Unmarshal(body, &b)
		s.exitedHub.publish(&dap.ExitedEvent{Body: b})
	case "terminated":
		var b dap.TerminatedEventBody
		_ = json.Unmarshal(body, &b)
		s.terminatedHub.publish(&dap.TerminatedEvent{Body: b})
	case "breakpoint":
		var b dap.BreakpointEventBody
		_ = json.Unmarshal(body, &b)
		s.breakpointHub.publish(&dap.BreakpointEvent{Body: b})
	case "module":
		var b dap.ModuleEventBody
		_ = json.Unmarshal(body, &b)
		s.moduleHub.publish(&dap.ModuleEvent{Body: b})
	default:
		s.customHub.publish(&dap.Event{Event: kind})
	}
}

func (s *Session) resolve(requestSeq int, resp rawResponse) {
	if ch, ok := s.pending.LoadAndDelete(requestSeq); ok {
		ch.(chan rawResponse) <- resp
	}
}

func (s *Session) nextSeq() int {
	return int(atomic.AddInt64(&s.seq, 1))
}

// call sends a request with the given command and arguments (nil for
// none), blocks for the matching response, and decodes its body into
// out (nil to discard the body entirely).
func (s *Session) call(ctx context.Context, command string, arguments interface{}, out interface{}) error {
	seq := s.nextSeq()
	wire := struct {
		Seq       int         `json:"seq"`
		Type      string      `json:"type"`
		Command   string      `json:"command"`
		Arguments interface{} `json:"arguments,omitempty"`
	}{Seq: seq, Type: "request", Command: command, Arguments: arguments}

	body, err := json.Marshal(wire)
	if err != nil {
		return err
	}

	ch := make(chan rawResponse, 1)
	s.pending.Store(seq, ch)

	if err := writeMessage(s.stdin, body); err != nil {
		s.pending.Delete(seq)
		return err
	}

	select {
	case resp := <-ch:
		if !resp.success {
			return fmt.Errorf("%s: %s", command, resp.message)
		}
		if out == nil || len(resp.body) == 0 {
			return nil
		}
		return json.Unmarshal(resp.body, out)
	case <-ctx.Done():
		s.pending.Delete(seq)
		return ctx.Err()
	case <-s.done:
		s.pending.Delete(seq)
		return fmt.Errorf("debug adapter process exited")
	}
}

var _ debugger.DebugSession = (*Session)(nil)
