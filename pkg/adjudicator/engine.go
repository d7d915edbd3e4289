// Package adjudicator is a client for an external adjudication engine
// running as a subprocess. It manages the process lifecycle, performs the
// protocol handshake and implements engine.Engine over a line protocol:
// one command per line on stdin, answered by zero or more data lines and
// a terminator line "ok" or "error <reason>".
package adjudicator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/orderdesk/internal/engine"
)

// DefaultTimeout bounds a call whose context carries no deadline.
const DefaultTimeout = 10 * time.Second

const (
	lineBuffer   = 256
	maxLineBytes = 1 << 20
	closeWait    = 3 * time.Second
)

// ErrClosed is returned by calls made after Close.
var ErrClosed = errors.New("adjudicator: engine is closed")

// EngineID holds the identification received during the handshake.
type EngineID struct {
	Name            string
	Author          string
	ProtocolVersion int
}

// Engine wraps an adjudicator subprocess. Calls are serialised; each one
// writes a command and reads its reply before the next command is sent.
type Engine struct {
	path string
	args []string

	// Timeout bounds calls whose context has no deadline.
	Timeout time.Duration

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  chan string
	exited chan struct{}

	mu      sync.Mutex
	closed  bool
	stale   bool  // a reply was abandoned mid-read; resync before the next command
	readErr error // set by readLoop before lines is closed
	kinds   map[string]engine.RegionKind

	// ID is populated during Init.
	ID EngineID
}

var _ engine.Engine = (*Engine)(nil)

// NewEngine creates an Engine for the binary at path. The process is not
// started until Init is called.
func NewEngine(path string, args ...string) *Engine {
	return &Engine{
		path:    path,
		args:    args,
		Timeout: DefaultTimeout,
		kinds:   make(map[string]engine.RegionKind),
	}
}

// Init starts the subprocess and performs the handshake
// (adj -> id/protocol_version/adjok, isready -> readyok).
func (e *Engine) Init(ctx context.Context) error {
	if err := e.start(); err != nil {
		return fmt.Errorf("adjudicator: start engine: %w", err)
	}
	if err := e.handshake(ctx); err != nil {
		e.Close()
		return fmt.Errorf("adjudicator: handshake: %w", err)
	}
	log.Info().
		Str("path", e.path).
		Str("name", e.ID.Name).
		Str("author", e.ID.Author).
		Int("protocol", e.ID.ProtocolVersion).
		Msg("Adjudicator ready")
	return nil
}

// IsReady sends "isready" and waits for "readyok".
func (e *Engine) IsReady(ctx context.Context) error {
	ctx, cancel := e.bound(ctx)
	defer cancel()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if err := e.write("isready"); err != nil {
		return err
	}
	return e.readUntil(ctx, "readyok")
}

// Parties lists the powers in the game.
func (e *Engine) Parties(ctx context.Context) ([]engine.Party, error) {
	data, err := e.call(ctx, "", "powers")
	if err != nil {
		return nil, err
	}
	var out []engine.Party
	for _, p := range values(data, "power") {
		out = append(out, engine.NormalizeParty(p))
	}
	return out, nil
}

// Units lists the units of party.
func (e *Engine) Units(ctx context.Context, party engine.Party) ([]engine.Unit, error) {
	data, err := e.call(ctx, party, "units", string(party))
	if err != nil {
		return nil, err
	}
	var out []engine.Unit
	for _, v := range values(data, "unit") {
		u, err := engine.ParseUnit(v, party)
		if err != nil {
			return nil, fmt.Errorf("adjudicator: units %s: %w", party, err)
		}
		out = append(out, u)
	}
	return out, nil
}

// Orders returns the pending orders of party.
func (e *Engine) Orders(ctx context.Context, party engine.Party) ([]string, error) {
	data, err := e.call(ctx, party, "orders", string(party))
	if err != nil {
		return nil, err
	}
	out := values(data, "order")
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// SetOrders replaces the pending orders of party. An "error" reply becomes
// a *engine.RejectionError carrying the engine's reason.
func (e *Engine) SetOrders(ctx context.Context, party engine.Party, orders []string) error {
	for _, o := range orders {
		if strings.ContainsAny(o, ";\n") {
			return &engine.RejectionError{Op: "setorders", Party: party, Reason: "order contains a separator: " + o}
		}
	}
	args := []string{string(party)}
	if len(orders) > 0 {
		args = append(args, strings.Join(orders, " ; "))
	}
	_, err := e.call(ctx, party, "setorders", args...)
	return err
}

// Adjacent lists the regions adjacent to region.
func (e *Engine) Adjacent(ctx context.Context, region string) ([]string, error) {
	data, err := e.call(ctx, "", "adjacent", region)
	if err != nil {
		return nil, err
	}
	return values(data, "region"), nil
}

// Kind classifies region. Answers are cached for the life of the process
// since the region graph does not change.
func (e *Engine) Kind(ctx context.Context, region string) (engine.RegionKind, error) {
	e.mu.Lock()
	k, ok := e.kinds[region]
	e.mu.Unlock()
	if ok {
		return k, nil
	}

	data, err := e.call(ctx, "", "kind", region)
	if err != nil {
		return engine.Land, err
	}
	vs := values(data, "kind")
	if len(vs) == 0 {
		return engine.Land, fmt.Errorf("adjudicator: kind %s: no kind in reply", region)
	}
	k, err = engine.ParseRegionKind(vs[0])
	if err != nil {
		return engine.Land, fmt.Errorf("adjudicator: kind %s: %w", region, err)
	}

	e.mu.Lock()
	e.kinds[region] = k
	e.mu.Unlock()
	return k, nil
}

// Process resolves the current phase.
func (e *Engine) Process(ctx context.Context) error {
	data, err := e.call(ctx, "", "process")
	if err != nil {
		return err
	}
	if vs := values(data, "phase"); len(vs) > 0 {
		log.Info().Str("phase", vs[0]).Msg("Adjudicator processed turn")
	}
	return nil
}

// Phase describes the current phase, e.g. "Spring 1901 Movement".
func (e *Engine) Phase(ctx context.Context) (string, error) {
	data, err := e.call(ctx, "", "phase")
	if err != nil {
		return "", err
	}
	vs := values(data, "phase")
	if len(vs) == 0 {
		return "", errors.New("adjudicator: phase: no phase in reply")
	}
	return vs[0], nil
}

// Reset starts a new game.
func (e *Engine) Reset(ctx context.Context) error {
	_, err := e.call(ctx, "", "newgame")
	return err
}

// Close sends "quit" and waits for the process to exit, killing it if it
// has not exited within three seconds.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	if e.stdin != nil {
		fmt.Fprintf(e.stdin, "quit\n")
	}
	e.closed = true
	e.mu.Unlock()

	if e.stdin != nil {
		e.stdin.Close()
	}

	if e.exited != nil {
		select {
		case <-e.exited:
		case <-time.After(closeWait):
			log.Warn().Str("path", e.path).Msg("Adjudicator did not exit within 3s, killing")
			if e.cmd != nil && e.cmd.Process != nil {
				e.cmd.Process.Kill()
			}
			<-e.exited
		}
	}
	log.Info().Str("path", e.path).Msg("Adjudicator closed")
	return nil
}

// start launches the subprocess.
func (e *Engine) start() error {
	e.cmd = exec.Command(e.path, e.args...)

	stdin, err := e.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := e.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := e.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := e.cmd.Start(); err != nil {
		return fmt.Errorf("start process: %w", err)
	}
	log.Info().Str("path", e.path).Strs("args", e.args).Int("pid", e.cmd.Process.Pid).Msg("Adjudicator started")

	e.exited = make(chan struct{})
	go func() {
		err := e.cmd.Wait()
		log.Info().Err(err).Str("path", e.path).Msg("Adjudicator exited")
		close(e.exited)
	}()
	go logStderr(e.path, stderr)

	e.attach(stdout, stdin)
	return nil
}

// attach wires the protocol to a reply stream and a command sink and starts
// the reader goroutine.
func (e *Engine) attach(r io.Reader, w io.WriteCloser) {
	e.stdin = w
	e.lines = make(chan string, lineBuffer)
	go e.readLoop(r)
}

// readLoop forwards reply lines until the stream ends.
func (e *Engine) readLoop(r io.Reader) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		e.lines <- sc.Text()
	}
	err := sc.Err()
	if err == nil {
		err = io.EOF
	}
	e.readErr = err // published by the close below
	close(e.lines)
}

func logStderr(path string, r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		log.Debug().Str("path", path).Str("line", sc.Text()).Msg("Adjudicator stderr")
	}
}

// handshake performs the initialization sequence.
func (e *Engine) handshake(ctx context.Context) error {
	ctx, cancel := e.bound(ctx)
	defer cancel()

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.write("adj"); err != nil {
		return err
	}
	for {
		line, err := e.next(ctx)
		if err != nil {
			return fmt.Errorf("waiting for adjok: %w", err)
		}
		switch {
		case strings.HasPrefix(line, "id name "):
			e.ID.Name = strings.TrimPrefix(line, "id name ")
		case strings.HasPrefix(line, "id author "):
			e.ID.Author = strings.TrimPrefix(line, "id author ")
		case strings.HasPrefix(line, "protocol_version "):
			fmt.Sscanf(strings.TrimPrefix(line, "protocol_version "), "%d", &e.ID.ProtocolVersion)
		case line == "adjok":
			if err := e.write("isready"); err != nil {
				return err
			}
			if err := e.readUntil(ctx, "readyok"); err != nil {
				return fmt.Errorf("waiting for readyok: %w", err)
			}
			return nil
		}
	}
}

// call sends one command and returns its data lines. party, when set, is
// attached to a rejection.
func (e *Engine) call(ctx context.Context, party engine.Party, verb string, args ...string) ([]string, error) {
	ctx, cancel := e.bound(ctx)
	defer cancel()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}
	if e.stale {
		if err := e.resync(ctx); err != nil {
			return nil, err
		}
	}

	line := verb
	if len(args) > 0 {
		line += " " + strings.Join(args, " ")
	}
	if err := e.write(line); err != nil {
		return nil, err
	}

	var data []string
	for {
		reply, err := e.next(ctx)
		if err != nil {
			return nil, fmt.Errorf("adjudicator: %s: %w", verb, err)
		}
		switch {
		case reply == "ok":
			return data, nil
		case reply == "error" || strings.HasPrefix(reply, "error "):
			reason := strings.TrimSpace(strings.TrimPrefix(reply, "error"))
			return nil, &engine.RejectionError{Op: verb, Party: party, Reason: reason}
		default:
			data = append(data, reply)
		}
	}
}

// resync discards whatever is left of an abandoned reply by sending
// "isready" and skipping lines up to "readyok". Caller holds mu.
func (e *Engine) resync(ctx context.Context) error {
	log.Warn().Str("path", e.path).Msg("Resynchronising with adjudicator")
	if err := e.write("isready"); err != nil {
		return err
	}
	if err := e.readUntil(ctx, "readyok"); err != nil {
		return fmt.Errorf("adjudicator: resync: %w", err)
	}
	e.stale = false
	return nil
}

// readUntil skips lines until expected arrives. Caller holds mu.
func (e *Engine) readUntil(ctx context.Context, expected string) error {
	for {
		line, err := e.next(ctx)
		if err != nil {
			return err
		}
		if line == expected {
			return nil
		}
	}
}

// next returns the next reply line. A cancelled wait marks the stream
// stale so the next call resynchronises first. Caller holds mu.
func (e *Engine) next(ctx context.Context) (string, error) {
	select {
	case line, ok := <-e.lines:
		if !ok {
			return "", fmt.Errorf("engine closed stdout: %w", e.readErr)
		}
		return line, nil
	case <-ctx.Done():
		e.stale = true
		return "", fmt.Errorf("no reply: %w", ctx.Err())
	}
}

// write sends one command line. Caller holds mu.
func (e *Engine) write(line string) error {
	if e.stdin == nil {
		return errors.New("adjudicator: engine not started")
	}
	if _, err := fmt.Fprintf(e.stdin, "%s\n", line); err != nil {
		return fmt.Errorf("adjudicator: write %q: %w", line, err)
	}
	return nil
}

// bound applies the default timeout when ctx has no deadline.
func (e *Engine) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || e.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.Timeout)
}

// values returns the payload of every data line starting with key.
func values(data []string, key string) []string {
	var out []string
	prefix := key + " "
	for _, line := range data {
		if strings.HasPrefix(line, prefix) {
			out = append(out, strings.TrimSpace(strings.TrimPrefix(line, prefix)))
		}
	}
	return out
}
