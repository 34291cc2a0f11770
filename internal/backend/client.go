// Package backend talks to a Guile process that answers semantic queries.
//
// The protocol is one JSON value per line in each direction. A request is
// ["command", payload]; a response is {"status":"ok","result":...} or
// {"status":"error","message":...}. Responses arrive in request order.
package backend

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var (
	// ErrClosed is returned by calls on a client whose process has exited
	// or that was closed.
	ErrClosed = errors.New("backend: closed")
	// ErrNotStarted is returned when the backend process cannot be spawned.
	ErrNotStarted = errors.New("backend: not started")
)

// RemoteError is an error reported by the backend itself.
type RemoteError struct {
	Command string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("backend: %s: %s", e.Command, e.Message)
}

// Config describes how to spawn the backend.
type Config struct {
	Command string
	Args    []string
	Dir     string
	Env     []string
	Timeout time.Duration
}

// Client is a connection to one backend process. It is safe for concurrent
// use.
type Client struct {
	logger  *slog.Logger
	timeout time.Duration

	cmd *exec.Cmd
	w   io.WriteCloser

	mu      sync.Mutex
	waiters []chan response
	closed  bool
	done    chan struct{}
}

type response struct {
	line string
	err  error
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger for protocol problems and backend stderr.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTimeout bounds every call that does not carry an earlier deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// Start spawns the backend described by cfg.
func Start(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("%w: no command configured", ErrNotStarted)
	}
	path, err := exec.LookPath(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotStarted, err)
	}

	cmd := exec.Command(path, cfg.Args...)
	cmd.Dir = cfg.Dir
	cmd.Env = append(append(os.Environ(), "GUILE_AUTO_COMPILE=0"), cfg.Env...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("backend: stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("backend: stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("backend: stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotStarted, err)
	}

	if cfg.Timeout > 0 {
		opts = append([]Option{WithTimeout(cfg.Timeout)}, opts...)
	}
	c := NewClient(stdout, stdin, opts...)
	c.cmd = cmd
	go c.forwardStderr(stderr)
	c.logger.Info("backend started", "command", path, "pid", cmd.Process.Pid)
	return c, nil
}

// NewClient speaks the protocol over an existing pair of streams: r carries
// responses and w carries requests.
func NewClient(r io.Reader, w io.WriteCloser, opts ...Option) *Client {
	c := &Client{
		logger:  slog.Default(),
		timeout: 5 * time.Second,
		w:       w,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.readLoop(r)
	return c
}

func (c *Client) readLoop(r io.Reader) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			c.deliver(line)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.logger.Warn("backend read failed", "error", err)
			}
			c.shutdown()
			return
		}
	}
}

// deliver hands line to the oldest waiter. A waiter whose caller gave up
// still consumes its response, which keeps later responses aligned.
func (c *Client) deliver(line string) {
	c.mu.Lock()
	if len(c.waiters) == 0 {
		c.mu.Unlock()
		c.logger.Warn("unsolicited backend output", "line", line)
		return
	}
	ch := c.waiters[0]
	c.waiters = c.waiters[1:]
	c.mu.Unlock()

	if !gjson.Valid(line) {
		ch <- response{err: fmt.Errorf("backend: malformed response %q", line)}
		return
	}
	ch <- response{line: line}
}

func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for _, ch := range c.waiters {
		ch <- response{err: ErrClosed}
	}
	c.waiters = nil
	close(c.done)
}

func (c *Client) forwardStderr(r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		c.logger.Info("guile", "stderr", sc.Text())
	}
}

// Done is closed once the backend stops answering.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Call sends a raw request and returns the result field of the response.
// payload is a JSON document.
func (c *Client) Call(ctx context.Context, command, payload string) (gjson.Result, error) {
	req, err := sjson.Set("[]", "-1", command)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("backend: encode %s: %w", command, err)
	}
	if req, err = sjson.SetRaw(req, "-1", payload); err != nil {
		return gjson.Result{}, fmt.Errorf("backend: encode %s: %w", command, err)
	}

	ch := make(chan response, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return gjson.Result{}, ErrClosed
	}
	c.waiters = append(c.waiters, ch)
	_, err = io.WriteString(c.w, req+"\n")
	c.mu.Unlock()
	if err != nil {
		// No response will come for this request; the stream is unusable.
		c.shutdown()
		return gjson.Result{}, fmt.Errorf("backend: send %s: %w", command, err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	select {
	case resp := <-ch:
		if resp.err != nil {
			return gjson.Result{}, resp.err
		}
		return decode(command, resp.line)
	case <-ctx.Done():
		return gjson.Result{}, fmt.Errorf("backend: %s: %w", command, ctx.Err())
	}
}

func decode(command, line string) (gjson.Result, error) {
	parsed := gjson.Parse(line)
	switch status := parsed.Get("status").String(); status {
	case "ok":
		return parsed.Get("result"), nil
	case "error":
		return gjson.Result{}, &RemoteError{Command: command, Message: parsed.Get("message").String()}
	default:
		return gjson.Result{}, fmt.Errorf("backend: %s: unexpected status %q", command, status)
	}
}

// Close stops the backend. Pending calls fail with ErrClosed.
func (c *Client) Close() error {
	err := c.w.Close()
	if c.cmd == nil {
		c.shutdown()
		return err
	}

	// The process exits on EOF; stdout must be drained before Wait.
	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		c.logger.Warn("backend did not exit; killing", "pid", c.cmd.Process.Pid)
		_ = c.cmd.Process.Kill()
		<-c.done
	}
	if werr := c.cmd.Wait(); werr != nil {
		c.logger.Debug("backend exited", "error", werr)
	}
	return err
}
