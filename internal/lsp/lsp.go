// Package lsp implements a language server for Scheme and Guile on top of a
// beguile.Workspace.
package lsp

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/GigiaJ/Beguile"
)

// Serve runs a server over rwc until the client disconnects or sends exit.
func Serve(ctx context.Context, rwc io.ReadWriteCloser, ws *beguile.Workspace, opts ...Option) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s := newServer(ctx, ws, opts...)
	conn := jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{}),
		s.handler())
	select {
	case <-conn.DisconnectNotify():
	case <-ctx.Done():
		conn.Close()
	}
	s.logger.Info("lsp client disconnected")
	return nil
}

// Stdio returns a transport over the process's standard streams.
func Stdio() io.ReadWriteCloser {
	return transport{os.Stdin, os.Stdout}
}

type transport struct{ in, out *os.File }

func (c transport) Read(p []byte) (int, error)  { return c.in.Read(p) }
func (c transport) Write(p []byte) (int, error) { return c.out.Write(p) }

func (c transport) Close() error {
	if err := c.in.Close(); err != nil {
		c.out.Close()
		return err
	}
	return c.out.Close()
}

// Option configures the server.
type Option func(*server)

// WithLogger sets the server's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *server) { s.logger = l }
}

// WithEngine indexes the client's workspace root in the background after
// initialize.
func WithEngine(e *beguile.Engine) Option {
	return func(s *server) { s.engine = e }
}
