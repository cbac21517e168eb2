// Package protocol is the slice of the language server protocol the hybrid
// highlighter speaks, served over jrpc2 with LSP header framing.
package protocol

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/creachadair/jrpc2/handler"
	"gitlab.com/tozd/go/errors"
)

// Server is implemented by the language server.
type Server interface {
	Initialize(ctx context.Context, params *InitializeParams) (*InitializeResult, error)
	Initialized(ctx context.Context, params *InitializedParams) error
	Shutdown(ctx context.Context) error
	Exit(ctx context.Context) error
	DidOpen(ctx context.Context, params *DidOpenTextDocumentParams) error
	DidChange(ctx context.Context, params *DidChangeTextDocumentParams) error
	DidClose(ctx context.Context, params *DidCloseTextDocumentParams) error
	SemanticTokensFull(ctx context.Context, params *SemanticTokensParams) (*SemanticTokens, error)
}

// Notifier sends server to client notifications.
type Notifier interface {
	Notify(ctx context.Context, method string, params any) error
}

func buildServerDispatchMap(server Server) handler.Map {
	return handler.Map{
		"initialize":                       createHandler(server.Initialize),
		"initialized":                      createEmptyResultHandler(server.Initialized),
		"shutdown":                         createEmptyHandler(server.Shutdown),
		"exit":                             createEmptyHandler(server.Exit),
		"textDocument/didOpen":             createEmptyResultHandler(server.DidOpen),
		"textDocument/didChange":           createEmptyResultHandler(server.DidChange),
		"textDocument/didClose":            createEmptyResultHandler(server.DidClose),
		"textDocument/semanticTokens/full": createHandler(server.SemanticTokensFull),
		"$/cancelRequest": handler.New(func(ctx context.Context, req *jrpc2.Request) (interface{}, error) {
			var params CancelParams
			if err := req.UnmarshalParams(&params); err != nil {
				return nil, newParseError(err)
			}
			return nil, nil
		}),
	}
}

// CallbackClient pushes notifications from the server to the connected client.
type CallbackClient struct {
	server *jrpc2.Server
}

func (c *CallbackClient) Notify(ctx context.Context, method string, params any) error {
	if err := c.server.Notify(ctx, method, params); err != nil {
		return errors.Errorf("notifying %s: %w", method, err)
	}
	return nil
}

// ServerInstance is a jrpc2 server bound to a Server implementation.
type ServerInstance struct {
	server  *jrpc2.Server
	client  *CallbackClient
	stopped atomic.Bool
	hook    atomic.Pointer[ContextHook]
}

// ContextHook decorates the context of every request, typically to route
// logging through client.
type ContextHook func(ctx context.Context, client Notifier) context.Context

// NewServerInstance wires server into a jrpc2 server. Every request context
// derives from ctx, so handlers inherit its logger.
func NewServerInstance(ctx context.Context, server Server, opts *jrpc2.ServerOptions) *ServerInstance {
	if opts == nil {
		opts = &jrpc2.ServerOptions{}
	}

	inst := &ServerInstance{}

	opts.AllowPush = true
	opts.NewContext = func() context.Context {
		if hook := inst.hook.Load(); hook != nil {
			return (*hook)(ctx, inst.client)
		}
		return ctx
	}

	inst.server = jrpc2.NewServer(buildServerDispatchMap(server), opts)
	inst.client = &CallbackClient{server: inst.server}

	return inst
}

func (s *ServerInstance) SetContextHook(hook ContextHook) {
	s.hook.Store(&hook)
}

func (s *ServerInstance) Client() *CallbackClient {
	return s.client
}

// Stop ends the session. It does not wait for in-flight handlers.
func (s *ServerInstance) Stop() {
	s.stopped.Store(true)
	go s.server.Stop()
}

// StartAndWait serves LSP framed messages from r to w until the connection
// closes or the server is stopped.
func (s *ServerInstance) StartAndWait(r io.Reader, w io.WriteCloser) error {
	s.server.Start(channel.LSP(r, w))
	err := s.server.Wait()
	if err != nil && !s.stopped.Load() && !errors.Is(err, jrpc2.ErrConnClosed) && !errors.Is(err, io.EOF) {
		return errors.Errorf("serving: %w", err)
	}
	return nil
}
