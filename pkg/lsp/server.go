// Package lsp serves hybrid semantic tokens to editors.
package lsp

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/creachadair/jrpc2"
	"github.com/google/uuid"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/walteh/gotmpls-hybrid/pkg/config"
	"github.com/walteh/gotmpls-hybrid/pkg/hybrid"
	"github.com/walteh/gotmpls-hybrid/pkg/lsp/protocol"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
)

const serverName = "gotmpls"

// Server represents an LSP server instance
type Server struct {
	documents *DocumentManager
	provider  *hybrid.Provider

	configPath string
	stopWatch  func() error

	initialized atomic.Bool
	shutdown    atomic.Bool

	// Server identification
	id      string
	version string

	mu       sync.Mutex
	client   protocol.Notifier
	instance *protocol.ServerInstance
	encoding protocol.PositionEncodingKind
}

type ServerOption func(*Server)

// WithConfigPath makes the server reload its configuration when path changes.
func WithConfigPath(path string) ServerOption {
	return func(s *Server) { s.configPath = path }
}

func WithVersion(version string) ServerOption {
	return func(s *Server) { s.version = version }
}

func NewServer(ctx context.Context, provider *hybrid.Provider, opts ...ServerOption) *Server {
	s := &Server{
		id:        xid.New().String(),
		documents: NewDocumentManager(),
		provider:  provider,
		encoding:  protocol.PositionEncodingUTF16,
	}
	for _, opt := range opts {
		opt(s)
	}

	zerolog.Ctx(ctx).Debug().Str("server_id", s.id).Msg("created language server")
	return s
}

// BuildServerInstance binds the server to a jrpc2 server. The returned
// instance is also where notifications to the client are sent.
func (s *Server) BuildServerInstance(ctx context.Context, opts *jrpc2.ServerOptions) *protocol.ServerInstance {
	inst := protocol.NewServerInstance(ctx, s, opts)

	s.mu.Lock()
	s.instance = inst
	s.client = inst.Client()
	s.mu.Unlock()

	return inst
}

func (s *Server) SetCallbackClient(client protocol.Notifier) {
	s.mu.Lock()
	s.client = client
	s.mu.Unlock()
}

// PositionEncoding is the encoding agreed on in initialize. Before that it is utf-16.
func (s *Server) PositionEncoding() protocol.PositionEncodingKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.encoding
}

func (s *Server) Documents() *DocumentManager {
	return s.documents
}

func (s *Server) notify(ctx context.Context, method string, params any) {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()

	if client == nil {
		return
	}
	if err := client.Notify(ctx, method, params); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("method", method).Msg("notification not delivered")
	}
}

func (s *Server) Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	logger := zerolog.Ctx(ctx)
	if params.ClientInfo != nil {
		logger.Info().Str("client", params.ClientInfo.Name).Str("client_version", params.ClientInfo.Version).Msg("initializing server")
	}

	enc := negotiateEncoding(params.Capabilities)
	s.mu.Lock()
	s.encoding = enc
	s.mu.Unlock()
	logger.Debug().Str("position_encoding", string(enc)).Msg("negotiated position encoding")

	legend := s.provider.Legend()

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			PositionEncoding: enc,
			TextDocumentSync: protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncIncremental,
			},
			SemanticTokensProvider: &protocol.SemanticTokensOptions{
				Legend: protocol.SemanticTokensLegend{
					TokenTypes:     legend.TokenTypes,
					TokenModifiers: legend.TokenModifiers,
				},
				Full: true,
			},
		},
		ServerInfo: &protocol.ServerInfo{Name: serverName, Version: s.version},
	}, nil
}

func (s *Server) Initialized(ctx context.Context, params *protocol.InitializedParams) error {
	s.initialized.Store(true)

	s.warnIfUnavailable(ctx)

	if s.configPath == "" {
		return nil
	}

	watchCtx := context.WithoutCancel(ctx)
	stop, err := config.Watch(watchCtx, s.configPath, func(cfg *config.Config) {
		if err := s.Reload(watchCtx, cfg); err != nil {
			zerolog.Ctx(watchCtx).Error().Err(err).Msg("reloading configuration")
		}
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("config changes will not be picked up")
		return nil
	}

	s.mu.Lock()
	s.stopWatch = stop
	s.mu.Unlock()

	return nil
}

// warnIfUnavailable tells the user once per configuration that base-language
// highlighting is off.
func (s *Server) warnIfUnavailable(ctx context.Context) {
	err := s.provider.Unavailable()
	if err == nil {
		return
	}
	s.notify(ctx, "window/showMessage", &protocol.ShowMessageParams{
		Type:    protocol.Warning,
		Message: "gotmpls: base language highlighting is unavailable, only template tokens will be shown: " + err.Error(),
	})
}

// Reload applies a new configuration to the tokenizer.
func (s *Server) Reload(ctx context.Context, cfg *config.Config) error {
	if err := s.provider.Reload(ctx, cfg); err != nil {
		return errors.Errorf("reloading provider: %w", err)
	}
	s.warnIfUnavailable(ctx)
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	zerolog.Ctx(ctx).Info().Msg("shutting down")
	s.shutdown.Store(true)

	s.mu.Lock()
	stop := s.stopWatch
	s.stopWatch = nil
	s.mu.Unlock()

	var err error
	if stop != nil {
		err = multierr.Append(err, stop())
	}
	s.documents.Range(func(doc *Document) {
		s.provider.Evict(doc.URI)
		s.documents.Delete(protocol.DocumentURI(doc.URI))
	})
	return err
}

func (s *Server) Exit(ctx context.Context) error {
	var err error
	if !s.shutdown.Load() {
		err = multierr.Append(err, s.Shutdown(ctx))
	}

	s.mu.Lock()
	inst := s.instance
	s.mu.Unlock()
	if inst != nil {
		inst.Stop()
	}
	return err
}

func (s *Server) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	doc := &Document{
		URI:        normalizeURI(string(params.TextDocument.URI)),
		LanguageID: params.TextDocument.LanguageID,
		Version:    params.TextDocument.Version,
		Content:    params.TextDocument.Text,
	}
	s.documents.Store(doc)

	zerolog.Ctx(ctx).Debug().Str("uri", doc.URI).Int32("version", doc.Version).Msg("document opened")
	return nil
}

func (s *Server) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	doc, ok := s.documents.Get(params.TextDocument.URI)
	if !ok {
		return errors.Errorf("document not open: %s", params.TextDocument.URI)
	}

	next, err := doc.ApplyChanges(s.PositionEncoding(), params.TextDocument.Version, params.ContentChanges)
	if err != nil {
		return errors.Errorf("applying changes to %s: %w", doc.URI, err)
	}
	s.documents.Store(next)

	return nil
}

func (s *Server) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := normalizeURI(string(params.TextDocument.URI))
	s.documents.Delete(params.TextDocument.URI)
	s.provider.Evict(uri)
	return nil
}

func (s *Server) SemanticTokensFull(ctx context.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	doc, ok := s.documents.Get(params.TextDocument.URI)
	if !ok {
		return nil, errors.Errorf("document not open: %s", params.TextDocument.URI)
	}

	tokens := tokensIn(s.PositionEncoding(), doc.Content, s.provider.Tokens(ctx, doc.Hybrid()))

	return &protocol.SemanticTokens{
		ResultID: uuid.NewString(),
		Data:     protocol.NonNilSlice(tokens.Data),
	}, nil
}
