package serve_lsp

import (
	"context"
	"os"

	"github.com/creachadair/jrpc2"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/gotmpls-hybrid/pkg/config"
	"github.com/walteh/gotmpls-hybrid/pkg/hybrid"
	"github.com/walteh/gotmpls-hybrid/pkg/lsp"
	"github.com/walteh/gotmpls-hybrid/pkg/lsp/protocol"
	"gitlab.com/tozd/go/errors"
)

type Handler struct {
	debug         bool
	logToClient   bool
	serverVersion string
}

func NewServeLSPCommand(version string) *cobra.Command {
	me := &Handler{serverVersion: version}

	cmd := &cobra.Command{
		Use:   "serve-lsp",
		Short: "start the language server on stdin and stdout",
	}

	cmd.Flags().BoolVar(&me.debug, "debug", false, "log every request and response")
	cmd.Flags().BoolVar(&me.logToClient, "log-to-client", true, "forward logs to the client as window/logMessage")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context())
	}

	return cmd
}

type RPCLogger struct {
}

func (me *RPCLogger) LogRequest(ctx context.Context, req *jrpc2.Request) {
	zerolog.Ctx(ctx).Debug().Str("rpc_params", req.ParamString()).Str("rpc_id", req.ID()).Str("rpc_method", req.Method()).Msg("client request")
}

func (me *RPCLogger) LogResponse(ctx context.Context, res *jrpc2.Response) {
	zerolog.Ctx(ctx).Debug().Str("rpc_params", res.ResultString()).Str("rpc_id", res.ID()).Msg("server response")
}

func (me *Handler) Run(ctx context.Context) error {
	cfg := config.FromContext(ctx)

	provider, err := hybrid.NewProvider(ctx, cfg)
	if err != nil {
		return errors.Errorf("creating token provider: %w", err)
	}

	opts := []lsp.ServerOption{lsp.WithVersion(me.serverVersion)}
	if cfg.Path != "" {
		opts = append(opts, lsp.WithConfigPath(cfg.Path))
	}
	server := lsp.NewServer(ctx, provider, opts...)

	serverOpts := &jrpc2.ServerOptions{}
	if me.debug {
		serverOpts.RPCLog = &RPCLogger{}
	}

	instance := server.BuildServerInstance(ctx, serverOpts)

	if me.logToClient {
		level := cfg.Level()
		instance.SetContextHook(func(ctx context.Context, client protocol.Notifier) context.Context {
			return lsp.ApplyLSPWriter(ctx, client, level)
		})
	}

	zerolog.Ctx(ctx).Info().Str("config", cfg.Path).Msg("starting language server")

	if err := instance.StartAndWait(os.Stdin, os.Stdout); err != nil {
		return errors.Errorf("error running language server: %w", err)
	}

	return nil
}
