package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/five-function-calculator/pkg/api"
	grpcapi "github.com/lemonberrylabs/five-function-calculator/pkg/api/grpc"
	"github.com/lemonberrylabs/five-function-calculator/pkg/store"
	"github.com/lemonberrylabs/five-function-calculator/pkg/trace"
	"github.com/lemonberrylabs/five-function-calculator/web"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST, gRPC and web UI servers",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	cmd.Flags().Int("port", 0, "HTTP server port (default 8787, env PORT)")
	cmd.Flags().Int("grpc-port", 0, "gRPC server port (default 8788, env GRPC_PORT)")
	cmd.Flags().String("host", "", "Bind address (default 0.0.0.0, env HOST)")
	cmd.Flags().String("trace-file", "", "Trace file, truncated on start (default ./CalcTrace.txt, env TRACE_FILE)")
	cmd.Flags().Bool("no-trace", false, "Start with tracing switched off")
	return cmd
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetInt("port"); v != 0 {
		cfg.Port = v
	}
	if v, _ := cmd.Flags().GetInt("grpc-port"); v != 0 {
		cfg.GRPCPort = v
	}
	if v, _ := cmd.Flags().GetString("host"); v != "" {
		cfg.Host = v
	}
	if v, _ := cmd.Flags().GetString("trace-file"); v != "" {
		cfg.Trace.File = v
	}
	if v, _ := cmd.Flags().GetBool("no-trace"); v {
		cfg.SetTraceEnabled(false)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	level, _ := cfg.Level()
	logger := newLogger(os.Stderr, level)

	tl := trace.Open(cfg.TraceOptions())
	defer tl.Close()

	s := store.New(tl)
	server := api.New(tl, s, logger.With().Str("server", "http").Logger())

	// Register the web UI (non-fatal if template parsing fails)
	func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Warn().Interface("panic", r).Msg("web UI disabled due to template error")
			}
		}()
		web.New(s, tl).Register(server.App())
	}()

	grpcServer := grpcapi.New(tl, s, logger.With().Str("server", "grpc").Logger())
	go func() {
		logger.Info().Str("addr", cfg.GRPCAddr()).Msg("gRPC server listening")
		if err := grpcServer.Serve(cfg.GRPCAddr()); err != nil {
			logger.Fatal().Err(err).Msg("gRPC server error")
		}
	}()

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info().Msg("shutting down")
		grpcServer.GracefulStop()
		if err := server.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("error during shutdown")
		}
	}()

	logger.Info().
		Str("addr", cfg.Addr()).
		Bool("trace", cfg.TraceEnabled()).
		Str("trace_file", cfg.Trace.File).
		Str("version", version).
		Msg("calculator listening")
	return server.Listen(cfg.Addr())
}
