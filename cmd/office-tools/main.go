package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"office-tools-server/internal/config"
	"office-tools-server/internal/lock"
	"office-tools-server/internal/mcp"
	"office-tools-server/internal/observability"
	"office-tools-server/internal/service"
	"office-tools-server/internal/transport"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags *config.Flags
	rootCmd := &cobra.Command{
		Use:   "office-tools",
		Short: "JSON-RPC tool server for editing documents, opening files and sending email",
		Long: `office-tools serves a fixed set of document, file and mail tools to
an assistant over JSON-RPC, either on stdin/stdout or on HTTP.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "configuration error: %v\n", err)
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, os.Stdin, os.Stdout)
		},
	}
	flags = config.RegisterFlags(rootCmd.PersistentFlags())

	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools the server exposes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags)
			if err != nil {
				return err
			}
			proc, err := buildProcessor(cfg, zerolog.Nop(), nil)
			if err != nil {
				return err
			}
			for _, name := range proc.ToolNames() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
	rootCmd.AddCommand(toolsCmd)
	return rootCmd
}

func buildProcessor(cfg *config.Config, logger zerolog.Logger, metrics *observability.Metrics) (*mcp.MCPProcessor, error) {
	lockManager, err := lock.NewManager(cfg.LockDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize lock manager: %w", err)
	}
	svc, err := service.NewDefaultOfficeService(service.Deps{Locker: lockManager}, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize office service: %w", err)
	}
	return mcp.NewMCPProcessor(svc, mcp.Options{
		Version:       version,
		MaxFileSizeMB: cfg.MaxFileSizeMB,
		Logger:        logger,
		Metrics:       metrics,
	}), nil
}

// run serves the configured transport until input ends, the server fails
// or ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	logger := observability.InitLogger(cfg.LogLevel, observability.LogWriter(cfg.Transport))
	logEffectiveConfig(logger, cfg)

	metrics := observability.NewMetrics()
	proc, err := buildProcessor(cfg, logger, metrics)
	if err != nil {
		logger.Error().Err(err).Msg("startup failed")
		return err
	}
	logger.Info().Strs("tools", proc.ToolNames()).Msg("core services initialized")

	switch cfg.Transport {
	case "http":
		err = transport.NewHTTPHandler(proc, logger, metrics, version).StartServer(ctx, cfg.Port)
	case "stdio":
		err = transport.NewStdioHandler(proc, logger).Start(ctx, in, out)
	default:
		err = fmt.Errorf("unsupported transport type: %s", cfg.Transport)
	}
	if err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		return err
	}
	logger.Info().Msg("application shutting down")
	return nil
}

func logEffectiveConfig(logger zerolog.Logger, cfg *config.Config) {
	event := logger.Info().
		Str("transport", cfg.Transport).
		Int("max_file_size_mb", cfg.MaxFileSizeMB).
		Int("operation_timeout_sec", cfg.OperationTimeoutSec).
		Str("log_level", cfg.LogLevel).
		Str("lock_dir", cfg.LockDir).
		Strs("allowed_roots", cfg.AllowedRoots).
		Str("insert_flag_policy", cfg.InsertFlagPolicy).
		Str("search_scope", cfg.SearchScope).
		Bool("mail_configured", cfg.Mail.Configured())
	if cfg.Transport == "http" {
		event = event.Int("port", cfg.Port)
	}
	if cfg.Mail.Configured() {
		event = event.
			Str("smtp_host", cfg.Mail.Host).
			Int("smtp_port", cfg.Mail.Port).
			Str("smtp_user", cfg.Mail.Username).
			Str("smtp_password", maskSecret(cfg.Mail.Password))
	}
	event.Msg("effective configuration")
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
