package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/germanamz/agentapi/pkg/engine"
	"github.com/germanamz/agentapi/pkg/repl"
	"github.com/germanamz/agentapi/pkg/server"
	"github.com/germanamz/agentapi/pkg/tools/mcpserver"
	"github.com/germanamz/agentapi/pkg/tools/weather"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

type globalFlags struct {
	configPath string
	envFile    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "agentapi",
		Short:         "Triage and weather agents over HTTP and the terminal",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return loadDotEnv(g.envFile)
		},
	}

	root.PersistentFlags().StringVar(&g.configPath, "config", "", "path to a YAML configuration file")
	root.PersistentFlags().StringVar(&g.envFile, "env", ".env", "path to .env file (ignored if missing)")

	root.AddCommand(serveCmd(g))
	root.AddCommand(chatCmd(g))
	root.AddCommand(mcpCmd(g))

	return root
}

func serveCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(g)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			eng, err := engine.New(ctx, cfg, engine.Options{Logger: log})
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			srv := server.New(eng, server.Config{
				Addr:        cfg.Server.Addr,
				APIKey:      cfg.APIKey,
				CORSOrigins: cfg.Server.CORSOrigins,
				RateLimit: server.RateLimit{
					RequestsPerMin: cfg.Server.RateLimit.RequestsPerMin,
					Burst:          cfg.Server.RateLimit.Burst,
				},
				Logger: log,
			})

			return srv.Run(ctx)
		},
	}
}

func chatCmd(g *globalFlags) *cobra.Command {
	var (
		noHandoff bool
		markdown  bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Ask questions interactively; type exit to quit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(g)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			eng, err := engine.New(ctx, cfg, engine.Options{NoHandoff: noHandoff, Logger: log})
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			r, err := repl.New(eng, cmd.InOrStdin(), cmd.OutOrStdout(), repl.Options{Markdown: markdown})
			if err != nil {
				return err
			}

			if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noHandoff, "no-handoff", false, "answer with the triage agent only")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "render replies as markdown")

	return cmd
}

func mcpCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the weather tool over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, log, err := setup(g)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info("mcp server started", "tool", weather.ToolName)

			return mcpserver.New("agentapi", version, weather.ToolBox()).Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// setup resolves the configuration and builds the process logger, which
// always writes to stderr so stdout stays free for the REPL and MCP.
func setup(g *globalFlags) (engine.Config, *slog.Logger, error) {
	cfg, err := loadConfig(g.configPath, os.LookupEnv)
	if err != nil {
		return engine.Config{}, nil, err
	}

	level, err := engine.ParseLevel(cfg.LogLevel)
	if err != nil {
		return engine.Config{}, nil, err
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	return cfg, log, nil
}
