// Command teamrouter serves the multi-team routing engine over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"

	"github.com/agentwerk/teamrouter"
	"github.com/agentwerk/teamrouter/config"
	"github.com/agentwerk/teamrouter/logging"
	"github.com/agentwerk/teamrouter/oracle"
	oracleanthropic "github.com/agentwerk/teamrouter/oracle/anthropic"
	oracleopenai "github.com/agentwerk/teamrouter/oracle/openai"
	"github.com/agentwerk/teamrouter/server"
	"github.com/agentwerk/teamrouter/store"
	"github.com/agentwerk/teamrouter/team"
	"github.com/agentwerk/teamrouter/teams/knowledge"
	"github.com/agentwerk/teamrouter/teams/logs"
	"github.com/agentwerk/teamrouter/teams/orderdb"
	"github.com/agentwerk/teamrouter/tool"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "teamrouter",
		Short:         "Multi-team request routing engine",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	cmd.AddCommand(serveCmd(&configPath))
	return cmd
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := logging.New(func(o *logging.Options) {
		o.Level = logging.ParseLevel(cfg.Log.Level)
		o.Format = cfg.Log.Format
	})

	o, err := buildOracle(cfg.Oracle)
	if err != nil {
		return err
	}

	threadStore, err := buildStore(cfg.Store)
	if err != nil {
		return err
	}

	teamsReg, toolsReg, closeTeams, err := buildTeams(ctx)
	if err != nil {
		threadStore.Close()
		return err
	}
	defer closeTeams()

	engine := teamrouter.New(o, teamsReg, toolsReg, func(eo *teamrouter.Options) {
		eo.Store = threadStore
		eo.Logger = logger
		eo.MaxIterations = cfg.Limits.MaxIterations
		eo.MaxParallel = cfg.Limits.MaxParallel
		eo.MaxTeams = cfg.Limits.MaxTeams
		eo.EventBuffer = cfg.Limits.EventBuffer
	})
	defer engine.Close()

	srv := server.New(engine, func(so *server.Options) {
		so.AllowOrigins = cfg.Server.AllowOrigins
		so.Logger = logger
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("teamrouter.starting", "addr", cfg.Server.Addr, "provider", cfg.Oracle.Provider, "store", cfg.Store.Driver)
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

func buildOracle(cfg config.OracleConfig) (oracle.Oracle, error) {
	var inner oracle.Oracle
	switch cfg.Provider {
	case "openai":
		inner = oracleopenai.New(func(o *oracleopenai.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.Temperature = cfg.Temperature
		})
	case "anthropic":
		inner = oracleanthropic.New(func(o *oracleanthropic.Options) {
			if cfg.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Model)
			}
			o.Temperature = cfg.Temperature
		})
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Provider)
	}

	if cfg.RetryAttempts > 1 {
		inner = oracle.WithRetry(inner, func(o *oracle.RetryOptions) {
			o.Attempts = cfg.RetryAttempts
		})
	}
	return inner, nil
}

func buildStore(cfg config.StoreConfig) (store.ThreadStore, error) {
	switch cfg.Driver {
	case "memory":
		return store.NewInMemoryStore(), nil
	case "sqlite":
		return store.NewSQLiteStore(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// buildTeams registers the three built-in teams and their tools.
func buildTeams(ctx context.Context) (*team.Registry, *tool.Registry, func(), error) {
	teamsReg := team.NewRegistry()
	toolsReg := tool.NewRegistry()

	teamsReg.MustRegister(logs.Team())
	toolsReg.MustRegister(logs.Tools()...)

	knowledgeStore, err := knowledge.NewStore(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build knowledge store: %w", err)
	}
	teamsReg.MustRegister(knowledge.Team())
	toolsReg.MustRegister(knowledgeStore.Tools()...)

	dbStore, err := orderdb.NewStore()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build order db: %w", err)
	}
	teamsReg.MustRegister(orderdb.Team())
	toolsReg.MustRegister(dbStore.Tools()...)

	// Unroutable requests land on the knowledge team rather than the log
	// fixtures.
	if err := teamsReg.SetDefault(knowledge.TeamID); err != nil {
		dbStore.Close()
		return nil, nil, nil, err
	}

	return teamsReg, toolsReg, func() { dbStore.Close() }, nil
}
