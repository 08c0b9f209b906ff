package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/matchmaker/internal/server"
	"github.com/spigell/matchmaker/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scoring API over HTTP",
	Run: func(cmd *cobra.Command, _ []string) {
		runServe(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, config := mustSetup()
	logger.Info("starting the matchmaker", zap.String("version", version))

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		config.Server.Addr = addr
	}

	inv := loadInventory(config, logger)
	ranker, remote := newRanker(ctx, config, logger)

	sessions := session.NewStore(inv, ranker, logger,
		session.WithMaxSessions(config.Server.MaxSessions),
		session.WithIdleTTL(config.Server.SessionIdleTTL),
	)

	handler := server.NewRouter(server.Deps{
		Inventory: inv,
		Ranker:    ranker,
		Remote:    remote,
		Filters:   config.Filters,
		Sessions:  sessions,
		Logger:    logger,
	})

	if err := server.New(config.Server, handler, logger).Run(ctx); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
