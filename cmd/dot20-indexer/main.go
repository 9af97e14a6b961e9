package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dota-dot20/indexer/internal/chain"
	"github.com/dota-dot20/indexer/internal/config"
	"github.com/dota-dot20/indexer/internal/driver"
	"github.com/dota-dot20/indexer/internal/engine"
	"github.com/dota-dot20/indexer/internal/health"
	"github.com/dota-dot20/indexer/internal/logger"
	"github.com/dota-dot20/indexer/internal/statusapi"
	"github.com/dota-dot20/indexer/internal/store"
	"github.com/dota-dot20/indexer/internal/store/postgres"
	"github.com/dota-dot20/indexer/internal/store/sqlite"
)

const protocolName = "dot-20"

var rootCmd = &cobra.Command{
	Use:   "dot20-indexer",
	Short: "Indexer for the dot-20 inscription protocol",
}

func main() {
	rootCmd.AddCommand(runCmd, statusCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive the indexer pipeline against the configured chain and store",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIndexer(cmd.Context())
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the last persisted indexer height and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printStatus(cmd.Context())
	},
}

func openStore(cfg *config.Config) (store.LedgerStore, *sql.DB, error) {
	switch cfg.DBDriver {
	case "postgres":
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := postgres.Bootstrap(context.Background(), db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("bootstrap postgres: %w", err)
		}
		return postgres.NewWithDB(db), db, nil
	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := sqlite.Bootstrap(context.Background(), db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("bootstrap sqlite: %w", err)
		}
		return sqlite.NewWithDB(db), db, nil
	default:
		return nil, nil, fmt.Errorf("unsupported db driver: %s", cfg.DBDriver)
	}
}

func printStatus(ctx context.Context) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}
	st, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	status, err := st.GetIndexerStatus(ctx, protocolName)
	if err != nil {
		fmt.Printf("no indexer status persisted yet; start_block will default to %d\n", cfg.StartBlock)
		return nil
	}
	fmt.Printf("protocol=%s indexer_height=%d crawler_height=%d\n", status.Protocol, status.IndexerHeight, status.CrawlerHeight)
	return nil
}

func runIndexer(ctx context.Context) error {
	log := logger.New("dot20-indexer")

	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	st, db, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open ledger store")
	}
	defer db.Close()

	startBlock := cfg.StartBlock
	if status, err := st.GetIndexerStatus(ctx, protocolName); err == nil {
		startBlock = status.IndexerHeight + 1
		log.Info().Uint64("start_block", startBlock).Msg("resuming from persisted indexer status")
	}

	healthChecker := health.NewServiceHealthChecker(log, store.NewLedgerHealthChecker(st, log, 2*time.Second))
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go healthChecker.Start(ctx, 10*time.Second)

	client, err := chain.Connect(ctx, chain.New, cfg.URL, cfg.Chain, cfg.ReconnectBackoff, 30*time.Second, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to chain")
	}

	eng := engine.New(st, log)
	drv := driver.New(client, eng, startBlock, cfg.DelayBlock, cfg.PollInterval, cfg.ReconnectBackoff, 30*time.Second, log)

	statusHandlers := statusapi.NewHandlers(healthChecker, drv, protocolName)
	statusServer := &http.Server{
		Addr:         cfg.GetStatusAddr(),
		Handler:      statusapi.NewRouter(statusHandlers),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.GetStatusAddr()).Msg("status api listening")
		if err := statusServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("status api server failed")
		}
	}()

	driverErr := make(chan error, 1)
	go func() { driverErr <- drv.Run(ctx) }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
		<-driverErr
	case err := <-driverErr:
		if err != nil {
			log.Error().Err(err).Msg("driver stopped")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return statusServer.Shutdown(shutdownCtx)
}
