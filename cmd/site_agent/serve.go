package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/site-generator/internal/server"
	"github.com/jonathan/site-generator/internal/server/ratelimit"
)

const shutdownTimeout = 30 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that accepts generation jobs and streams their progress.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config, default 8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}

	auth, err := cfg.Auth()
	if err != nil {
		return fmt.Errorf("invalid auth config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.sweeper.Start(cfg.SweepSchedule); err != nil {
		return fmt.Errorf("failed to start job sweeper: %w", err)
	}
	defer a.sweeper.Stop()

	deps := server.Deps{
		Config:  cfg,
		Store:   a.store,
		Hub:     a.hub,
		Runner:  a.runner,
		Version: version,
	}
	if a.database != nil {
		deps.Sites = a.database
	}
	if auth != nil {
		deps.Tokens = server.NewTokenService(auth)
	}
	if rl := ratelimit.LoadConfig(); rl.Enabled {
		deps.Limiter = ratelimit.NewLimiter(rl)
	}

	srv := server.New(deps, a.logger)
	serveErr := srv.Start(ctx)

	// Let accepted jobs finish before the store closes.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.runner.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn().Err(err).Msg("Jobs still running at shutdown were cancelled")
	}
	a.pipeline.Wait()
	return serveErr
}
