package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/jonathan/site-generator/internal/aggregate"
	"github.com/jonathan/site-generator/internal/config"
	"github.com/jonathan/site-generator/internal/db"
	"github.com/jonathan/site-generator/internal/deploy"
	"github.com/jonathan/site-generator/internal/extraction"
	"github.com/jonathan/site-generator/internal/inspiration"
	"github.com/jonathan/site-generator/internal/jobs"
	"github.com/jonathan/site-generator/internal/llm"
	"github.com/jonathan/site-generator/internal/logging"
	"github.com/jonathan/site-generator/internal/pipeline"
	"github.com/jonathan/site-generator/internal/sitebuilder"
	"github.com/jonathan/site-generator/internal/sources"
)

// app holds every long-lived component built from one configuration.
type app struct {
	cfg      *config.Config
	logger   arbor.ILogger
	store    jobs.Store
	hub      *jobs.Hub
	pipeline *pipeline.Pipeline
	runner   *pipeline.Runner
	sweeper  *jobs.Sweeper
	database *db.DB

	llmClient llm.Client
	rawStore  jobs.Store
}

// loadConfig applies defaults < file < environment < flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyEnv()
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

// missingCredentials lists the settings a generation job cannot run without.
func missingCredentials(cfg *config.Config) []string {
	var missing []string
	if cfg.LLMAPIKey() == "" {
		if cfg.LLMProvider == config.ProviderGemini {
			missing = append(missing, "GEMINI_API_KEY")
		} else {
			missing = append(missing, "ANTHROPIC_API_KEY")
		}
	}
	if cfg.VercelToken == "" {
		missing = append(missing, "VERCEL_TOKEN")
	}
	return missing
}

// newApp wires the pipeline. Optional collaborators (inspiration search,
// durable store, database) are enabled only when configured.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if missing := missingCredentials(cfg); len(missing) > 0 {
		return nil, fmt.Errorf("missing required credentials: %s", strings.Join(missing, ", "))
	}

	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	a := &app{cfg: cfg, logger: logger}

	client, err := llm.NewClient(ctx, llm.ConfigFor(cfg.LLMProvider), cfg.LLMAPIKey())
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	a.llmClient = client

	var provider inspiration.Provider
	if cfg.SearchAPIKey != "" && cfg.SearchEngineID != "" {
		search, err := inspiration.NewSearchProvider(ctx, cfg.SearchAPIKey, cfg.SearchEngineID)
		if err != nil {
			logger.Warn().Err(err).Msg("Design inspiration disabled")
		} else {
			provider = search
		}
	}
	insp := inspiration.NewCached(provider, cfg.InspirationCacheTTL(), cfg.InspirationTimeout(), logger)

	if cfg.StorePath != "" {
		badgerStore, err := jobs.OpenBadgerStore(cfg.StorePath, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.rawStore = badgerStore
	} else {
		a.rawStore = jobs.NewMemoryStore()
	}
	a.hub = jobs.NewHub()
	a.store = jobs.NewPublishingStore(a.rawStore, a.hub)

	deps := pipeline.Deps{
		Store:     a.store,
		Gatherer:  aggregate.New(sources.FromConfig(cfg), cfg.ScrapeTimeout(), logger),
		Extractor: extraction.NewExtractor(client, logger),
		GapFiller: extraction.NewGapFiller(client, logger),
		Builder:   sitebuilder.NewBuilder(client, insp, logger),
		Deployer: deploy.NewOrchestrator(
			deploy.NewClient(cfg.VercelToken, cfg.VercelTeamID, "", nil),
			cfg.DeployPollInterval(), cfg.DeployTimeout(), logger),
	}

	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.database = database
		if err := database.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		deps.Recorder = database
	}

	a.pipeline = pipeline.New(deps, logger)
	a.runner = pipeline.NewRunner(a.pipeline, cfg.MaxConcurrentJobs, cfg.JobTimeout(), logger)
	a.sweeper = jobs.NewSweeper(a.store, cfg.JobRetention(), logger)

	logger.Info().
		Str("llm_provider", cfg.LLMProvider).
		Bool("durable_store", cfg.StorePath != "").
		Bool("database", a.database != nil).
		Bool("inspiration", provider != nil).
		Int("max_concurrent_jobs", cfg.MaxConcurrentJobs).
		Msg("Pipeline ready")
	return a, nil
}

// Close releases the store, database and LLM client.
func (a *app) Close() {
	if a.database != nil {
		a.database.Close()
	}
	if a.rawStore != nil {
		if err := a.rawStore.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close job store")
		}
	}
	if a.llmClient != nil {
		_ = a.llmClient.Close()
	}
}
