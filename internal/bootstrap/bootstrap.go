// Package bootstrap wires the application components from configuration.
// Both the one-shot ETL command and the HTTP server build their dependency
// graph here.
package bootstrap

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/campusdash/campusdash/internal/api"
	"github.com/campusdash/campusdash/internal/classify"
	"github.com/campusdash/campusdash/internal/config"
	"github.com/campusdash/campusdash/internal/dates"
	"github.com/campusdash/campusdash/internal/enrich"
	"github.com/campusdash/campusdash/internal/etl"
	"github.com/campusdash/campusdash/internal/logger"
	"github.com/campusdash/campusdash/internal/storage"
)

// Components holds every wired application component.
type Components struct {
	Config   *config.Config
	Log      logger.Logger
	Store    *storage.ItemStore
	Status   *storage.StatusStore
	Pipeline *etl.Pipeline
	Handler  *api.Handler
}

// NewComponents builds the full component graph from v. The caller owns
// Close.
func NewComponents(v *viper.Viper) (*Components, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Logger.Level,
		Development: cfg.App.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	store := storage.NewItemStore(cfg.Data.ItemStorePath)

	status, err := storage.OpenStatusStore(cfg.Data.StatusDBPath)
	if err != nil {
		return nil, fmt.Errorf("open status store: %w", err)
	}

	normalizer := etl.NewNormalizer(
		classify.New(),
		dates.NewResolver(),
		newEnricher(cfg.Enrichment, log),
		cfg.Enrichment.ChunkSize,
		log,
	)
	pipeline := etl.NewPipeline(cfg.Data.RawLogPath, store, normalizer, log)
	handler := api.NewHandler(store, status, pipeline, log)

	return &Components{
		Config:   cfg,
		Log:      log,
		Store:    store,
		Status:   status,
		Pipeline: pipeline,
		Handler:  handler,
	}, nil
}

// newEnricher returns the configured LLM enricher, or nil when enrichment
// is disabled so the pipeline stays in deterministic mode.
func newEnricher(cfg config.EnrichmentConfig, log logger.Logger) etl.Enricher {
	if !cfg.Enabled {
		return nil
	}
	log.Info("llm enrichment enabled",
		logger.String("url", cfg.URL),
		logger.String("model", cfg.Model),
		logger.Int("chunk_size", cfg.ChunkSize))
	return enrich.NewClient(cfg.URL, cfg.Model, cfg.Timeout)
}

// Close releases held resources.
func (c *Components) Close() error {
	if err := c.Status.Close(); err != nil {
		return fmt.Errorf("close status store: %w", err)
	}
	_ = c.Log.Sync()
	return nil
}
