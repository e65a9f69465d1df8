package container

import (
	"fmt"

	"labsignal/adapters/dataset"
	"labsignal/adapters/priors"
	"labsignal/app"
	"labsignal/internal"
	"labsignal/internal/config"
	"labsignal/internal/markers"
	"labsignal/ports"
	"labsignal/ui"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	Catalog  *markers.Catalog
	Priors   ports.PriorSource
	Dataset  ports.DatasetSource // nil unless a dataset file is configured
	Analysis *app.AnalysisService
}

// New wires the analysis service and its sources from cfg
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	logger := internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Catalog: markers.DefaultCatalog(),
		Priors:  priors.NewFileSource(cfg.Paths.PriorsFile),
	}
	if cfg.Paths.Dataset != "" {
		c.Dataset = dataset.NewFileSource(cfg.Paths.Dataset)
	}
	c.Analysis = app.NewAnalysisService(c.Catalog, c.Priors, cfg.Analysis, logger)

	logger.Debug("[Container] unit system %s, window %d days, %d workers, priors %q, dataset %q",
		cfg.Analysis.UnitSystem, cfg.Analysis.WindowDays, cfg.Analysis.Workers, cfg.Paths.PriorsFile, cfg.Paths.Dataset)
	return c, nil
}

// Server builds the web server over the container's service and dataset
func (c *Container) Server() (*ui.Server, error) {
	return ui.NewServer(c.Analysis, c.Dataset, c.Config.Server.GinMode, c.Logger)
}

// Addr is the listen address for the configured port
func (c *Container) Addr() string {
	return ":" + c.Config.Server.Port
}
