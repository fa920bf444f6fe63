// Package app assembles the planner and its collaborators from the
// configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/civigrid/evacd/api"
	"github.com/civigrid/evacd/config"
	"github.com/civigrid/evacd/core/area"
	"github.com/civigrid/evacd/core/dispatch"
	coremetrics "github.com/civigrid/evacd/core/metrics"
	"github.com/civigrid/evacd/core/model"
	"github.com/civigrid/evacd/infra/logger"
	"github.com/civigrid/evacd/infra/metrics"
	"github.com/civigrid/evacd/infra/mqtt"
	"github.com/civigrid/evacd/infra/optimizer"
	"github.com/civigrid/evacd/infra/routing"
	"github.com/civigrid/evacd/infra/sources"
	"github.com/civigrid/evacd/internal/eventbus"
)

// Service holds the assembled planner and the resources it owns.
type Service struct {
	Planner *dispatch.Planner
	Bus     *eventbus.Bus[dispatch.Event]

	apiAddr  string
	notifier *mqtt.Notifier
	cache    *routing.CachedMatrixProvider
	log      logger.Logger
}

// New creates a Service from the configuration. Optional collaborators
// (routing, cache, optimizer, notifier, influx) are wired only when enabled.
func New(cfg *config.Config) (*Service, error) {
	log := logger.New("service")

	orion := sources.NewClient(cfg.Sources.Orion)
	targets := make([]dispatch.TargetSource, 0, len(cfg.Sources.TargetTypes))
	for _, tt := range cfg.Sources.TargetTypes {
		targets = append(targets, sources.NewTargetSource(orion, tt))
	}

	svc := &Service{
		Bus:     eventbus.New[dispatch.Event](),
		apiAddr: cfg.API.Addr,
		log:     log,
	}

	deps := dispatch.Deps{
		Hazards:  sources.NewHazardSource(orion, cfg.Sources.HazardType),
		Targets:  targets,
		Vehicles: sources.NewVehicleSource(orion, cfg.Sources.VehicleType),
		Areas:    area.NewPartitioner(cfg.ServiceAreas()),
		Logger:   logger.New("planner"),
		Bus:      svc.Bus,
	}

	if cfg.Routing.Enabled {
		rc := routing.NewClient(cfg.Routing.ClientConfig())
		deps.Paths = rc
		if cfg.Cache.Enabled {
			svc.cache = routing.NewCachedMatrixProvider(rc, cfg.Cache.ClientConfig())
			deps.Matrix = svc.cache
		} else {
			deps.Matrix = rc
		}
	}
	if cfg.Optimizer.Enabled {
		deps.Optimizer = optimizer.NewClient(cfg.Optimizer.ClientConfig())
	}
	if cfg.Notify.Enabled {
		notifier, err := mqtt.NewNotifier(cfg.Notify.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt notifier: %w", err)
		}
		svc.notifier = notifier
		deps.Notifier = notifier
	}
	if cfg.Metrics.InfluxEnabled {
		deps.Sink = metrics.NewInfluxSinkWithFallback(
			cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken,
			cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket)
	} else {
		deps.Sink = coremetrics.NopSink{}
	}

	planner, err := dispatch.NewPlanner(deps)
	if err != nil {
		return nil, fmt.Errorf("planner: %w", err)
	}
	svc.Planner = planner
	return svc, nil
}

// PlanOnce executes a single planning run.
func (s *Service) PlanOnce(ctx context.Context, req dispatch.Request) (model.Plan, error) {
	return s.Planner.Plan(ctx, req)
}

// Serve runs the HTTP API until the context is cancelled.
func (s *Service) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.apiAddr,
		Handler:           api.NewServer(s.Planner),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("HTTP API listening on %s", s.apiAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.notifier != nil {
		s.notifier.Disconnect()
	}
	s.Bus.Close()
	if s.cache != nil {
		return s.cache.Close()
	}
	return nil
}
