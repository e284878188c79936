package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mealboard/marketplace/pkg/config"
	"github.com/mealboard/marketplace/pkg/health"
	"github.com/mealboard/marketplace/pkg/observability/logger"
	"github.com/mealboard/marketplace/pkg/server"
)

// The functions below match the callbacks of cli.ServiceCommandOptions.

// RunServer serves the API until SIGINT or SIGTERM.
func RunServer(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	a, err := New(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("failed to close stores", "error", err)
		}
	}()

	opts := a.ServerOptions()
	servers, err := server.BuildHTTPServers(opts)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.RunHTTPServers(runCtx, servers, opts)
}

// ServerOptions describes the servers for this App. Indexes are ensured and
// the sequence allocator is raised to the stored maximum before serving.
func (a *App) ServerOptions() *server.RunHTTPServersOptions {
	return &server.RunHTTPServersOptions{
		Config:          a.Config,
		Logger:          a.Logger,
		RegisterRoutes:  a.RegisterRoutes,
		HealthRegistry:  a.Health,
		MetricsRegistry: a.Metrics,
		StartupHooks: []server.LifecycleHook{
			{Name: "ensure-indexes", Fn: a.EnsureIndexes},
			{Name: "sync-listing-sequence", Fn: a.Listings.SyncSequence},
		},
	}
}

// CheckDependencies runs the health checks once and prints the result. It
// fails when a dependency is unhealthy.
func CheckDependencies(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	a, err := New(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.CheckDependencies(ctx, os.Stdout)
}

// CheckDependencies writes the aggregated health result to out as JSON.
func (a *App) CheckDependencies(ctx context.Context, out io.Writer) error {
	result := a.Health.Check(ctx)
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}
	if result.Status == health.StatusUnhealthy {
		return fmt.Errorf("dependencies unhealthy")
	}
	return nil
}

// EnsureIndexes creates the MongoDB indexes.
func EnsureIndexes(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	a, err := New(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.EnsureIndexes(ctx)
}

// Seed loads fixtures from r.
func Seed(ctx context.Context, cfg *config.Config, log logger.Logger, r io.Reader) error {
	fixtures, err := LoadFixtures(r)
	if err != nil {
		return err
	}
	a, err := New(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.EnsureIndexes(ctx); err != nil {
		return err
	}
	_, err = a.Seed(ctx, fixtures)
	return err
}
