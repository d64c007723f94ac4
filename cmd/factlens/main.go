package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/NullMeDev/factlens/internal/api"
	"github.com/NullMeDev/factlens/internal/config"
	"github.com/NullMeDev/factlens/internal/health"
	"github.com/NullMeDev/factlens/internal/logging"
	"github.com/NullMeDev/factlens/internal/sources"
	"github.com/NullMeDev/factlens/internal/verify"
)

const VERSION = "0.3.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		log.Printf("factlens: %v", err)
		os.Exit(1)
	}
}

// run owns every deferred cleanup so that main can exit once they are done.
func run(ctx context.Context) error {
	defer RecoverFromPanic("main")

	fmt.Println("factlens v" + VERSION + " starting up...")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	initErr := logging.Init(logging.Options{Level: cfg.LogLevel, Path: cfg.LogPath, Format: cfg.LogFormat})
	logger := logging.Default()
	defer logger.Sync()
	if initErr != nil {
		logger.Warning("Logging falls back to stdout at info level: %v", initErr)
	}

	for key, set := range cfg.Credentials() {
		if !set {
			logger.Debug("%s not set", key)
		}
	}

	srcs := verify.NewSources(cfg, logger)
	verifier := verify.New(srcs, verify.NewReasoner(cfg, logger), verify.WithLogger(logger))

	probes := srcs.All()
	monitor := health.NewMonitor(probes, logger)
	if err := monitor.Start(cfg.HealthCron); err != nil {
		logger.Error("Health checks disabled: %v", err)
	}
	defer monitor.Stop()

	// First check in the background so /api/sources has data early.
	go func() {
		defer RecoverFromPanic("health-startup")
		monitor.PerformChecks(ctx)
	}()

	server := api.NewServer(verifier, api.Options{
		RatePerMinute: cfg.VerifyRatePerMinute,
		Monitor:       monitor,
		Sources:       sourceInfo(probes),
		Logger:        logger,
		Version:       VERSION,
	})

	if err := server.ListenAndServe(ctx, fmt.Sprintf(":%d", cfg.HTTPPort)); err != nil {
		logger.Error("API server failed: %v", err)
		return err
	}

	logger.Info("Shut down after %s", time.Since(startedAt).Round(time.Second))
	return nil
}

var startedAt = time.Now()

func sourceInfo(probes map[string]sources.Source) []api.SourceInfo {
	out := make([]api.SourceInfo, 0, len(probes))
	for key, src := range probes {
		out = append(out, api.SourceInfo{Key: key, Name: src.Name()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// RecoverFromPanic recovers from panics and logs the error
func RecoverFromPanic(component string) {
	if r := recover(); r != nil {
		logging.Default().Error("PANIC in %s: %v", component, r)
	}
}
