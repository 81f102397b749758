package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/umdpack/internal/assets"
	"github.com/wolfeidau/umdpack/internal/logger"
	"github.com/wolfeidau/umdpack/internal/telemetry"
	"github.com/wolfeidau/umdpack/internal/watch"
)

// BuildCmd bundles the library once, or on every change with --watch.
type BuildCmd struct {
	ProjectFlags `embed:""`

	Watch   bool `help:"Rebuild when files under the context directory change" default:"false" env:"UMDPACK_WATCH"`
	Tracing bool `help:"Export traces and metrics over OTLP" default:"false" env:"UMDPACK_TRACING"`
}

func (c *BuildCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	if c.Tracing {
		shutdown := startTelemetry(ctx, log, globals.Version)
		defer shutdown()
	}

	compiler, err := c.newCompiler(log)
	if err != nil {
		return err
	}

	if !c.Watch {
		return build(ctx, log, compiler)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return watchAndBuild(ctx, log, compiler)
}

func build(ctx context.Context, log zerolog.Logger, compiler *assets.Compiler) error {
	stats, err := compiler.Run(ctx)
	if err != nil {
		var buildErr *assets.BuildError
		if errors.As(err, &buildErr) {
			for _, msg := range buildErr.Formatted() {
				fmt.Fprintln(os.Stderr, msg)
			}
		}
		return fmt.Errorf("build failed: %w", err)
	}

	for _, asset := range stats.Assets {
		log.Info().Str("file", asset.Name).Int("size", asset.Size).Msg("Built file")
	}

	return nil
}

func watchAndBuild(ctx context.Context, log zerolog.Logger, compiler *assets.Compiler) error {
	w, err := watch.New(log, watch.DefaultDebounce)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	w.Ignore(compiler.Options.Output.Path)
	if err := w.Add(compiler.Context); err != nil {
		return fmt.Errorf("failed to watch %s: %w", compiler.Context, err)
	}

	log.Info().Str("dir", compiler.Context).Msg("Watching for changes")

	return w.Run(ctx, func(ctx context.Context) error {
		return build(ctx, log, compiler)
	})
}

func startTelemetry(ctx context.Context, log zerolog.Logger, version string) func() {
	shutdown, err := telemetry.InitTelemetry(ctx, "umdpack", version)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without it")
		return func() {}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown telemetry")
		}
	}
}
