package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/umdpack/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("github.com/wolfeidau/umdpack/internal/assets")

type Stats struct {
	ID       string
	Hash     string
	Assets   []AssetInfo
	Warnings []string
	Duration time.Duration
}

type AssetInfo struct {
	Name string
	Size int
}

// Run bundles the entry with esbuild, runs the emit callbacks in registration
// order and writes every remaining asset to the output path. Runs are serialized.
func (c *Compiler) Run(ctx context.Context) (*Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, span := tracer.Start(ctx, "compiler.run")
	defer span.End()

	started := time.Now()
	attrs := metric.WithAttributes(attribute.String("library", c.Options.Output.Library))
	metrics := telemetry.GetMetrics()

	stats, err := c.run(ctx)

	metrics.BuildsTotal.Add(ctx, 1, attrs)
	metrics.BuildDuration.Record(ctx, float64(time.Since(started).Milliseconds()), attrs)

	if err != nil {
		metrics.BuildErrorsTotal.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.AssetsEmittedTotal.Add(ctx, int64(len(stats.Assets)), attrs)
	span.SetAttributes(attribute.String("build.id", stats.ID), attribute.Int("assets", len(stats.Assets)))

	return stats, nil
}

func (c *Compiler) run(ctx context.Context) (*Stats, error) {
	compilation := NewCompilation()
	log := c.log.With().Str("build", compilation.ID).Logger()

	opts := c.buildOptions()
	for _, t := range c.buildOptionsTaps {
		log.Debug().Str("plugin", t.name).Msg("Applying build options")
		t.fn(&opts)
	}

	log.Info().Str("entry", c.Options.Entry).Str("outfile", opts.Outfile).Msg("Building library")

	result := api.Build(opts)

	for _, msg := range result.Warnings {
		text := formatMessage(msg)
		compilation.Warnings = append(compilation.Warnings, text)
		log.Warn().Str("warning", text).Msg("Build warning")
	}

	if len(result.Errors) > 0 {
		for _, msg := range result.Errors {
			log.Error().Str("error", formatMessage(msg)).Msg("Build error")
		}
		return nil, &BuildError{Messages: result.Errors}
	}

	for _, file := range result.OutputFiles {
		name, err := filepath.Rel(c.Options.Output.Path, file.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to name output %s: %w", file.Path, err)
		}
		compilation.Assets.Set(filepath.ToSlash(name), RawSource(file.Contents))
	}

	if err := compilation.loadMetadata(result.Metafile); err != nil {
		return nil, fmt.Errorf("failed to parse metafile: %w", err)
	}

	compilation.Hash = compilation.computeHash()

	if err := c.Emit(ctx, compilation); err != nil {
		return nil, err
	}

	stats, err := c.writeAssets(compilation)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("hash", stats.Hash).
		Int("assets", len(stats.Assets)).
		Dur("duration", stats.Duration).
		Msg("Build complete")

	return stats, nil
}

// Emit runs the registered emit callbacks against compilation, one at a time.
// The first error stops the chain.
func (c *Compiler) Emit(ctx context.Context, compilation *Compilation) error {
	for _, t := range c.emitTaps {
		if err := ctx.Err(); err != nil {
			return err
		}

		tapCtx, span := tracer.Start(ctx, "emit "+t.name)
		err := t.fn(tapCtx, compilation)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		if err != nil {
			return fmt.Errorf("emit %s: %w", t.name, err)
		}
	}
	return nil
}

func (c *Compiler) writeAssets(compilation *Compilation) (*Stats, error) {
	stats := &Stats{
		ID:       compilation.ID,
		Hash:     compilation.Hash,
		Warnings: compilation.Warnings,
	}

	root := c.Options.Output.Path
	for _, name := range compilation.Assets.Names() {
		asset, _ := compilation.Assets.Get(name)

		path := filepath.Join(root, filepath.FromSlash(name))
		if rel, err := filepath.Rel(root, path); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidAssetName, name)
		}

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(asset.Source()), 0o644); err != nil { //nolint:gosec
			return nil, fmt.Errorf("failed to write asset %s: %w", name, err)
		}

		c.log.Debug().Str("file", path).Int("size", asset.Size()).Msg("Wrote asset")
		stats.Assets = append(stats.Assets, AssetInfo{Name: name, Size: asset.Size()})
	}

	stats.Duration = time.Since(compilation.started)
	return stats, nil
}

func (c *Compiler) buildOptions() api.BuildOptions {
	cfg := c.Options

	opts := api.BuildOptions{
		EntryPoints:       []string{cfg.Entry},
		AbsWorkingDir:     cfg.Context,
		Outfile:           filepath.Join(cfg.Output.Path, cfg.Output.Filename),
		Bundle:            true,
		Write:             false,
		Metafile:          true,
		Platform:          api.PlatformBrowser,
		Target:            api.ES2015,
		Sourcemap:         sourceMap(cfg.Devtool),
		ResolveExtensions: resolveExtensions(cfg.Resolve.Extensions),
		LogLevel:          api.LogLevelSilent,
		Plugins:           []api.Plugin{rulesPlugin(cfg.Rules, cfg.Lint)},
	}

	if cfg.Resolve.Root != "" {
		opts.NodePaths = []string{cfg.Resolve.Root}
	}

	switch cfg.Output.LibraryTarget {
	case TargetUMD:
		opts.Format = api.FormatIIFE
		opts.GlobalName = umdExports
		opts.Banner = map[string]string{"js": umdBanner(cfg.Output.Library, cfg.Output.UMDNamedDefine)}
		opts.Footer = map[string]string{"js": umdFooter()}
	case TargetVar:
		opts.Format = api.FormatIIFE
		opts.GlobalName = cfg.Output.Library
	case TargetCommonJS2:
		opts.Format = api.FormatCommonJS
	case TargetModule:
		opts.Format = api.FormatESModule
	}

	return opts
}

func sourceMap(devtool Devtool) api.SourceMap {
	switch devtool {
	case DevtoolSourceMap:
		return api.SourceMapLinked
	case DevtoolHiddenSourceMap:
		return api.SourceMapExternal
	case DevtoolInlineSourceMap:
		return api.SourceMapInline
	default:
		return api.SourceMapNone
	}
}

// resolveExtensions drops the empty extension, which esbuild always tries first.
func resolveExtensions(extensions []string) []string {
	var out []string
	for _, ext := range extensions {
		if ext != "" {
			out = append(out, ext)
		}
	}
	return out
}

func formatMessage(msg api.Message) string {
	if msg.Location == nil {
		return msg.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text)
}
