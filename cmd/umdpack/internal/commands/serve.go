package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	httpmiddleware "github.com/wolfeidau/umdpack/internal/http"
	"github.com/wolfeidau/umdpack/internal/logger"
)

// ServeCmd rebuilds on change and serves the output directory, for loading
// the bundle from a test page or another project during development.
type ServeCmd struct {
	ProjectFlags `embed:""`

	Listen      string   `help:"HTTP server listen address" default:"127.0.0.1:8080" env:"UMDPACK_LISTEN"`
	CORSOrigins []string `help:"Allowed CORS origins" default:"*" env:"UMDPACK_CORS_ORIGINS"`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	compiler, err := c.newCompiler(log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- watchAndBuild(ctx, log, compiler)
	}()

	srv := configureHTTPServer(c.Listen, c.handler(compiler.Options.Output.Path, log))

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", c.Listen).Str("dir", compiler.Options.Output.Path).Msg("Starting HTTP server")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		stop()
		<-watchErr
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case err := <-watchErr:
		if err != nil {
			log.Error().Err(err).Msg("Watcher stopped")
		}
		watchErr = nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	shutdownErr := srv.Shutdown(shutdownCtx)

	// wait for an in flight rebuild to finish writing to the output path
	if watchErr != nil {
		stop()
		if err := <-watchErr; err != nil {
			log.Error().Err(err).Msg("Watcher stopped")
		}
	}

	if shutdownErr != nil {
		return fmt.Errorf("failed to shutdown http server: %w", shutdownErr)
	}

	return nil
}

func (c *ServeCmd) handler(dir string, log zerolog.Logger) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return httpmiddleware.RequestLogger(log)(httpmiddleware.NoCache()(withCORS(c.CORSOrigins, files)))
}

func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead},
	})
	return middleware.Handler(h)
}
