package commands

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/umdpack/internal/assets"
	"github.com/wolfeidau/umdpack/internal/config"
)

type Globals struct {
	Debug   bool
	Version string
}

// ProjectFlags select the project and build mode shared by every command.
type ProjectFlags struct {
	Production bool   `short:"p" help:"Production mode: minify the bundle and write <library>.min.js" env:"UMDPACK_PRODUCTION"`
	Dir        string `help:"Project base directory" default:"." env:"UMDPACK_DIR"`
	Config     string `help:"Project file (default: <dir>/umdpack.yaml when present)" default:"" env:"UMDPACK_CONFIG"`
	Compress   string `help:"Also emit compressed copies of the bundle" default:"none" enum:"none,gzip,zstd" env:"UMDPACK_COMPRESS"`
}

func (f *ProjectFlags) projectFile() string {
	if f.Config != "" {
		return f.Config
	}
	path := filepath.Join(f.Dir, config.DefaultProjectFile)
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

func (f *ProjectFlags) newCompiler(log zerolog.Logger) (*assets.Compiler, error) {
	project, err := config.LoadProject(f.projectFile())
	if err != nil {
		return nil, err
	}

	if f.Compress != "" && f.Compress != "none" {
		project.Compress = f.Compress
	}

	cfg, err := config.Assemble(project, config.Options{
		Production: f.Production,
		BaseDir:    f.Dir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to assemble configuration: %w", err)
	}

	log.Debug().
		Str("library", cfg.Output.Library).
		Str("context", cfg.Context).
		Str("output", filepath.Join(cfg.Output.Path, cfg.Output.Filename)).
		Bool("production", f.Production).
		Msg("Configuration assembled")

	return assets.NewCompiler(project.Library, cfg, log)
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}
