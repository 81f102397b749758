package plugins

import (
	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/umdpack/internal/assets"
)

// Minify turns on every esbuild minification pass for the bundle.
type Minify struct{}

func NewMinify() *Minify {
	return &Minify{}
}

func (p *Minify) Apply(c *assets.Compiler) {
	c.OnBuildOptions("minify", func(opts *api.BuildOptions) {
		opts.MinifyWhitespace = true
		opts.MinifyIdentifiers = true
		opts.MinifySyntax = true
		opts.LegalComments = api.LegalCommentsEndOfFile
	})
}
