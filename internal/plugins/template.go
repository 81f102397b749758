package plugins

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wolfeidau/umdpack/internal/assets"
	"github.com/wolfeidau/umdpack/internal/tmpl"
)

const templateExt = ".tpl"

// Template emits an asset rendered from a template file in the compiler context.
type Template struct {
	in  string
	out string
}

// NewTemplate renders in to out. When out is empty, in names the output and
// the template is read from in + ".tpl".
func NewTemplate(in, out string) *Template {
	if out == "" {
		out = in
		in = in + templateExt
	}
	return &Template{in: in, out: out}
}

// Input is the template path, relative to the compiler context.
func (p *Template) Input() string { return p.in }

// Output is the name of the emitted asset.
func (p *Template) Output() string { return p.out }

func (p *Template) Apply(c *assets.Compiler) {
	c.OnEmit("template", func(ctx context.Context, compilation *assets.Compilation) error {
		return p.emit(c, compilation)
	})
}

func (p *Template) emit(c *assets.Compiler, compilation *assets.Compilation) error {
	path := filepath.Join(c.Context, p.in)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}

	source, err := tmpl.Render(p.in, string(data), map[string]any{
		"compiler":    c,
		"compilation": compilation,
	})
	if err != nil {
		return err
	}

	compilation.Assets.Set(p.out, assets.StringSource(source))

	log := c.Logger()
	log.Debug().Str("template", path).Str("file", p.out).Msg("Rendered template")
	return nil
}
