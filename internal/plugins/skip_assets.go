package plugins

import (
	"context"

	"github.com/wolfeidau/umdpack/internal/assets"
	"github.com/wolfeidau/umdpack/internal/telemetry"
)

// Matcher reports whether an asset name matches. *regexp.Regexp and *Regexp satisfy it.
type Matcher interface {
	MatchString(s string) bool
}

// SkipAssets removes every asset whose name matches before anything is written.
type SkipAssets struct {
	matcher Matcher
}

func NewSkipAssets(matcher Matcher) *SkipAssets {
	return &SkipAssets{matcher: matcher}
}

func (p *SkipAssets) Apply(c *assets.Compiler) {
	log := c.Logger()

	c.OnEmit("skip-assets", func(ctx context.Context, compilation *assets.Compilation) error {
		skipped := p.Filter(compilation.Assets)
		for _, name := range skipped {
			log.Debug().Str("file", name).Msg("Skipped asset")
		}
		telemetry.GetMetrics().AssetsSkippedTotal.Add(ctx, int64(len(skipped)))
		return nil
	})
}

// Filter deletes the matching names from set in insertion order and returns them.
func (p *SkipAssets) Filter(set *assets.OutputSet) []string {
	var skipped []string
	for _, name := range set.Names() {
		if p.matcher.MatchString(name) {
			set.Delete(name)
			skipped = append(skipped, name)
		}
	}
	return skipped
}
