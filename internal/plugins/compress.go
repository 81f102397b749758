package plugins

import (
	"bytes"
	"context"
	"fmt"
	"regexp"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/wolfeidau/umdpack/internal/assets"
)

type Algorithm string

const (
	Gzip Algorithm = "gzip"
	Zstd Algorithm = "zstd"
)

var defaultCompressTest = regexp.MustCompile(`\.js$`)

// Compress adds a compressed copy of every matching asset, named with the
// algorithm's extension appended (MyLib.js -> MyLib.js.gz).
type Compress struct {
	algorithm Algorithm
	test      Matcher
	minSize   int
}

func NewCompress(algorithm Algorithm) (*Compress, error) {
	switch algorithm {
	case Gzip, Zstd:
	default:
		return nil, fmt.Errorf("unsupported compression algorithm %q", algorithm)
	}
	return &Compress{algorithm: algorithm, test: defaultCompressTest}, nil
}

// WithMinSize skips assets smaller than size bytes.
func (p *Compress) WithMinSize(size int) *Compress {
	p.minSize = size
	return p
}

func (p *Compress) Apply(c *assets.Compiler) {
	log := c.Logger()

	c.OnEmit("compress", func(ctx context.Context, compilation *assets.Compilation) error {
		for _, name := range compilation.Assets.Names() {
			if !p.test.MatchString(name) {
				continue
			}
			asset, _ := compilation.Assets.Get(name)
			source := []byte(asset.Source())
			if len(source) < p.minSize {
				continue
			}

			compressed, err := p.compress(source)
			if err != nil {
				return fmt.Errorf("failed to compress %s: %w", name, err)
			}

			compilation.Assets.Set(name+p.extension(), assets.RawSource(compressed))

			log.Debug().
				Str("file", name).
				Str("algorithm", string(p.algorithm)).
				Int("size", len(source)).
				Int("compressed", len(compressed)).
				Msg("Compressed asset")
		}
		return nil
	})
}

func (p *Compress) extension() string {
	if p.algorithm == Zstd {
		return ".zst"
	}
	return ".gz"
}

func (p *Compress) compress(source []byte) ([]byte, error) {
	if p.algorithm == Zstd {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(source, nil), nil
	}

	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(source); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
