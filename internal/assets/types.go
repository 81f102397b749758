package assets

import (
	"context"
	"encoding/json"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/uuid"
	"github.com/minio/crc64nvme"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"
)

type BuildMetadata struct {
	Outputs map[string]OutputInfo `json:"outputs"`
}

type OutputInfo struct {
	EntryPoint string       `json:"entryPoint"`
	Imports    []ImportInfo `json:"imports"`
	Exports    []string     `json:"exports"`
	Bytes      int          `json:"bytes"`
}

type ImportInfo struct {
	Path string `json:"path"`
}

// Plugin extends a Compiler by registering callbacks against its hooks.
// Apply is called once, when the compiler is created.
type Plugin interface {
	Apply(c *Compiler)
}

// EmitFunc runs after bundling and before assets are written. Returning an
// error aborts the build.
type EmitFunc func(ctx context.Context, compilation *Compilation) error

// BuildOptionsFunc adjusts the esbuild options before bundling starts.
type BuildOptionsFunc func(opts *api.BuildOptions)

type tap[T any] struct {
	name string
	fn   T
}

// Compiler owns the immutable configuration and the hooks plugins registered.
// Fields carrying a json tag are visible to templates.
type Compiler struct {
	Name    string  `json:"name"`
	Context string  `json:"context"`
	Options *Config `json:"options"`

	log              zerolog.Logger
	buildOptionsTaps []tap[BuildOptionsFunc]
	emitTaps         []tap[EmitFunc]
	mu               sync.Mutex
}

// NewCompiler validates the config and applies its plugins in order.
func NewCompiler(name string, config *Config, log zerolog.Logger) (*Compiler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Compiler{
		Name:    name,
		Context: config.Context,
		Options: config,
		log:     log,
	}

	for _, plugin := range config.Plugins {
		plugin.Apply(c)
	}

	return c, nil
}

// OnEmit registers fn to run during the emit phase, after every previously registered callback.
func (c *Compiler) OnEmit(name string, fn EmitFunc) {
	c.emitTaps = append(c.emitTaps, tap[EmitFunc]{name: name, fn: fn})
}

// OnBuildOptions registers fn to adjust the esbuild options of every build.
func (c *Compiler) OnBuildOptions(name string, fn BuildOptionsFunc) {
	c.buildOptionsTaps = append(c.buildOptionsTaps, tap[BuildOptionsFunc]{name: name, fn: fn})
}

// Logger returns the logger plugins should report through.
func (c *Compiler) Logger() zerolog.Logger {
	return c.log
}

// Compilation is the state of a single build. Its output set is only touched
// by one emit callback at a time.
type Compilation struct {
	ID       string         `json:"id"`
	Hash     string         `json:"hash"`
	Metadata *BuildMetadata `json:"metadata"`
	Warnings []string       `json:"warnings"`
	Assets   *OutputSet     `json:"-"`

	started time.Time
}

func NewCompilation() *Compilation {
	return &Compilation{
		ID:      uuid.NewString(),
		Assets:  NewOutputSet(),
		started: time.Now(),
	}
}

// AssetNames lists the current output names in insertion order.
func (c *Compilation) AssetNames() []string {
	return c.Assets.Names()
}

// EntryExports returns the names exported by the entry bundle, sorted.
func (c *Compilation) EntryExports() []string {
	if c.Metadata == nil {
		return nil
	}
	var exports []string
	for _, info := range c.Metadata.Outputs {
		if info.EntryPoint != "" {
			exports = append(exports, info.Exports...)
		}
	}
	slices.Sort(exports)
	return slices.Compact(exports)
}

func (c *Compilation) loadMetadata(metafile string) error {
	if metafile == "" {
		return nil
	}
	var metadata BuildMetadata
	if err := json.Unmarshal([]byte(metafile), &metadata); err != nil {
		return err
	}
	c.Metadata = &metadata
	return nil
}

// computeHash digests every asset name and source in name order.
func (c *Compilation) computeHash() string {
	names := c.Assets.Names()
	sort.Strings(names)

	h := crc64nvme.New()
	for _, name := range names {
		asset, _ := c.Assets.Get(name)
		h.Write([]byte(name))
		h.Write([]byte(asset.Source()))
	}
	return base58.Encode(h.Sum(nil))
}
