package assets

import (
	"fmt"
	"path/filepath"
	"regexp"
)

// LibraryTarget selects the module format the bundle is exposed as.
type LibraryTarget string

const (
	TargetUMD       LibraryTarget = "umd"
	TargetVar       LibraryTarget = "var"
	TargetCommonJS2 LibraryTarget = "commonjs2"
	TargetModule    LibraryTarget = "module"
)

// Devtool selects how source maps are produced.
type Devtool string

const (
	DevtoolNone            Devtool = ""
	DevtoolSourceMap       Devtool = "source-map"
	DevtoolHiddenSourceMap Devtool = "hidden-source-map"
	DevtoolInlineSourceMap Devtool = "inline-source-map"
)

// Enforce marks a rule as running before the normal loaders.
type Enforce string

const (
	EnforceNormal Enforce = ""
	EnforcePre    Enforce = "pre"
)

type Config struct {
	// Directory entry and template paths are resolved against, must be absolute
	Context string `json:"context"`
	// Entry module, relative to Context (e.g., "./TestClass.ts")
	Entry string `json:"entry"`
	// Source map mode
	Devtool Devtool `json:"devtool"`
	// Output descriptor
	Output Output `json:"output"`
	// Ordered module transform rules
	Rules []Rule `json:"rules"`
	// Module resolution settings
	Resolve Resolve `json:"resolve"`
	// Plugins applied to the compiler in order
	Plugins []Plugin `json:"-"`
	// Options for the lint pre-loader
	Lint LintOptions `json:"lint"`
}

type Output struct {
	// Absolute directory assets are written to
	Path string `json:"path"`
	// Bundle filename (e.g., "MyLib.min.js")
	Filename string `json:"filename"`
	// Name the bundle is exported under
	Library        string        `json:"library"`
	LibraryTarget  LibraryTarget `json:"libraryTarget"`
	UMDNamedDefine bool          `json:"umdNamedDefine"`
}

type Rule struct {
	Test    *regexp.Regexp `json:"-"`
	Loader  string         `json:"loader"`
	Exclude *regexp.Regexp `json:"-"`
	Enforce Enforce        `json:"enforce"`
}

// Matches reports whether the rule applies to the given module path.
func (r Rule) Matches(path string) bool {
	if r.Test == nil || !r.Test.MatchString(path) {
		return false
	}
	return r.Exclude == nil || !r.Exclude.MatchString(path)
}

type Resolve struct {
	// Extra directory searched for bare module imports
	Root string `json:"root"`
	// Extensions tried in order when an import omits one
	Extensions []string `json:"extensions"`
}

type LintOptions struct {
	// Report lint hints as errors rather than warnings
	EmitErrors bool `json:"emitErrors"`
	// Fail the build when any hint is reported
	FailOnHint bool `json:"failOnHint"`
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		Entry:   "./index.ts",
		Devtool: DevtoolSourceMap,
		Output: Output{
			LibraryTarget:  TargetUMD,
			UMDNamedDefine: true,
		},
		Rules: []Rule{
			{Test: regexp.MustCompile(`\.tsx?$`), Loader: "ts", Exclude: regexp.MustCompile(`node_modules`)},
		},
		Resolve: Resolve{
			Extensions: []string{".js", ".ts", ".jsx", ".tsx"},
		},
	}
}

// Validate checks the configuration is complete enough to run a build.
func (c *Config) Validate() error {
	if c.Context == "" || !filepath.IsAbs(c.Context) {
		return fmt.Errorf("%w: context must be an absolute path, got %q", ErrInvalidConfig, c.Context)
	}
	if c.Entry == "" {
		return fmt.Errorf("%w: entry is required", ErrInvalidConfig)
	}
	if c.Output.Path == "" || !filepath.IsAbs(c.Output.Path) {
		return fmt.Errorf("%w: output path must be an absolute path, got %q", ErrInvalidConfig, c.Output.Path)
	}
	if c.Output.Filename == "" {
		return fmt.Errorf("%w: output filename is required", ErrInvalidConfig)
	}

	switch c.Output.LibraryTarget {
	case TargetUMD, TargetVar:
		if c.Output.Library == "" {
			return fmt.Errorf("%w: library name is required for %s target", ErrInvalidConfig, c.Output.LibraryTarget)
		}
	case TargetCommonJS2, TargetModule:
	default:
		return fmt.Errorf("%w: unknown library target %q", ErrInvalidConfig, c.Output.LibraryTarget)
	}

	switch c.Devtool {
	case DevtoolNone, DevtoolSourceMap, DevtoolHiddenSourceMap, DevtoolInlineSourceMap:
	default:
		return fmt.Errorf("%w: unknown devtool %q", ErrInvalidConfig, c.Devtool)
	}

	for i, rule := range c.Rules {
		if rule.Test == nil {
			return fmt.Errorf("%w: rule %d has no test pattern", ErrInvalidConfig, i)
		}
		if rule.Loader == LintLoader {
			continue
		}
		if _, ok := loaders[rule.Loader]; !ok {
			return fmt.Errorf("%w: rule %d uses unknown loader %q", ErrInvalidConfig, i, rule.Loader)
		}
	}

	return nil
}
