package config

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/wolfeidau/umdpack/internal/assets"
	"github.com/wolfeidau/umdpack/internal/plugins"
)

var (
	typeScriptFiles = regexp.MustCompile(`\.tsx?$`)
	nodeModules     = regexp.MustCompile(`node_modules`)
)

type Options struct {
	// Minify the bundle and name it <library>.min.js
	Production bool
	// Directory the project paths are relative to, defaults to the working directory
	BaseDir string
}

// OutputFilename returns the bundle name for the library in the given mode.
func OutputFilename(library string, production bool) string {
	if production {
		return library + ".min.js"
	}
	return library + ".js"
}

// Assemble builds the compiler configuration for project. The plugin order is
// minifier (production only), declaration template, compression (optional),
// then the filter removing every asset not named after the library.
func Assemble(project Project, opts Options) (*assets.Config, error) {
	base, err := filepath.Abs(opts.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	library := project.Library

	var pluginList []assets.Plugin
	if opts.Production {
		pluginList = append(pluginList, plugins.NewMinify())
	}

	pluginList = append(pluginList, plugins.NewTemplate(project.Declaration, library+".d.ts"))

	if project.Compress != "" && project.Compress != "none" {
		compress, err := plugins.NewCompress(plugins.Algorithm(project.Compress))
		if err != nil {
			return nil, err
		}
		pluginList = append(pluginList, compress)
	}

	pluginList = append(pluginList, plugins.NewSkipAssets(plugins.NotPrefix(library)))

	contextDir := resolvePath(base, project.Context)

	var rules []assets.Rule
	if project.Lint.Enabled {
		rules = append(rules, assets.Rule{Test: typeScriptFiles, Loader: assets.LintLoader, Exclude: nodeModules, Enforce: assets.EnforcePre})
	}
	rules = append(rules, assets.Rule{Test: typeScriptFiles, Loader: "ts", Exclude: nodeModules})

	cfg := &assets.Config{
		Context: contextDir,
		Entry:   project.Entry,
		Devtool: assets.Devtool(project.Devtool),
		Output: assets.Output{
			Path:           resolvePath(base, project.OutputPath),
			Filename:       OutputFilename(library, opts.Production),
			Library:        library,
			LibraryTarget:  assets.LibraryTarget(project.Target),
			UMDNamedDefine: project.UMDNamedDefine,
		},
		Rules: rules,
		Resolve: assets.Resolve{
			Root:       contextDir,
			Extensions: project.Extensions,
		},
		Plugins: pluginList,
		Lint: assets.LintOptions{
			EmitErrors: project.Lint.EmitErrors,
			FailOnHint: project.Lint.FailOnHint,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func resolvePath(base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}
