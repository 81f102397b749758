package assets

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// LintLoader is the pre-loader that reports esbuild diagnostics as lint hints.
const LintLoader = "lint"

var loaders = map[string]api.Loader{
	"ts":   api.LoaderTS,
	"tsx":  api.LoaderTSX,
	"js":   api.LoaderJS,
	"jsx":  api.LoaderJSX,
	"json": api.LoaderJSON,
	"text": api.LoaderText,
}

// rulesPlugin loads every module matched by a rule with the rule's loader,
// running matching pre rules first.
func rulesPlugin(rules []Rule, lint LintOptions) api.Plugin {
	return api.Plugin{
		Name: "rules",
		Setup: func(build api.PluginBuild) {
			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: "file"}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				var pre []Rule
				var normal *Rule
				for i := range rules {
					if !rules[i].Matches(args.Path) {
						continue
					}
					if rules[i].Enforce == EnforcePre {
						pre = append(pre, rules[i])
					} else if normal == nil {
						normal = &rules[i]
					}
				}

				if len(pre) == 0 && normal == nil {
					return api.OnLoadResult{}, nil
				}

				data, err := os.ReadFile(args.Path)
				if err != nil {
					return api.OnLoadResult{}, err
				}
				contents := string(data)

				loader := loaderForPath(args.Path)
				if normal != nil && normal.Loader != LintLoader {
					loader = loaders[normal.Loader]
				}

				result := api.OnLoadResult{
					PluginName: "rules",
					Contents:   &contents,
					ResolveDir: filepath.Dir(args.Path),
					Loader:     loader,
				}

				for _, rule := range pre {
					if rule.Loader != LintLoader {
						continue
					}
					hints := lintSource(args.Path, contents, loader)
					if len(hints) == 0 {
						continue
					}
					if lint.EmitErrors || lint.FailOnHint {
						result.Errors = append(result.Errors, hints...)
					} else {
						result.Warnings = append(result.Warnings, hints...)
					}
				}

				return result, nil
			})
		},
	}
}

// lintSource transforms a single module in isolation and returns the
// warnings esbuild reported for it.
func lintSource(path, contents string, loader api.Loader) []api.Message {
	result := api.Transform(contents, api.TransformOptions{
		Loader:     loader,
		Sourcefile: path,
		LogLevel:   api.LogLevelSilent,
	})

	hints := make([]api.Message, 0, len(result.Warnings))
	for _, msg := range result.Warnings {
		msg.PluginName = LintLoader
		hints = append(hints, msg)
	}
	return hints
}

func loaderForPath(path string) api.Loader {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".mts", ".cts":
		return api.LoaderTS
	case ".tsx":
		return api.LoaderTSX
	case ".jsx":
		return api.LoaderJSX
	case ".json":
		return api.LoaderJSON
	case ".txt":
		return api.LoaderText
	default:
		return api.LoaderJS
	}
}
