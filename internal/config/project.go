package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultProjectFile is read from the base directory when no project file is given.
const DefaultProjectFile = "umdpack.yaml"

// Project is the user facing description of the library being built. Every
// field has a default, so a project file only lists what differs.
type Project struct {
	Library        string      `yaml:"library"`
	Context        string      `yaml:"context"`
	Entry          string      `yaml:"entry"`
	OutputPath     string      `yaml:"output_path"`
	Target         string      `yaml:"target"`
	UMDNamedDefine bool        `yaml:"umd_named_define"`
	Devtool        string      `yaml:"devtool"`
	Declaration    string      `yaml:"declaration"`
	Extensions     []string    `yaml:"extensions"`
	Lint           LintProject `yaml:"lint"`
	Compress       string      `yaml:"compress"`
}

type LintProject struct {
	Enabled    bool `yaml:"enabled"`
	EmitErrors bool `yaml:"emit_errors"`
	FailOnHint bool `yaml:"fail_on_hint"`
}

func DefaultProject() Project {
	return Project{
		Library:        "MyLib",
		Context:        "src",
		Entry:          "./TestClass.ts",
		OutputPath:     "dist",
		Target:         "umd",
		UMDNamedDefine: true,
		Devtool:        "source-map",
		Declaration:    "index.d.ts.tpl",
		Extensions:     []string{"", ".js", ".ts", ".jsx", ".tsx"},
		Lint: LintProject{
			Enabled:    true,
			EmitErrors: true,
			FailOnHint: true,
		},
	}
}

// LoadProject overlays the project file at path onto the defaults. An empty
// path returns the defaults.
func LoadProject(path string) (Project, error) {
	project := DefaultProject()
	if path == "" {
		return project, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Project{}, fmt.Errorf("failed to read project file: %w", err)
	}

	if err := yaml.Unmarshal(data, &project); err != nil {
		return Project{}, fmt.Errorf("failed to parse project file %s: %w", path, err)
	}

	if project.Library == "" {
		return Project{}, errors.New("project file must not clear the library name")
	}

	return project, nil
}
