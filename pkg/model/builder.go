package model

import (
	"path/filepath"
	"strings"

	path2 "github.com/jean/dbt/pkg/path"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

var ProjectDefinitionFiles = []string{"project.yml", "project.yaml"}

const sqlFileSuffix = ".sql"

// ModelParser fills in the parse-time attributes of a model, the
// materialization config captured from the template and the dependency edges
// recorded by ref() calls.
type ModelParser interface {
	ParseModel(p *Project, m *Model) error
}

type BuilderConfig struct {
	ProjectFileNames  []string
	DefaultModelPaths []string
	DefaultSchema     string
}

type Builder struct {
	config BuilderConfig
	parser ModelParser
	fs     afero.Fs
}

func NewBuilder(config BuilderConfig, parser ModelParser, fs afero.Fs) *Builder {
	if len(config.ProjectFileNames) == 0 {
		config.ProjectFileNames = ProjectDefinitionFiles
	}
	if len(config.DefaultModelPaths) == 0 {
		config.DefaultModelPaths = []string{"models"}
	}

	return &Builder{
		config: config,
		parser: parser,
		fs:     fs,
	}
}

// CreateProjectFromPath loads the project definition under the given directory
// and every model file in its model paths.
func (b *Builder) CreateProjectFromPath(pathToProject string) (*Project, error) {
	var project Project
	var definitionPath string

	for _, fileName := range b.config.ProjectFileNames {
		candidate := filepath.Join(pathToProject, fileName)
		exists, err := afero.Exists(b.fs, candidate)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to check for the project file %s", candidate)
		}

		if exists {
			definitionPath = candidate
			break
		}
	}

	if definitionPath == "" {
		return nil, errors.Errorf("no project definition file found under '%s', looked for: %s", pathToProject, strings.Join(b.config.ProjectFileNames, ", "))
	}

	err := path2.ReadYaml(b.fs, definitionPath, &project)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse the project definition file at '%s'", definitionPath)
	}

	project.DefinitionFile = DefinitionFile{
		Name: filepath.Base(definitionPath),
		Path: definitionPath,
	}

	if len(project.ModelPaths) == 0 {
		project.ModelPaths = b.config.DefaultModelPaths
	}

	for _, modelPath := range project.ModelPaths {
		root := filepath.Join(pathToProject, modelPath)
		exists, err := afero.DirExists(b.fs, root)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to check the model directory %s", root)
		}
		if !exists {
			continue
		}

		files, err := path2.GetAllFilesWithSuffix(b.fs, root, []string{sqlFileSuffix})
		if err != nil {
			return nil, err
		}

		for _, file := range files {
			m, err := b.CreateModelFromFile(file)
			if err != nil {
				return nil, err
			}

			project.Models = append(project.Models, m)
		}
	}

	project.modelsByName = make(map[string]*Model, len(project.Models))
	for _, m := range project.Models {
		if existing, ok := project.modelsByName[m.Name]; ok {
			return nil, errors.Errorf("duplicate model name '%s', defined in both '%s' and '%s'", m.Name, existing.ExecutableFile.Path, m.ExecutableFile.Path)
		}
		project.modelsByName[m.Name] = m
	}

	if b.parser != nil {
		for _, m := range project.Models {
			if err := b.parser.ParseModel(&project, m); err != nil {
				return nil, errors.Wrapf(err, "failed to parse model '%s'", m.Name)
			}
		}
	}

	if err := project.WireDependencies(); err != nil {
		return nil, err
	}

	return &project, nil
}

// CreateModelFromFile turns a single SQL file into a model, its name is the
// file stem and its schema the configured default until the parse pass
// overrides it.
func (b *Builder) CreateModelFromFile(filePath string) (*Model, error) {
	content, err := afero.ReadFile(b.fs, filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read the model file %s", filePath)
	}

	fileName := filepath.Base(filePath)
	name := strings.TrimSuffix(fileName, filepath.Ext(fileName))

	return &Model{
		Name:   name,
		Schema: b.config.DefaultSchema,
		ExecutableFile: ExecutableFile{
			Name:    fileName,
			Path:    filePath,
			Content: strings.TrimSpace(string(content)),
		},
	}, nil
}
