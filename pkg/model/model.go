package model

import (
	"fmt"
	"strings"
)

type MaterializationType string

const (
	MaterializationTypeNone  MaterializationType = ""
	MaterializationTypeView  MaterializationType = "view"
	MaterializationTypeTable MaterializationType = "table"
)

type MaterializationStrategy string

const (
	MaterializationStrategyNone          MaterializationStrategy = ""
	MaterializationStrategyCreateReplace MaterializationStrategy = "create+replace"
	MaterializationStrategyAppend        MaterializationStrategy = "append"
	MaterializationStrategyDeleteInsert  MaterializationStrategy = "delete+insert"
	MaterializationStrategyMerge         MaterializationStrategy = "merge"
)

var AllAvailableMaterializationStrategies = []MaterializationStrategy{
	MaterializationStrategyCreateReplace,
	MaterializationStrategyAppend,
	MaterializationStrategyDeleteInsert,
	MaterializationStrategyMerge,
}

type Materialization struct {
	Type           MaterializationType     `json:"type" yaml:"type,omitempty"`
	Strategy       MaterializationStrategy `json:"strategy" yaml:"strategy,omitempty"`
	IncrementalKey string                  `json:"incremental_key" yaml:"incremental_key,omitempty"`
	UniqueKey      string                  `json:"unique_key" yaml:"unique_key,omitempty"`
}

type ExecutableFile struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Model is a single templated SQL file within a project.
type Model struct {
	Name            string          `json:"name"`
	Schema          string          `json:"schema"`
	Materialization Materialization `json:"materialization"`
	ExecutableFile  ExecutableFile  `json:"executable_file"`
	DependsOn       []string        `json:"depends_on"`

	upstream   []*Model
	downstream []*Model
}

// FQN is the unquoted schema-qualified name of the relation this model builds.
func (m *Model) FQN() string {
	if m.Schema == "" {
		return m.Name
	}

	return m.Schema + "." + m.Name
}

// RelationName is the quoted identifier the `this` variable renders to.
func (m *Model) RelationName() string {
	parts := strings.Split(m.FQN(), ".")
	quoted := make([]string, len(parts))
	for i, part := range parts {
		quoted[i] = fmt.Sprintf(`"%s"`, part)
	}

	return strings.Join(quoted, ".")
}

func (m *Model) AddDependency(name string) {
	for _, existing := range m.DependsOn {
		if existing == name {
			return
		}
	}

	m.DependsOn = append(m.DependsOn, name)
}

func (m *Model) AddUpstream(other *Model) {
	m.upstream = append(m.upstream, other)
}

func (m *Model) AddDownstream(other *Model) {
	m.downstream = append(m.downstream, other)
}

func (m *Model) GetUpstream() []*Model {
	return m.upstream
}

func (m *Model) GetDownstream() []*Model {
	return m.downstream
}

type DefinitionFile struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Project is a collection of models plus the settings that apply to all of them.
type Project struct {
	Name           string         `yaml:"name" json:"name" validate:"required"`
	Version        string         `yaml:"version" json:"version"`
	ModelPaths     []string       `yaml:"model-paths" json:"model_paths"`
	Variables      map[string]any `yaml:"vars" json:"vars"`
	OnRunStart     []string       `yaml:"on-run-start" json:"on_run_start"`
	OnRunEnd       []string       `yaml:"on-run-end" json:"on_run_end"`
	Models         []*Model       `yaml:"-" json:"models"`
	DefinitionFile DefinitionFile `yaml:"-" json:"definition_file"`

	modelsByName map[string]*Model
}

func (p *Project) AddModel(m *Model) {
	if p.modelsByName == nil {
		p.modelsByName = make(map[string]*Model)
	}

	p.Models = append(p.Models, m)
	p.modelsByName[m.Name] = m
}

func (p *Project) GetModelByName(name string) *Model {
	if p.modelsByName == nil {
		return nil
	}

	return p.modelsByName[name]
}

func (p *Project) RelationNameFor(name string) (string, error) {
	m := p.GetModelByName(name)
	if m == nil {
		return "", fmt.Errorf("model '%s' not found in project '%s'", name, p.Name)
	}

	return m.RelationName(), nil
}

// WireDependencies links the upstream/downstream pointers from the DependsOn
// names recorded during parsing. Unknown names are an error, a ref() must
// always point at a model that exists.
func (p *Project) WireDependencies() error {
	for _, m := range p.Models {
		m.upstream = nil
		m.downstream = nil
	}

	for _, m := range p.Models {
		for _, dep := range m.DependsOn {
			upstream := p.GetModelByName(dep)
			if upstream == nil {
				return fmt.Errorf("model '%s' depends on '%s' which does not exist", m.Name, dep)
			}

			m.AddUpstream(upstream)
			upstream.AddDownstream(m)
		}
	}

	return nil
}
