package jinja

import (
	"github.com/jean/dbt/pkg/config"
	"github.com/jean/dbt/pkg/invocation"
	"github.com/jean/dbt/pkg/model"
	"github.com/nikolalohinski/gonja/v2/exec"
	"github.com/pkg/errors"
)

// Parser runs the parse pass over a model template: it renders the template
// once with a collecting context so that the config() declaration and every
// ref() call end up recorded on the model. The render output is thrown away.
type Parser struct {
	target *config.Target
	inv    *invocation.Invocation
}

func NewParser(target *config.Target, inv *invocation.Invocation) *Parser {
	return &Parser{
		target: target,
		inv:    inv,
	}
}

func (j *Parser) ParseModel(p *model.Project, m *model.Model) error {
	var collected model.Materialization
	var schemaOverride string

	ctx := baseContext(p, j.target, j.inv)
	ctx["this"] = m.RelationName()
	ctx["model"] = map[string]any{
		"name":         m.Name,
		"schema":       m.Schema,
		"materialized": "",
	}
	ctx["config"] = collectConfig(&collected, &schemaOverride)
	ctx["ref"] = collectRef(p, m)

	_, err := NewRenderer(ctx).Render(m.ExecutableFile.Content)
	if err != nil {
		return err
	}

	if err := validateMaterialization(&collected); err != nil {
		return err
	}

	m.Materialization = collected
	if schemaOverride != "" {
		m.Schema = schemaOverride
	}

	return nil
}

func collectConfig(into *model.Materialization, schemaOverride *string) func(params *exec.VarArgs) *exec.Value {
	return func(params *exec.VarArgs) *exec.Value {
		if len(params.Args) > 0 {
			return exec.AsValue(errors.New("config accepts keyword arguments only, e.g. config(materialized='table')"))
		}

		for key, value := range params.KwArgs {
			switch key {
			case "materialized":
				into.Type = model.MaterializationType(value.String())
			case "strategy":
				into.Strategy = model.MaterializationStrategy(value.String())
			case "incremental_key":
				into.IncrementalKey = value.String()
			case "unique_key":
				into.UniqueKey = value.String()
			case "schema":
				*schemaOverride = value.String()
			default:
				return exec.AsValue(errors.Errorf("unknown config key '%s'", key))
			}
		}

		return exec.AsValue("")
	}
}

// collectRef records the dependency edge and hands back the relation name so
// that the parse render can proceed through the rest of the template.
func collectRef(p *model.Project, m *model.Model) func(params *exec.VarArgs) *exec.Value {
	return func(params *exec.VarArgs) *exec.Value {
		if check := params.ExpectArgs(1); check.IsError() {
			return exec.AsValue(errors.New("ref expects a single model name"))
		}

		name := params.Args[0].String()
		relation, err := p.RelationNameFor(name)
		if err != nil {
			return exec.AsValue(err)
		}

		m.AddDependency(name)
		return exec.AsValue(relation)
	}
}

func validateMaterialization(mat *model.Materialization) error {
	switch mat.Type {
	case model.MaterializationTypeNone, model.MaterializationTypeView, model.MaterializationTypeTable:
	default:
		return errors.Errorf("unknown materialization '%s', supported values are 'table' and 'view'", mat.Type)
	}

	if mat.Strategy == model.MaterializationStrategyNone {
		return nil
	}

	if mat.Type != model.MaterializationTypeTable {
		return errors.Errorf("materialization strategy '%s' is only valid for tables", mat.Strategy)
	}

	for _, s := range model.AllAvailableMaterializationStrategies {
		if mat.Strategy == s {
			return nil
		}
	}

	return errors.Errorf("unknown materialization strategy '%s'", mat.Strategy)
}
