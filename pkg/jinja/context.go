package jinja

import (
	"github.com/jean/dbt/pkg/config"
	"github.com/jean/dbt/pkg/invocation"
	"github.com/jean/dbt/pkg/model"
	"github.com/nikolalohinski/gonja/v2/exec"
	"github.com/pkg/errors"
)

// NewModelRenderer returns a renderer bound to a single model, this is the
// context the model's template sees when it is compiled for execution. Extra
// context entries, such as runtime helpers backed by a live connection, can be
// merged in on top.
//
// The target's password is never part of the context, see Target.Context.
func NewModelRenderer(p *model.Project, m *model.Model, target *config.Target, inv *invocation.Invocation, extras ...Context) *Renderer {
	ctx := baseContext(p, target, inv)
	ctx["this"] = m.RelationName()
	ctx["model"] = map[string]any{
		"name":         m.Name,
		"schema":       m.Schema,
		"materialized": string(m.Materialization.Type),
	}
	ctx["config"] = discardConfig
	ctx["ref"] = resolveRef(p)

	for _, extra := range extras {
		for key, value := range extra {
			ctx[key] = value
		}
	}

	return NewRenderer(ctx)
}

// NewProjectRenderer returns a renderer without a bound model, used for
// project-level hook statements.
func NewProjectRenderer(p *model.Project, target *config.Target, inv *invocation.Invocation) *Renderer {
	ctx := baseContext(p, target, inv)
	ctx["ref"] = resolveRef(p)

	return NewRenderer(ctx)
}

func baseContext(p *model.Project, target *config.Target, inv *invocation.Invocation) Context {
	return Context{
		"project":        p.Name,
		"target":         target.Context(),
		"run_started_at": inv.StartedAtRFC3339(),
		"invocation_id":  inv.ID,
		"var":            lookupVar(p),
	}
}

// discardConfig swallows the config() declaration during the final render, the
// values were already captured by the parse pass.
func discardConfig(params *exec.VarArgs) *exec.Value {
	return exec.AsValue("")
}

func resolveRef(p *model.Project) func(params *exec.VarArgs) *exec.Value {
	return func(params *exec.VarArgs) *exec.Value {
		if check := params.ExpectArgs(1); check.IsError() {
			return exec.AsValue(errors.New("ref expects a single model name"))
		}

		name := params.Args[0].String()
		relation, err := p.RelationNameFor(name)
		if err != nil {
			return exec.AsValue(err)
		}

		return exec.AsValue(relation)
	}
}

func lookupVar(p *model.Project) func(params *exec.VarArgs) *exec.Value {
	return func(params *exec.VarArgs) *exec.Value {
		if len(params.Args) < 1 || len(params.Args) > 2 {
			return exec.AsValue(errors.New("var expects a variable name and an optional default"))
		}

		name := params.Args[0].String()
		if value, ok := p.Variables[name]; ok {
			return exec.AsValue(value)
		}

		if len(params.Args) == 2 {
			return params.Args[1]
		}

		return exec.AsValue(errors.Errorf("variable '%s' is not defined for project '%s'", name, p.Name))
	}
}
