// Package runner compiles and executes models against the active target. It
// is the piece that ties the template layer, the materialization engine and
// the warehouse connection together for a single model.
package runner

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jean/dbt/pkg/config"
	"github.com/jean/dbt/pkg/connection"
	"github.com/jean/dbt/pkg/invocation"
	"github.com/jean/dbt/pkg/jinja"
	"github.com/jean/dbt/pkg/model"
	"github.com/jean/dbt/pkg/query"
	"github.com/jean/dbt/pkg/scheduler"
	"github.com/jean/dbt/pkg/tracking"
)

type BasicOperator struct {
	client       connection.SQLClient
	materializer *model.Materializer
	target       *config.Target
	inv          *invocation.Invocation
}

func NewOperator(client connection.SQLClient, materializer *model.Materializer, target *config.Target, inv *invocation.Invocation) *BasicOperator {
	return &BasicOperator{
		client:       client,
		materializer: materializer,
		target:       target,
		inv:          inv,
	}
}

// Run compiles the model's template, wraps it in its materialization query and
// executes it against the warehouse. Errors are returned to the scheduler so
// that downstream models get marked as upstream-failed instead of running
// against missing relations.
func (o *BasicOperator) Run(ctx context.Context, instance *scheduler.ModelInstance) error {
	compiled, err := o.Compile(ctx, instance.Project, instance.Model)
	if err != nil {
		return err
	}

	if err := o.client.CreateSchemaIfNotExist(ctx, instance.Model); err != nil {
		return err
	}

	// The materialized output can be a multi-statement transactional block
	// that creates a session-scoped temp table, so it must reach the warehouse
	// as a single query on a single connection. Splitting it would scatter the
	// statements across pooled connections and break both the transaction and
	// the temp table.
	if err := o.client.RunQueryWithoutResult(ctx, &query.Query{Query: compiled}); err != nil {
		return errors.Wrapf(err, "failed to execute model '%s'", instance.Model.Name)
	}

	return nil
}

// Compile renders the model template with the full runtime context and wraps
// the result according to the declared materialization.
func (o *BasicOperator) Compile(ctx context.Context, p *model.Project, m *model.Model) (string, error) {
	extras := jinja.Context{
		"already_exists": func(schema, table string) bool {
			exists, err := o.client.TableExists(ctx, schema, table)
			if err != nil {
				return false
			}

			return exists
		},
	}

	renderer := jinja.NewModelRenderer(p, m, o.target, o.inv, extras)
	extractor := query.WholeFileExtractor{Renderer: renderer}

	queries, err := extractor.ExtractQueriesFromString(m.ExecutableFile.Content)
	if err != nil {
		return "", err
	}

	materialized, err := o.materializer.Render(m, queries[0].Query)
	if err != nil {
		return "", errors.Wrapf(err, "failed to materialize model '%s'", m.Name)
	}

	return materialized, nil
}

// RunHooks renders and executes the project-level hook statements, used for
// on-run-start and on-run-end.
func (o *BasicOperator) RunHooks(ctx context.Context, p *model.Project, hooks []string) error {
	if len(hooks) == 0 {
		return nil
	}

	renderer := jinja.NewProjectRenderer(p, o.target, o.inv)
	for i, hook := range hooks {
		rendered, err := renderer.Render(hook)
		if err != nil {
			return errors.Wrapf(err, "failed to render hook %d", i+1)
		}

		for _, q := range query.SplitQueries(rendered) {
			if err := o.client.RunQueryWithoutResult(ctx, q); err != nil {
				return errors.Wrapf(err, "failed to execute hook %d", i+1)
			}
		}
	}

	return nil
}

// Runner drives a whole project run: start hooks, the scheduled models, end
// hooks, and per-model tracking events.
type Runner struct {
	Operator *BasicOperator
	Inv      *invocation.Invocation
}

func (r *Runner) BeforeRun(ctx context.Context, p *model.Project) error {
	return r.Operator.RunHooks(ctx, p, p.OnRunStart)
}

func (r *Runner) AfterRun(ctx context.Context, p *model.Project) error {
	return r.Operator.RunHooks(ctx, p, p.OnRunEnd)
}

func (r *Runner) TrackResults(results []*scheduler.ModelExecutionResult) {
	for _, result := range results {
		tracking.SendModelRun(r.Inv.ID, result)
	}
}
