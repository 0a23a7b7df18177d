package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jean/dbt/pkg/config"
	"github.com/jean/dbt/pkg/invocation"
	"github.com/jean/dbt/pkg/model"
)

func renderFixtureProject() (*model.Project, *model.Model) {
	m := &model.Model{
		Name:            "context_snapshot",
		Schema:          "main_dbt",
		Materialization: model.Materialization{Type: model.MaterializationTypeTable},
		ExecutableFile: model.ExecutableFile{
			Name: "context_snapshot.sql",
			Path: "/project/models/context_snapshot.sql",
			Content: `{{ config(materialized='table') }}
select
    '{{ this }}' as this,
    '{{ target.schema }}' as target_schema,
    '{{ run_started_at }}' as run_started_at,
    '{{ invocation_id }}' as invocation_id`,
		},
	}

	p := &model.Project{Name: "context_example"}
	p.AddModel(m)

	return p, m
}

func TestRenderCommand_Run(t *testing.T) {
	t.Parallel()

	project, m := renderFixtureProject()
	target := &config.Target{
		Name:     "dev",
		Type:     config.TargetTypeDuckDB,
		Password: "s3cr3t-password",
		Schema:   "main_dbt",
		Path:     "dev.duckdb",
	}

	inv := invocation.New()
	var buf bytes.Buffer
	r := RenderCommand{
		target:  target,
		inv:     inv,
		project: project,
		writer:  &buf,
		output:  "json",
	}

	require.NoError(t, r.Run(m.ExecutableFile.Path, false))

	var out map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	query := out["query"]
	assert.Contains(t, query, `CREATE OR REPLACE TABLE "main_dbt"."context_snapshot" AS`)
	assert.Contains(t, query, `'"main_dbt"."context_snapshot"' as this`)
	assert.Contains(t, query, "'main_dbt' as target_schema")
	assert.Contains(t, query, inv.ID)
	assert.NotContains(t, query, "s3cr3t-password")
}

func TestRenderCommand_RunUnknownModel(t *testing.T) {
	t.Parallel()

	project, _ := renderFixtureProject()
	r := RenderCommand{
		target:  &config.Target{Name: "dev", Type: config.TargetTypeDuckDB, Schema: "main_dbt"},
		inv:     invocation.New(),
		project: project,
		writer:  &bytes.Buffer{},
		output:  "json",
	}

	err := r.Run("/project/models/nope.sql", false)
	require.Error(t, err)
}

func TestMaterializerForTarget(t *testing.T) {
	t.Parallel()

	pg, err := materializerForTarget(&config.Target{Type: config.TargetTypePostgres}, false)
	require.NoError(t, err)
	assert.NotNil(t, pg)

	duckdb, err := materializerForTarget(&config.Target{Type: config.TargetTypeDuckDB}, true)
	require.NoError(t, err)
	assert.True(t, duckdb.FullRefresh)

	_, err = materializerForTarget(&config.Target{Type: "snowflake"}, false)
	require.ErrorContains(t, err, "unsupported target type")
}
