package jinja

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jean/dbt/pkg/invocation"
	"github.com/jean/dbt/pkg/model"
)

func TestParser_ParseModel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		content    string
		want       model.Materialization
		wantSchema string
		wantDeps   []string
		wantErr    string
	}{
		{
			name:    "no config means no materialization",
			content: "select 1",
			want:    model.Materialization{},
		},
		{
			name:    "table materialization is captured",
			content: "{{ config(materialized='table') }}\nselect 1",
			want:    model.Materialization{Type: model.MaterializationTypeTable},
		},
		{
			name:    "incremental table with strategy",
			content: "{{ config(materialized='table', strategy='delete+insert', incremental_key='dt') }}\nselect 1",
			want: model.Materialization{
				Type:           model.MaterializationTypeTable,
				Strategy:       model.MaterializationStrategyDeleteInsert,
				IncrementalKey: "dt",
			},
		},
		{
			name:       "schema override is applied",
			content:    "{{ config(materialized='view', schema='reporting') }}\nselect 1",
			want:       model.Materialization{Type: model.MaterializationTypeView},
			wantSchema: "reporting",
		},
		{
			name:     "ref calls are recorded as dependencies",
			content:  "select * from {{ ref('orders') }} join {{ ref('orders') }} using (id)",
			want:     model.Materialization{},
			wantDeps: []string{"orders"},
		},
		{
			name:    "unknown config keys are rejected",
			content: "{{ config(materialised='table') }}\nselect 1",
			wantErr: "unknown config key",
		},
		{
			name:    "positional config arguments are rejected",
			content: "{{ config('table') }}\nselect 1",
			wantErr: "keyword arguments only",
		},
		{
			name:    "unknown materialization is rejected",
			content: "{{ config(materialized='ephemeral') }}\nselect 1",
			wantErr: "unknown materialization",
		},
		{
			name:    "strategies are only valid for tables",
			content: "{{ config(materialized='view', strategy='merge') }}\nselect 1",
			wantErr: "only valid for tables",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			upstream := &model.Model{Name: "orders", Schema: "main_dbt"}
			m := &model.Model{
				Name:           "under_test",
				Schema:         "main_dbt",
				ExecutableFile: model.ExecutableFile{Content: tt.content},
			}
			p := testProject(upstream, m)

			err := NewParser(testTarget(), invocation.New()).ParseModel(p, m)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.want, m.Materialization)
			if tt.wantSchema != "" {
				require.Equal(t, tt.wantSchema, m.Schema)
			}
			require.Equal(t, tt.wantDeps, m.DependsOn)
		})
	}
}

func TestParser_ParseModelSeesTheRuntimeContext(t *testing.T) {
	t.Parallel()

	m := &model.Model{
		Name:   "snapshot",
		Schema: "main_dbt",
		ExecutableFile: model.ExecutableFile{
			Content: "select '{{ this }}', '{{ target.schema }}', '{{ run_started_at }}', '{{ invocation_id }}', {{ var('row_limit') }}",
		},
	}

	err := NewParser(testTarget(), invocation.New()).ParseModel(testProject(m), m)
	require.NoError(t, err)
}
