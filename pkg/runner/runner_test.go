package runner

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jean/dbt/pkg/config"
	duck "github.com/jean/dbt/pkg/duckdb"
	"github.com/jean/dbt/pkg/invocation"
	"github.com/jean/dbt/pkg/model"
	pg "github.com/jean/dbt/pkg/postgres"
	"github.com/jean/dbt/pkg/query"
	"github.com/jean/dbt/pkg/scheduler"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) RunQueryWithoutResult(ctx context.Context, q *query.Query) error {
	args := m.Called(ctx, q)
	return args.Error(0)
}

func (m *mockClient) Select(ctx context.Context, q *query.Query) ([][]interface{}, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([][]interface{}), args.Error(1)
}

func (m *mockClient) TableExists(ctx context.Context, schema, table string) (bool, error) {
	args := m.Called(ctx, schema, table)
	return args.Bool(0), args.Error(1)
}

func (m *mockClient) CreateSchemaIfNotExist(ctx context.Context, mod *model.Model) error {
	args := m.Called(ctx, mod)
	return args.Error(0)
}

func (m *mockClient) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func runnerTarget() *config.Target {
	return &config.Target{
		Name:     "dev",
		Type:     config.TargetTypeDuckDB,
		Password: "s3cr3t-password",
		Schema:   "main_dbt",
		Threads:  4,
	}
}

func snapshotModel() *model.Model {
	return &model.Model{
		Name:            "context_snapshot",
		Schema:          "main_dbt",
		Materialization: model.Materialization{Type: model.MaterializationTypeTable},
		ExecutableFile: model.ExecutableFile{
			Content: "select '{{ this }}' as this, '{{ target.schema }}' as target_schema, '{{ invocation_id }}' as invocation_id",
		},
	}
}

func runnerProject(models ...*model.Model) *model.Project {
	p := &model.Project{Name: "context_example"}
	for _, m := range models {
		p.AddModel(m)
	}

	return p
}

func TestBasicOperator_Compile(t *testing.T) {
	t.Parallel()

	target := runnerTarget()
	m := snapshotModel()
	client := new(mockClient)
	client.On("TableExists", mock.Anything, mock.Anything, mock.Anything).Return(false, nil).Maybe()

	inv := invocation.New()
	operator := NewOperator(client, duck.NewMaterializer(false), target, inv)

	compiled, err := operator.Compile(context.Background(), runnerProject(m), m)
	require.NoError(t, err)

	assert.Contains(t, compiled, `CREATE OR REPLACE TABLE "main_dbt"."context_snapshot" AS`)
	assert.Contains(t, compiled, `'"main_dbt"."context_snapshot"' as this`)
	assert.Contains(t, compiled, "'main_dbt' as target_schema")
	assert.Contains(t, compiled, inv.ID)
	assert.NotContains(t, compiled, target.Password.String())
}

func TestBasicOperator_CompileExposesAlreadyExists(t *testing.T) {
	t.Parallel()

	m := &model.Model{
		Name:   "orders",
		Schema: "main_dbt",
		ExecutableFile: model.ExecutableFile{
			Content: "{% if already_exists('main_dbt', 'orders') %}select 'incremental'{% else %}select 'first run'{% endif %}",
		},
	}

	client := new(mockClient)
	client.On("TableExists", mock.Anything, "main_dbt", "orders").Return(true, nil)

	operator := NewOperator(client, duck.NewMaterializer(false), runnerTarget(), invocation.New())

	compiled, err := operator.Compile(context.Background(), runnerProject(m), m)
	require.NoError(t, err)
	assert.Equal(t, "select 'incremental'", compiled)
	client.AssertExpectations(t)
}

func TestBasicOperator_Run(t *testing.T) {
	t.Parallel()

	m := snapshotModel()
	p := runnerProject(m)

	t.Run("executes the compiled statements", func(t *testing.T) {
		t.Parallel()

		client := new(mockClient)
		client.On("CreateSchemaIfNotExist", mock.Anything, m).Return(nil)
		client.On("RunQueryWithoutResult", mock.Anything, mock.Anything).Return(nil)

		operator := NewOperator(client, duck.NewMaterializer(false), runnerTarget(), invocation.New())

		err := operator.Run(context.Background(), &scheduler.ModelInstance{Project: p, Model: m})
		require.NoError(t, err)
		client.AssertExpectations(t)
	})

	t.Run("transactional materializations go out as a single query", func(t *testing.T) {
		t.Parallel()

		merged := &model.Model{
			Name:   "orders",
			Schema: "main_dbt",
			Materialization: model.Materialization{
				Type:      model.MaterializationTypeTable,
				Strategy:  model.MaterializationStrategyMerge,
				UniqueKey: "id",
			},
			ExecutableFile: model.ExecutableFile{Content: "select 1 as id"},
		}
		mergedProject := runnerProject(merged)

		executed := make([]*query.Query, 0)
		client := new(mockClient)
		client.On("CreateSchemaIfNotExist", mock.Anything, merged).Return(nil)
		client.On("RunQueryWithoutResult", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
			executed = append(executed, args.Get(1).(*query.Query))
		})

		operator := NewOperator(client, pg.NewMaterializer(false), runnerTarget(), invocation.New())

		err := operator.Run(context.Background(), &scheduler.ModelInstance{Project: mergedProject, Model: merged})
		require.NoError(t, err)

		// The temp table is session-scoped and the block is transactional, so
		// the statements must not be split across pooled connections.
		require.Len(t, executed, 1)
		assert.Contains(t, executed[0].Query, "BEGIN TRANSACTION")
		assert.Contains(t, executed[0].Query, "CREATE TEMP TABLE __dbt_tmp_abcefghi")
		assert.Contains(t, executed[0].Query, "COMMIT;")
	})

	t.Run("execution failures are wrapped with the model name", func(t *testing.T) {
		t.Parallel()

		client := new(mockClient)
		client.On("CreateSchemaIfNotExist", mock.Anything, m).Return(nil)
		client.On("RunQueryWithoutResult", mock.Anything, mock.Anything).Return(errors.New("syntax error"))

		operator := NewOperator(client, duck.NewMaterializer(false), runnerTarget(), invocation.New())

		err := operator.Run(context.Background(), &scheduler.ModelInstance{Project: p, Model: m})
		require.ErrorContains(t, err, "context_snapshot")
		require.ErrorContains(t, err, "syntax error")
	})
}

func TestBasicOperator_RunHooks(t *testing.T) {
	t.Parallel()

	p := runnerProject()
	p.OnRunStart = []string{"create schema if not exists {{ target.schema }};"}

	client := new(mockClient)
	client.On("RunQueryWithoutResult", mock.Anything, &query.Query{Query: "create schema if not exists main_dbt"}).Return(nil)

	operator := NewOperator(client, duck.NewMaterializer(false), runnerTarget(), invocation.New())

	require.NoError(t, operator.RunHooks(context.Background(), p, p.OnRunStart))
	client.AssertExpectations(t)

	require.NoError(t, operator.RunHooks(context.Background(), p, nil))
}
