package ansisql

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jean/dbt/pkg/model"
	"github.com/jean/dbt/pkg/query"
)

type recordingRunner struct {
	queries []string
	err     error
}

func (r *recordingRunner) RunQueryWithoutResult(ctx context.Context, q *query.Query) error {
	r.queries = append(r.queries, q.Query)
	return r.err
}

func TestSchemaCreator_CreateSchemaIfNotExist(t *testing.T) {
	t.Parallel()

	t.Run("creates the schema once per run", func(t *testing.T) {
		t.Parallel()

		runner := &recordingRunner{}
		sc := NewSchemaCreator()
		ctx := context.Background()

		require.NoError(t, sc.CreateSchemaIfNotExist(ctx, runner, &model.Model{Name: "orders", Schema: "main_dbt"}))
		require.NoError(t, sc.CreateSchemaIfNotExist(ctx, runner, &model.Model{Name: "customers", Schema: "main_dbt"}))
		require.NoError(t, sc.CreateSchemaIfNotExist(ctx, runner, &model.Model{Name: "events", Schema: "staging"}))

		assert.Equal(t, []string{
			`CREATE SCHEMA IF NOT EXISTS "main_dbt"`,
			`CREATE SCHEMA IF NOT EXISTS "staging"`,
		}, runner.queries)
	})

	t.Run("models without a schema are skipped", func(t *testing.T) {
		t.Parallel()

		runner := &recordingRunner{}
		require.NoError(t, NewSchemaCreator().CreateSchemaIfNotExist(context.Background(), runner, &model.Model{Name: "orders"}))
		assert.Empty(t, runner.queries)
	})

	t.Run("failures are not cached", func(t *testing.T) {
		t.Parallel()

		runner := &recordingRunner{err: errors.New("connection lost")}
		sc := NewSchemaCreator()
		ctx := context.Background()

		require.Error(t, sc.CreateSchemaIfNotExist(ctx, runner, &model.Model{Name: "orders", Schema: "main_dbt"}))

		runner.err = nil
		require.NoError(t, sc.CreateSchemaIfNotExist(ctx, runner, &model.Model{Name: "orders", Schema: "main_dbt"}))
		assert.Len(t, runner.queries, 2)
	})
}

func TestQuoteIdentifier(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `"main_dbt"`, QuoteIdentifier("main_dbt"))
	assert.Equal(t, `"main_dbt"."orders"`, QuoteIdentifier("main_dbt.orders"))
	assert.Equal(t, `"orders"`, QuoteIdentifier(`"orders"`))
}
