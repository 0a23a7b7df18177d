package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModel_FQN(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "main_dbt.orders", (&Model{Name: "orders", Schema: "main_dbt"}).FQN())
	assert.Equal(t, "orders", (&Model{Name: "orders"}).FQN())
}

func TestModel_RelationName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `"main_dbt"."orders"`, (&Model{Name: "orders", Schema: "main_dbt"}).RelationName())
	assert.Equal(t, `"orders"`, (&Model{Name: "orders"}).RelationName())
}

func TestModel_AddDependency(t *testing.T) {
	t.Parallel()

	m := &Model{Name: "order_stats"}
	m.AddDependency("orders")
	m.AddDependency("customers")
	m.AddDependency("orders")

	assert.Equal(t, []string{"orders", "customers"}, m.DependsOn)
}

func TestProject_RelationNameFor(t *testing.T) {
	t.Parallel()

	p := &Project{Name: "jaffle"}
	p.AddModel(&Model{Name: "orders", Schema: "main_dbt"})

	relation, err := p.RelationNameFor("orders")
	require.NoError(t, err)
	assert.Equal(t, `"main_dbt"."orders"`, relation)

	_, err = p.RelationNameFor("nonexistent")
	require.ErrorContains(t, err, "not found")
}

func TestProject_WireDependencies(t *testing.T) {
	t.Parallel()

	orders := &Model{Name: "orders"}
	stats := &Model{Name: "order_stats", DependsOn: []string{"orders"}}

	p := &Project{Name: "jaffle"}
	p.AddModel(orders)
	p.AddModel(stats)

	require.NoError(t, p.WireDependencies())
	assert.Equal(t, []*Model{orders}, stats.GetUpstream())
	assert.Equal(t, []*Model{stats}, orders.GetDownstream())

	broken := &Project{Name: "jaffle"}
	broken.AddModel(&Model{Name: "order_stats", DependsOn: []string{"orders"}})
	require.ErrorContains(t, broken.WireDependencies(), "does not exist")
}
