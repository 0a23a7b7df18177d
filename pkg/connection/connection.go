package connection

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jean/dbt/pkg/config"
	duck "github.com/jean/dbt/pkg/duckdb"
	"github.com/jean/dbt/pkg/model"
	"github.com/jean/dbt/pkg/postgres"
	"github.com/jean/dbt/pkg/query"
)

// SQLClient is the slice of adapter behavior the runner needs, both warehouse
// clients implement it.
type SQLClient interface {
	RunQueryWithoutResult(ctx context.Context, q *query.Query) error
	Select(ctx context.Context, q *query.Query) ([][]interface{}, error)
	TableExists(ctx context.Context, schema, table string) (bool, error)
	CreateSchemaIfNotExist(ctx context.Context, m *model.Model) error
	Ping(ctx context.Context) error
}

type Manager struct {
	Postgres map[string]*postgres.Client
	DuckDB   map[string]*duck.Client
}

func (m *Manager) GetConnection(name string) (SQLClient, error) {
	if db, ok := m.Postgres[name]; ok {
		return db, nil
	}

	if db, ok := m.DuckDB[name]; ok {
		return db, nil
	}

	return nil, errors.Errorf("no connection found for target '%s'", name)
}

func (m *Manager) AddPgConnectionFromTarget(ctx context.Context, target *config.Target) error {
	if m.Postgres == nil {
		m.Postgres = make(map[string]*postgres.Client)
	}

	db, err := postgres.NewClient(ctx, postgres.Config{
		Username:     target.User,
		Password:     target.Password.String(),
		Host:         target.Host,
		Port:         target.Port,
		Database:     target.Database,
		Schema:       target.Schema,
		PoolMaxConns: target.GetThreads(),
		SslMode:      target.SslMode,
	})
	if err != nil {
		return err
	}

	m.Postgres[target.Name] = db

	return nil
}

func (m *Manager) AddDuckDBConnectionFromTarget(target *config.Target) error {
	if m.DuckDB == nil {
		m.DuckDB = make(map[string]*duck.Client)
	}

	db, err := duck.NewClient(duck.Config{
		Path:   target.Path,
		Schema: target.Schema,
	})
	if err != nil {
		return err
	}

	m.DuckDB[target.Name] = db

	return nil
}

// NewManagerFromTarget opens the connection the given target describes.
func NewManagerFromTarget(ctx context.Context, target *config.Target) (*Manager, error) {
	manager := &Manager{}

	switch target.Type {
	case config.TargetTypePostgres:
		if err := manager.AddPgConnectionFromTarget(ctx, target); err != nil {
			return nil, err
		}
	case config.TargetTypeDuckDB:
		if err := manager.AddDuckDBConnectionFromTarget(target); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("unsupported target type '%s'", target.Type)
	}

	return manager, nil
}
