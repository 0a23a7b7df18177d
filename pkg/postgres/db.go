package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/jean/dbt/pkg/ansisql"
	"github.com/jean/dbt/pkg/model"
	"github.com/jean/dbt/pkg/query"
)

type Client struct {
	connection    connection
	config        Config
	schemaCreator *ansisql.SchemaCreator
}

type connection interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func NewClient(ctx context.Context, c Config) (*Client, error) {
	conn, err := pgxpool.New(ctx, c.ToDBConnectionURI())
	if err != nil {
		return nil, err
	}

	return &Client{connection: conn, config: c, schemaCreator: ansisql.NewSchemaCreator()}, nil
}

func NewClientWithConn(conn connection, c Config) *Client {
	return &Client{connection: conn, config: c, schemaCreator: ansisql.NewSchemaCreator()}
}

func (c *Client) RunQueryWithoutResult(ctx context.Context, query *query.Query) error {
	_, err := c.connection.Exec(ctx, query.String())
	if err != nil {
		return err
	}

	return nil
}

// Select runs a query and returns the results.
func (c *Client) Select(ctx context.Context, query *query.Query) ([][]interface{}, error) {
	rows, err := c.connection.Query(ctx, query.String())
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	collectedRows, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) ([]interface{}, error) {
		return row.Values()
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to collect row values")
	}

	if len(collectedRows) == 0 {
		return make([][]interface{}, 0), nil
	}

	return collectedRows, nil
}

// TableExists reports whether the given relation is already present in the
// target database, which is what the `already_exists` template helper uses.
func (c *Client) TableExists(ctx context.Context, schema, table string) (bool, error) {
	q := query.Query{
		Query: "SELECT 1 FROM information_schema.tables WHERE table_schema = '" + schema + "' AND table_name = '" + table + "'",
	}

	rows, err := c.Select(ctx, &q)
	if err != nil {
		return false, err
	}

	return len(rows) > 0, nil
}

func (c *Client) CreateSchemaIfNotExist(ctx context.Context, m *model.Model) error {
	return c.schemaCreator.CreateSchemaIfNotExist(ctx, c, m)
}

func (c *Client) Ping(ctx context.Context) error {
	q := query.Query{
		Query: "SELECT 1",
	}

	err := c.RunQueryWithoutResult(ctx, &q)
	if err != nil {
		return errors.Wrap(err, "failed to run test query on the postgres connection")
	}

	return nil
}
