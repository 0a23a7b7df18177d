package ansisql

import (
	"context"
	"strings"
	"sync"

	"github.com/jean/dbt/pkg/model"
	"github.com/jean/dbt/pkg/query"
	"github.com/pkg/errors"
)

type queryRunner interface {
	RunQueryWithoutResult(ctx context.Context, query *query.Query) error
}

// SchemaCreator ensures the schema a model materializes into exists before the
// model runs. Creations are cached so that a schema is only created once per
// run even when many models share it.
type SchemaCreator struct {
	schemaNameCache *sync.Map
}

func NewSchemaCreator() *SchemaCreator {
	return &SchemaCreator{
		schemaNameCache: &sync.Map{},
	}
}

func (sc *SchemaCreator) CreateSchemaIfNotExist(ctx context.Context, qr queryRunner, m *model.Model) error {
	schemaName := m.Schema
	if schemaName == "" {
		return nil
	}

	if _, exists := sc.schemaNameCache.Load(schemaName); exists {
		return nil
	}

	createQuery := query.Query{
		Query: "CREATE SCHEMA IF NOT EXISTS " + QuoteIdentifier(schemaName),
	}
	if err := qr.RunQueryWithoutResult(ctx, &createQuery); err != nil {
		return errors.Wrapf(err, "failed to create or ensure schema: %s", schemaName)
	}
	sc.schemaNameCache.Store(schemaName, true)

	return nil
}

// QuoteIdentifier quotes a possibly dotted identifier part by part so that
// case-sensitive names survive the round trip to the database.
func QuoteIdentifier(identifier string) string {
	parts := strings.Split(identifier, ".")
	quotedParts := make([]string, len(parts))
	for i, part := range parts {
		quotedParts[i] = `"` + strings.ReplaceAll(part, `"`, ``) + `"`
	}

	return strings.Join(quotedParts, ".")
}
