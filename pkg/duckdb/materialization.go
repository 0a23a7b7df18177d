package duck

import (
	"fmt"
	"strings"

	"github.com/jean/dbt/pkg/ansisql"
	"github.com/jean/dbt/pkg/helpers"
	"github.com/jean/dbt/pkg/model"
)

func NewMaterializer(fullRefresh bool) *model.Materializer {
	return &model.Materializer{
		MaterializationMap: matMap,
		FullRefresh:        fullRefresh,
	}
}

var matMap = model.ModelMaterializationMap{
	model.MaterializationTypeView: {
		model.MaterializationStrategyNone:          viewMaterializer,
		model.MaterializationStrategyAppend:        errorMaterializer,
		model.MaterializationStrategyCreateReplace: errorMaterializer,
		model.MaterializationStrategyDeleteInsert:  errorMaterializer,
		model.MaterializationStrategyMerge:         errorMaterializer,
	},
	model.MaterializationTypeTable: {
		model.MaterializationStrategyNone:          buildCreateReplaceQuery,
		model.MaterializationStrategyAppend:        buildAppendQuery,
		model.MaterializationStrategyCreateReplace: buildCreateReplaceQuery,
		model.MaterializationStrategyDeleteInsert:  buildIncrementalQuery,
		model.MaterializationStrategyMerge:         buildMergeQuery,
	},
}

func errorMaterializer(m *model.Model, query string) (string, error) {
	return "", fmt.Errorf("materialization strategy %s is not supported for materialization type %s", m.Materialization.Strategy, m.Materialization.Type)
}

func viewMaterializer(m *model.Model, query string) (string, error) {
	return fmt.Sprintf("CREATE OR REPLACE VIEW %s AS\n%s", ansisql.QuoteIdentifier(m.FQN()), query), nil
}

func buildAppendQuery(m *model.Model, query string) (string, error) {
	return fmt.Sprintf("INSERT INTO %s %s", ansisql.QuoteIdentifier(m.FQN()), query), nil
}

func buildCreateReplaceQuery(m *model.Model, query string) (string, error) {
	query = strings.TrimSuffix(query, ";")
	relation := ansisql.QuoteIdentifier(m.FQN())

	return fmt.Sprintf("CREATE OR REPLACE TABLE %s AS %s;", relation, query), nil
}

func buildIncrementalQuery(m *model.Model, query string) (string, error) {
	mat := m.Materialization
	if mat.IncrementalKey == "" {
		return "", fmt.Errorf("materialization strategy %s requires the `incremental_key` config to be set", mat.Strategy)
	}

	relation := ansisql.QuoteIdentifier(m.FQN())
	tempTableName := "__dbt_tmp_" + helpers.PrefixGenerator()
	quotedIncrementalKey := ansisql.QuoteIdentifier(mat.IncrementalKey)

	queries := []string{
		"BEGIN TRANSACTION",
		fmt.Sprintf("CREATE TEMP TABLE %s AS %s\n", tempTableName, strings.TrimSuffix(query, ";")),
		fmt.Sprintf("DELETE FROM %s WHERE %s IN (SELECT DISTINCT %s FROM %s)", relation, quotedIncrementalKey, quotedIncrementalKey, tempTableName),
		fmt.Sprintf("INSERT INTO %s SELECT * FROM %s", relation, tempTableName),
		"DROP TABLE IF EXISTS " + tempTableName,
		"COMMIT",
	}

	return strings.Join(queries, ";\n") + ";", nil
}

func buildMergeQuery(m *model.Model, query string) (string, error) {
	mat := m.Materialization
	if mat.UniqueKey == "" {
		return "", fmt.Errorf("materialization strategy %s requires the `unique_key` config to be set", mat.Strategy)
	}

	relation := ansisql.QuoteIdentifier(m.FQN())
	tempTableName := "__dbt_tmp_" + helpers.PrefixGenerator()
	quotedUniqueKey := ansisql.QuoteIdentifier(mat.UniqueKey)

	queries := []string{
		"BEGIN TRANSACTION",
		fmt.Sprintf("CREATE TEMP TABLE %s AS %s\n", tempTableName, strings.TrimSuffix(query, ";")),
		fmt.Sprintf("DELETE FROM %s USING %s WHERE %s.%s = %s.%s", relation, tempTableName, relation, quotedUniqueKey, tempTableName, quotedUniqueKey),
		fmt.Sprintf("INSERT INTO %s SELECT * FROM %s", relation, tempTableName),
		"DROP TABLE IF EXISTS " + tempTableName,
		"COMMIT",
	}

	return strings.Join(queries, ";\n") + ";", nil
}
