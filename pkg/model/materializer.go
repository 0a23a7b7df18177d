package model

import (
	"fmt"
)

type (
	MaterializerFunc        func(m *Model, query string) (string, error)
	ModelMaterializationMap map[MaterializationType]map[MaterializationStrategy]MaterializerFunc
)

// Materializer wraps a rendered query into the DDL/DML the model's declared
// materialization requires, using a per-adapter map of builder funcs.
type Materializer struct {
	MaterializationMap ModelMaterializationMap
	FullRefresh        bool
}

func (m *Materializer) Render(target *Model, query string) (string, error) {
	mat := target.Materialization
	if mat.Type == MaterializationTypeNone {
		return query, nil
	}

	strategy := mat.Strategy
	if m.FullRefresh && mat.Type == MaterializationTypeTable {
		strategy = MaterializationStrategyCreateReplace
	}

	if matFunc, ok := m.MaterializationMap[mat.Type][strategy]; ok {
		return matFunc(target, query)
	}

	return "", fmt.Errorf("unsupported materialization type - strategy combination: (`%s` - `%s`)", mat.Type, mat.Strategy)
}
