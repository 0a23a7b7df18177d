package executor

import (
	"context"

	"github.com/jean/dbt/pkg/scheduler"
)

// Operator executes a single model instance, the runner package provides the
// real implementation.
type Operator interface {
	Run(ctx context.Context, instance *scheduler.ModelInstance) error
}

type contextKey int

const (
	KeyPrinter contextKey = iota
	ContextLogger
)

type Sequential struct {
	Operator Operator
}

func (s Sequential) RunSingleModel(ctx context.Context, instance *scheduler.ModelInstance) error {
	return s.Operator.Run(ctx, instance)
}

// NoOpOperator is used in dry runs and tests.
type NoOpOperator struct{}

func (NoOpOperator) Run(ctx context.Context, instance *scheduler.ModelInstance) error {
	return nil
}
