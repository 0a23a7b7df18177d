package executor

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/jean/dbt/pkg/logger"
	"github.com/jean/dbt/pkg/model"
	"github.com/jean/dbt/pkg/scheduler"
)

var (
	colors = []color.Attribute{
		color.FgBlue,
		color.FgMagenta,
		color.FgCyan,
		color.FgWhite,
		color.FgHiMagenta,
		color.FgHiBlue,
		color.FgHiCyan,
	}
	faint = color.New(color.Faint).SprintFunc()
)

const timeFormat = "2006-01-02 15:04:05"

type Concurrent struct {
	workerCount int
	workers     []*worker
}

func NewConcurrent(log logger.Logger, operator Operator, workerCount int) *Concurrent {
	executor := &Sequential{
		Operator: operator,
	}

	var printLock sync.Mutex

	workers := make([]*worker, workerCount)
	for i := range workerCount {
		workers[i] = &worker{
			id:        fmt.Sprintf("worker-%d", i),
			executor:  executor,
			logger:    log,
			printer:   color.New(colors[i%len(colors)]),
			printLock: &printLock,
		}
	}

	return &Concurrent{
		workerCount: workerCount,
		workers:     workers,
	}
}

func (c Concurrent) Start(ctx context.Context, input chan *scheduler.ModelInstance, result chan<- *scheduler.ModelExecutionResult) {
	for i := range c.workerCount {
		go c.workers[i].run(ctx, input, result)
	}
}

type worker struct {
	id        string
	executor  *Sequential
	logger    logger.Logger
	printer   *color.Color
	printLock *sync.Mutex
}

func (w worker) run(ctx context.Context, modelChannel <-chan *scheduler.ModelInstance, results chan<- *scheduler.ModelExecutionResult) {
	for instance := range modelChannel {
		w.printLock.Lock()
		w.printer.Printf("[%s] Running: %s\n", time.Now().Format(timeFormat), instance.GetHumanID())
		w.printLock.Unlock()

		start := time.Now()

		printer := &workerWriter{
			w:           os.Stdout,
			model:       instance.Model,
			sprintfFunc: w.printer.SprintfFunc(),
			worker:      w.id,
		}

		executionCtx := context.WithValue(ctx, KeyPrinter, printer)
		executionCtx = context.WithValue(executionCtx, ContextLogger, w.logger)
		err := w.executor.RunSingleModel(executionCtx, instance)

		duration := time.Since(start)
		durationString := fmt.Sprintf("(%s)", duration.Truncate(time.Millisecond).String())
		w.printLock.Lock()

		res := "Finished"
		if err != nil {
			res = "Failed"
		}

		w.printer.Printf("[%s] %s: %s %s\n", time.Now().Format(timeFormat), res, instance.GetHumanID(), faint(durationString))
		w.printLock.Unlock()

		results <- &scheduler.ModelExecutionResult{
			Instance:      instance,
			Error:         err,
			ExecutionTime: duration,
		}
	}
}

type workerWriter struct {
	w           io.Writer
	model       *model.Model
	sprintfFunc func(format string, a ...interface{}) string
	worker      string
}

func (w *workerWriter) Write(p []byte) (int, error) {
	formatted := w.sprintfFunc("[%s] [%s] %s", time.Now().Format(timeFormat), w.model.Name, string(p))

	n, err := w.w.Write([]byte(formatted))
	if err != nil {
		return n, err
	}
	if n != len(formatted) {
		return n, io.ErrShortWrite
	}
	return len(p), nil
}
