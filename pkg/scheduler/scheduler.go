package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jean/dbt/pkg/logger"
	"github.com/jean/dbt/pkg/model"
)

type ModelInstanceStatus int

const (
	Pending ModelInstanceStatus = iota
	Queued
	Running
	Failed
	UpstreamFailed
	Succeeded
	Skipped
)

func (s ModelInstanceStatus) String() string {
	switch s {
	case Pending:
		return "pending"
	case Queued:
		return "queued"
	case Running:
		return "running"
	case Failed:
		return "failed"
	case UpstreamFailed:
		return "upstream_failed"
	case Succeeded:
		return "succeeded"
	case Skipped:
		return "skipped"
	}
	return "unknown"
}

// ModelInstance is one schedulable unit of work, a single model within the run.
type ModelInstance struct {
	ID      string
	HumanID string
	Project *model.Project
	Model   *model.Model

	status     ModelInstanceStatus
	upstream   []*ModelInstance
	downstream []*ModelInstance
}

func (t *ModelInstance) GetHumanID() string {
	return t.HumanID
}

func (t *ModelInstance) GetStatus() ModelInstanceStatus {
	return t.status
}

func (t *ModelInstance) Completed() bool {
	return t.status == Failed || t.status == Succeeded || t.status == UpstreamFailed || t.status == Skipped
}

func (t *ModelInstance) MarkAs(status ModelInstanceStatus) {
	t.status = status
}

func (t *ModelInstance) GetUpstream() []*ModelInstance {
	return t.upstream
}

func (t *ModelInstance) GetDownstream() []*ModelInstance {
	return t.downstream
}

func (t *ModelInstance) AddUpstream(other *ModelInstance) {
	t.upstream = append(t.upstream, other)
}

func (t *ModelInstance) AddDownstream(other *ModelInstance) {
	t.downstream = append(t.downstream, other)
}

// ModelExecutionResult mirrors what one run of a model produced, including how
// long the execution took.
type ModelExecutionResult struct {
	Instance      *ModelInstance
	Error         error
	ExecutionTime time.Duration
}

type Scheduler struct {
	logger         logger.Logger
	project        *model.Project
	modelInstances []*ModelInstance
	nameMap        map[string]*ModelInstance

	modelScheduleLock sync.Mutex

	WorkQueue chan *ModelInstance
	Results   chan *ModelExecutionResult
}

func NewScheduler(log logger.Logger, p *model.Project) *Scheduler {
	instances := make([]*ModelInstance, 0, len(p.Models))
	for _, m := range p.Models {
		instances = append(instances, &ModelInstance{
			ID:         uuid.New().String(),
			HumanID:    m.FQN(),
			Project:    p,
			Model:      m,
			status:     Pending,
			upstream:   make([]*ModelInstance, 0),
			downstream: make([]*ModelInstance, 0),
		})
	}

	s := &Scheduler{
		logger:         log,
		project:        p,
		modelInstances: instances,
		WorkQueue:      make(chan *ModelInstance, 100),
		Results:        make(chan *ModelExecutionResult),
	}
	s.initialize()

	return s
}

func (s *Scheduler) initialize() {
	s.nameMap = make(map[string]*ModelInstance, len(s.modelInstances))
	for _, instance := range s.modelInstances {
		s.nameMap[instance.Model.Name] = instance
	}

	for _, instance := range s.modelInstances {
		for _, dep := range instance.Model.DependsOn {
			upstream, ok := s.nameMap[dep]
			if !ok {
				continue
			}

			instance.AddUpstream(upstream)
			upstream.AddDownstream(instance)
		}
	}
}

func (s *Scheduler) InstanceCount() int {
	return len(s.modelInstances)
}

// MarkModel flips the status of a single model, optionally cascading to its
// downstream models. Used to implement partial runs.
func (s *Scheduler) MarkModel(name string, status ModelInstanceStatus, downstream bool) {
	instance, ok := s.nameMap[name]
	if !ok {
		return
	}

	s.markInstance(instance, status, downstream)
}

// MarkAll flips the status of every model in the run.
func (s *Scheduler) MarkAll(status ModelInstanceStatus) {
	for _, instance := range s.modelInstances {
		instance.MarkAs(status)
	}
}

func (s *Scheduler) markInstance(instance *ModelInstance, status ModelInstanceStatus, downstream bool) {
	instance.MarkAs(status)
	if !downstream {
		return
	}

	for _, d := range instance.GetDownstream() {
		s.markInstance(d, status, downstream)
	}
}

func (s *Scheduler) markInstanceFailedWithDownstream(instance *ModelInstance) {
	s.markIfNotSkipped(instance, UpstreamFailed, true)
	s.markIfNotSkipped(instance, Failed, false)
}

func (s *Scheduler) markIfNotSkipped(instance *ModelInstance, status ModelInstanceStatus, downstream bool) {
	if instance.GetStatus() == Skipped {
		return
	}
	instance.MarkAs(status)
	if !downstream {
		return
	}

	for _, d := range instance.GetDownstream() {
		s.markIfNotSkipped(d, status, downstream)
	}
}

func (s *Scheduler) GetInstancesByStatus(status ModelInstanceStatus) []*ModelInstance {
	instances := make([]*ModelInstance, 0)
	for _, i := range s.modelInstances {
		if i.GetStatus() != status {
			continue
		}

		instances = append(instances, i)
	}

	return instances
}

func (s *Scheduler) Run(ctx context.Context) []*ModelExecutionResult {
	results := make([]*ModelExecutionResult, 0)
	if len(s.GetInstancesByStatus(Pending)) == 0 {
		s.logger.Debug("no models to run, finishing the scheduler loop")
		return s.appendUnexecutedResults(results)
	}

	go s.Kickstart()

	s.logger.Debug("started the scheduler loop")
	for {
		select {
		case <-ctx.Done():
			close(s.WorkQueue)
			return s.appendUnexecutedResults(results)
		case result := <-s.Results:
			s.logger.Debug("received model result: ", result.Instance.Model.Name)
			results = append(results, result)
			finished := s.Tick(result)
			if finished {
				s.logger.Debug("run has completed, finishing the scheduler loop")
				return s.appendUnexecutedResults(results)
			}
		}
	}
}

// appendUnexecutedResults adds a zero-duration result for every instance that
// never entered the work queue, so that skipped and upstream-failed models
// still show up in the run summary, the state file and tracking.
func (s *Scheduler) appendUnexecutedResults(results []*ModelExecutionResult) []*ModelExecutionResult {
	executed := make(map[*ModelInstance]bool, len(results))
	for _, result := range results {
		executed[result.Instance] = true
	}

	for _, instance := range s.modelInstances {
		if executed[instance] {
			continue
		}

		status := instance.GetStatus()
		if status != Skipped && status != UpstreamFailed {
			continue
		}

		results = append(results, &ModelExecutionResult{Instance: instance})
	}

	return results
}

// Tick marks an iteration of the scheduler loop. It is called when a result is
// received, and it queues every model whose dependencies have completed.
func (s *Scheduler) Tick(result *ModelExecutionResult) bool {
	s.modelScheduleLock.Lock()
	defer s.modelScheduleLock.Unlock()

	if result.Instance.GetStatus() != Skipped {
		result.Instance.MarkAs(Succeeded)
	}
	if result.Error != nil {
		s.markInstanceFailedWithDownstream(result.Instance)
	}

	if s.hasRunFinished() {
		close(s.WorkQueue)
		return true
	}

	for _, instance := range s.getScheduleableInstances() {
		instance.MarkAs(Queued)
		s.WorkQueue <- instance
	}

	return false
}

// Kickstart initiates the scheduler loop with a synthetic completed result.
func (s *Scheduler) Kickstart() {
	s.Tick(&ModelExecutionResult{
		Instance: &ModelInstance{
			Model:  &model.Model{Name: "start"},
			status: Succeeded,
		},
	})
}

func (s *Scheduler) getScheduleableInstances() []*ModelInstance {
	instances := make([]*ModelInstance, 0)
	for _, instance := range s.modelInstances {
		if instance.GetStatus() != Pending {
			continue
		}

		if !s.allDependenciesCompletedFor(instance) {
			continue
		}

		instances = append(instances, instance)
	}

	return instances
}

func (s *Scheduler) allDependenciesCompletedFor(t *ModelInstance) bool {
	for _, upstream := range t.GetUpstream() {
		status := upstream.GetStatus()
		if status == Pending || status == Queued || status == Running {
			return false
		}
	}

	return true
}

func (s *Scheduler) hasRunFinished() bool {
	for _, instance := range s.modelInstances {
		if !instance.Completed() {
			return false
		}
	}

	return true
}
