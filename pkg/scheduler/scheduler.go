// Package scheduler implements TaskScheduler: a worker registry and
// round-robin task dispatcher.
package scheduler

import (
	"github.com/vzdtic/minispark/pkg/bus"
	"github.com/vzdtic/minispark/pkg/logging"
	"github.com/vzdtic/minispark/pkg/promise"
	"github.com/vzdtic/minispark/pkg/simerrors"
	"github.com/vzdtic/minispark/pkg/task"
)

// WorkerRecord is the task scheduler's bookkeeping for a registered
// worker.
type WorkerRecord struct {
	WorkerID      string
	Endpoint      bus.Endpoint
	NumCores      int
	TasksAssigned uint64
}

// TaskScheduler assigns tasks round-robin across registered workers and
// correlates TaskResult messages back to the promise each Submit call
// returned.
type TaskScheduler struct {
	bus  *bus.MessageBus
	log  logging.Logger
	self bus.Endpoint

	workerOrder []string
	workers     map[string]*WorkerRecord
	nextWorker  int

	pendingOrder []string
	pending      map[string]*promise.Promise

	// OnTaskResult, if set, is invoked after a result is correlated and
	// resolved — the injection point for a caller-supplied retry policy.
	// This core deliberately does not implement an auto-retry policy of
	// its own; see DESIGN.md.
	OnTaskResult func(taskID string, resolved *promise.Promise)
}

// New creates a TaskScheduler bound to self, the endpoint SubmitTask
// messages are sent from and TaskResult messages are received at.
func New(messageBus *bus.MessageBus, self bus.Endpoint, log logging.Logger) *TaskScheduler {
	s := &TaskScheduler{
		bus:     messageBus,
		log:     log.With(logging.Fields{"component": "scheduler", "endpoint": self.String()}),
		self:    self,
		workers: make(map[string]*WorkerRecord),
		pending: make(map[string]*promise.Promise),
	}
	messageBus.Register(self, s.handle)
	return s
}

func (s *TaskScheduler) handle(env bus.Envelope) {
	switch env.Message.Kind {
	case bus.WorkerRegistration:
		payload := env.Message.Payload.(bus.WorkerRegistrationPayload)
		s.registerWorker(payload)
	case bus.TaskResult:
		payload := env.Message.Payload.(bus.TaskResultPayload)
		s.completeTask(payload)
	default:
		s.log.With(logging.Fields{"kind": env.Message.Kind}).Warnf("unexpected message kind")
	}
}

func (s *TaskScheduler) registerWorker(payload bus.WorkerRegistrationPayload) {
	if _, exists := s.workers[payload.WorkerID]; exists {
		return
	}
	s.workers[payload.WorkerID] = &WorkerRecord{
		WorkerID: payload.WorkerID,
		Endpoint: payload.Endpoint,
		NumCores: payload.NumCores,
	}
	s.workerOrder = append(s.workerOrder, payload.WorkerID)
	s.log.With(logging.Fields{
		"workerID": payload.WorkerID,
		"endpoint": payload.Endpoint.String(),
		"cores":    payload.NumCores,
	}).Infof("worker registered")
}

// Workers returns the currently registered workers in registration order.
func (s *TaskScheduler) Workers() []*WorkerRecord {
	out := make([]*WorkerRecord, 0, len(s.workerOrder))
	for _, id := range s.workerOrder {
		out = append(out, s.workers[id])
	}
	return out
}

// RemoveWorker deletes a worker's record. Tasks already assigned to it
// are not automatically retried — that's left as an extension point,
// not core behavior.
func (s *TaskScheduler) RemoveWorker(workerID string) {
	if _, exists := s.workers[workerID]; !exists {
		return
	}
	delete(s.workers, workerID)
	for i, id := range s.workerOrder {
		if id == workerID {
			s.workerOrder = append(s.workerOrder[:i], s.workerOrder[i+1:]...)
			break
		}
	}
}

// Submit assigns tasks round-robin across the current worker set, in
// registration order, and returns one promise per task (in task order).
// If no workers are registered, every returned promise is rejected with
// NoWorkersAvailable.
func (s *TaskScheduler) Submit(tasks []task.Task) []*promise.Promise {
	promises := make([]*promise.Promise, len(tasks))

	if len(s.workerOrder) == 0 {
		for i, t := range tasks {
			p := promise.New()
			p.Reject(simerrors.NewTaskFailure(t.TaskID, simerrors.ErrNoWorkersAvailable))
			promises[i] = p
		}
		return promises
	}

	for i, t := range tasks {
		p := promise.New()
		promises[i] = p
		s.pending[t.TaskID] = p
		s.pendingOrder = append(s.pendingOrder, t.TaskID)

		worker := s.workers[s.workerOrder[s.nextWorker]]
		s.nextWorker = (s.nextWorker + 1) % len(s.workerOrder)
		worker.TasksAssigned++

		s.bus.Send(bus.Message{
			Kind: bus.SubmitTask,
			Payload: bus.SubmitTaskPayload{
				TaskID:      t.TaskID,
				StageID:     t.StageID,
				PartitionID: t.PartitionID,
				TaskPayload: t,
			},
		}, s.self, worker.Endpoint)
	}

	return promises
}

func (s *TaskScheduler) completeTask(payload bus.TaskResultPayload) {
	p, ok := s.pending[payload.TaskID]
	if !ok {
		s.log.With(logging.Fields{"taskID": payload.TaskID}).Warnf("result for unknown task (duplicate or already resolved)")
		return
	}
	if p.IsResolved() {
		// The promise was settled outside the scheduler (e.g. cancelled by
		// its caller) before this result arrived: a late result, logged at
		// warn and otherwise ignored.
		s.log.With(logging.Fields{"taskID": payload.TaskID}).Warnf("late result for already-settled task")
		return
	}

	delete(s.pending, payload.TaskID)
	for i, id := range s.pendingOrder {
		if id == payload.TaskID {
			s.pendingOrder = append(s.pendingOrder[:i], s.pendingOrder[i+1:]...)
			break
		}
	}

	if payload.Error != nil {
		p.Reject(simerrors.NewTaskFailure(payload.TaskID, payload.Error))
	} else {
		p.Resolve(payload.Result)
	}

	if s.OnTaskResult != nil {
		s.OnTaskResult(payload.TaskID, p)
	}
}
