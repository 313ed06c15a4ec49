// Package worker implements a bounded, back-pressured task executor.
package worker

import (
	"github.com/vzdtic/minispark/pkg/bus"
	"github.com/vzdtic/minispark/pkg/logging"
	"github.com/vzdtic/minispark/pkg/simerrors"
	"github.com/vzdtic/minispark/pkg/task"
)

const defaultMaxQueueSize = 16

// Config is the worker's enumerated configuration surface.
type Config struct {
	WorkerID          string
	Endpoint          bus.Endpoint
	SchedulerEndpoint bus.Endpoint
	NumCores          int // advisory; execution is single-threaded in simulation
	MaxQueueSize      int // default 16
}

// pendingTask pairs a task with the endpoint its result must be sent to.
type pendingTask struct {
	task           task.Task
	senderEndpoint bus.Endpoint
}

// Worker executes one partition at a time from a bounded FIFO queue,
// surfacing overload as a task failure rather than dropping work or
// growing the queue without bound.
type Worker struct {
	bus *bus.MessageBus
	log logging.Logger
	cfg Config

	queue       []pendingTask
	activeTasks int
}

// New constructs a Worker. Call Start to register it on the bus and
// announce it to the scheduler.
func New(messageBus *bus.MessageBus, cfg Config, log logging.Logger) *Worker {
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = defaultMaxQueueSize
	}
	log = log.With(logging.Fields{"component": "worker", "workerID": cfg.WorkerID, "endpoint": cfg.Endpoint.String()})
	return &Worker{bus: messageBus, log: log, cfg: cfg}
}

// Start registers the worker's handler and announces it to the
// scheduler via WorkerRegistration.
func (w *Worker) Start() {
	w.bus.Register(w.cfg.Endpoint, w.handle)
	w.bus.Send(bus.Message{
		Kind: bus.WorkerRegistration,
		Payload: bus.WorkerRegistrationPayload{
			WorkerID: w.cfg.WorkerID,
			Endpoint: w.cfg.Endpoint,
			NumCores: w.cfg.NumCores,
		},
	}, w.cfg.Endpoint, w.cfg.SchedulerEndpoint)
}

// Stop unregisters the worker's handler. Queued and active work is
// abandoned; there is no drain/grace-period in the simulated domain.
func (w *Worker) Stop() {
	w.bus.Unregister(w.cfg.Endpoint)
}

func (w *Worker) handle(env bus.Envelope) {
	if env.Message.Kind != bus.SubmitTask {
		w.log.With(logging.Fields{"kind": env.Message.Kind}).Warnf("unexpected message kind")
		return
	}
	payload := env.Message.Payload.(bus.SubmitTaskPayload)
	t := payload.TaskPayload.(task.Task)

	if w.Active()+w.Queued() >= w.cfg.MaxQueueSize {
		w.log.With(logging.Fields{"taskID": t.TaskID}).Warnf("overloaded, rejecting task")
		w.sendResult(t, env.Source, nil, simerrors.ErrWorkerOverloaded)
		return
	}

	w.queue = append(w.queue, pendingTask{task: t, senderEndpoint: env.Source})
	w.processQueue()
}

// processQueue runs one task at a time (single-slot, advisory NumCores
// notwithstanding — execution is single-threaded in simulation).
func (w *Worker) processQueue() {
	for w.activeTasks == 0 && len(w.queue) > 0 {
		next := w.queue[0]
		w.queue = w.queue[1:]
		w.activeTasks = 1

		partition := next.task.Resolve()
		result := next.task.Execute(partition)
		result.Then(func(value interface{}, err error) {
			w.sendResult(next.task, next.senderEndpoint, value, err)
			w.activeTasks = 0
			w.processQueue()
		})
	}
}

func (w *Worker) sendResult(t task.Task, destination bus.Endpoint, value interface{}, err error) {
	w.bus.Send(bus.Message{
		Kind: bus.TaskResult,
		Payload: bus.TaskResultPayload{
			TaskID:  t.TaskID,
			StageID: t.StageID,
			Result:  value,
			Error:   err,
		},
	}, w.cfg.Endpoint, destination)
}

// Active returns the number of tasks currently executing (0 or 1).
func (w *Worker) Active() int { return w.activeTasks }

// Queued returns the number of tasks waiting behind the active one.
func (w *Worker) Queued() int { return len(w.queue) }

// Max returns the worker's maximum queue size (active + queued).
func (w *Worker) Max() int { return w.cfg.MaxQueueSize }

// LoadPercent returns (active+queued)/max as a percentage.
func (w *Worker) LoadPercent() float64 {
	return float64(w.Active()+w.Queued()) / float64(w.Max()) * 100
}

// IsOverloaded reports whether the worker is at capacity.
func (w *Worker) IsOverloaded() bool {
	return w.Active()+w.Queued() >= w.Max()
}

// IsNearCapacity reports whether load exceeds 80%.
func (w *Worker) IsNearCapacity() bool {
	return w.LoadPercent() > 80
}
