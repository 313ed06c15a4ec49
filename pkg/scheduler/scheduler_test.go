package scheduler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vzdtic/minispark/pkg/bus"
	"github.com/vzdtic/minispark/pkg/logging"
	"github.com/vzdtic/minispark/pkg/network"
	"github.com/vzdtic/minispark/pkg/promise"
	"github.com/vzdtic/minispark/pkg/scheduler"
	"github.com/vzdtic/minispark/pkg/simrun"
	"github.com/vzdtic/minispark/pkg/task"
)

func newHarness(cfg network.Config) (*bus.MessageBus, *simrun.SimulationRunner) {
	net := network.New(cfg, logging.Discard())
	b := bus.NewMessageBus(net, logging.Discard())
	return b, simrun.New(b)
}

func TestSubmitWithNoWorkersRejectsEveryPromise(t *testing.T) {
	b, _ := newHarness(network.Config{Seed: 1})
	self := bus.Endpoint{Host: "scheduler", Port: 0}
	s := scheduler.New(b, self, logging.Discard())

	promises := s.Submit([]task.Task{{TaskID: "t1"}, {TaskID: "t2"}})

	require.Len(t, promises, 2)
	for _, p := range promises {
		assert.True(t, p.IsRejected())
	}
}

func TestRoundRobinAssignsAcrossThreeWorkers(t *testing.T) {
	b, runner := newHarness(network.Config{Seed: 2})
	self := bus.Endpoint{Host: "scheduler", Port: 0}
	s := scheduler.New(b, self, logging.Discard())

	workerEndpoints := []bus.Endpoint{
		{Host: "w0", Port: 1}, {Host: "w1", Port: 1}, {Host: "w2", Port: 1},
	}
	assignedTo := make(map[string]bus.Endpoint)
	for _, ep := range workerEndpoints {
		ep := ep
		b.Register(ep, func(env bus.Envelope) {
			p := env.Message.Payload.(bus.SubmitTaskPayload)
			assignedTo[p.TaskID] = ep
			b.Send(bus.Message{Kind: bus.TaskResult, Payload: bus.TaskResultPayload{TaskID: p.TaskID, Result: "ok"}}, ep, env.Source)
		})
		b.Send(bus.Message{Kind: bus.WorkerRegistration, Payload: bus.WorkerRegistrationPayload{WorkerID: ep.Host, Endpoint: ep, NumCores: 1}}, ep, self)
	}
	runner.RunTicks(2)
	require.Len(t, s.Workers(), 3)

	tasks := make([]task.Task, 6)
	for i := range tasks {
		tasks[i] = task.Task{TaskID: string(rune('a' + i))}
	}
	promises := s.Submit(tasks)
	runner.RunTicks(4)

	for _, p := range promises {
		assert.True(t, p.IsResolved())
	}
	assert.Equal(t, workerEndpoints[0], assignedTo["a"])
	assert.Equal(t, workerEndpoints[1], assignedTo["b"])
	assert.Equal(t, workerEndpoints[2], assignedTo["c"])
	assert.Equal(t, workerEndpoints[0], assignedTo["d"])
}

func TestDuplicateTaskResultIsIdempotent(t *testing.T) {
	b, runner := newHarness(network.Config{Seed: 3})
	self := bus.Endpoint{Host: "scheduler", Port: 0}
	workerEP := bus.Endpoint{Host: "w0", Port: 1}
	s := scheduler.New(b, self, logging.Discard())

	b.Register(workerEP, func(env bus.Envelope) {
		p := env.Message.Payload.(bus.SubmitTaskPayload)
		// Send two results for the same task, simulating a retried delivery.
		b.Send(bus.Message{Kind: bus.TaskResult, Payload: bus.TaskResultPayload{TaskID: p.TaskID, Result: "first"}}, workerEP, env.Source)
		b.Send(bus.Message{Kind: bus.TaskResult, Payload: bus.TaskResultPayload{TaskID: p.TaskID, Result: "second"}}, workerEP, env.Source)
	})
	b.Send(bus.Message{Kind: bus.WorkerRegistration, Payload: bus.WorkerRegistrationPayload{WorkerID: "w0", Endpoint: workerEP, NumCores: 1}}, workerEP, self)
	runner.RunTicks(2)

	promises := s.Submit([]task.Task{{TaskID: "only"}})
	runner.RunTicks(4)

	require.True(t, promises[0].IsResolved())
	assert.Equal(t, "first", promises[0].Value(), "second result for an already-resolved task must be ignored")
}

func TestOnTaskResultHookFiresAfterCorrelation(t *testing.T) {
	b, runner := newHarness(network.Config{Seed: 4})
	self := bus.Endpoint{Host: "scheduler", Port: 0}
	workerEP := bus.Endpoint{Host: "w0", Port: 1}
	s := scheduler.New(b, self, logging.Discard())

	var hookTaskID string
	var hookPromise *promise.Promise
	s.OnTaskResult = func(taskID string, resolved *promise.Promise) {
		hookTaskID = taskID
		hookPromise = resolved
	}

	b.Register(workerEP, func(env bus.Envelope) {
		p := env.Message.Payload.(bus.SubmitTaskPayload)
		b.Send(bus.Message{Kind: bus.TaskResult, Payload: bus.TaskResultPayload{TaskID: p.TaskID, Result: 7}}, workerEP, env.Source)
	})
	b.Send(bus.Message{Kind: bus.WorkerRegistration, Payload: bus.WorkerRegistrationPayload{WorkerID: "w0", Endpoint: workerEP, NumCores: 1}}, workerEP, self)
	runner.RunTicks(2)

	s.Submit([]task.Task{{TaskID: "hooked"}})
	runner.RunTicks(4)

	assert.Equal(t, "hooked", hookTaskID)
	require.NotNil(t, hookPromise)
	assert.Equal(t, 7, hookPromise.Value())
}
