package simrun_test

import (
	"fmt"

	"github.com/vzdtic/minispark/pkg/bus"
	"github.com/vzdtic/minispark/pkg/dag"
	"github.com/vzdtic/minispark/pkg/logging"
	"github.com/vzdtic/minispark/pkg/network"
	"github.com/vzdtic/minispark/pkg/scheduler"
	"github.com/vzdtic/minispark/pkg/simrun"
	"github.com/vzdtic/minispark/pkg/worker"
)

// Example wires a two-worker cluster and runs a single-stage job to
// completion, in place of the demo binary the teacher ships under cmd/.
func Example() {
	log := logging.Discard()
	net := network.New(network.Config{Seed: 1, MaxLatencyTicks: 2}, log)
	b := bus.NewMessageBus(net, log)
	runner := simrun.New(b)

	schedulerEP := bus.Endpoint{Host: "scheduler", Port: 0}
	sched := scheduler.New(b, schedulerEP, log)

	for i := 0; i < 2; i++ {
		ep := bus.Endpoint{Host: "worker", Port: i}
		worker.New(b, worker.Config{
			WorkerID:          ep.String(),
			Endpoint:          ep,
			SchedulerEndpoint: schedulerEP,
		}, log).Start()
	}
	runner.RunTicks(4) // let WorkerRegistration land before submitting work

	dagScheduler := dag.New(sched, log)
	rdd := dag.NewParallelCollectionRDD("numbers", []interface{}{1, 2, 3, 4}, 4)
	promises, err := dagScheduler.SubmitJob(rdd, 0)
	if err != nil {
		fmt.Println("submit failed:", err)
		return
	}

	_, err = runner.RunUntil(func() bool {
		for _, p := range promises {
			if !p.IsResolved() {
				return false
			}
		}
		return true
	}, 50)
	if err != nil {
		fmt.Println("job did not complete:", err)
		return
	}

	sum := 0
	for _, p := range promises {
		for _, v := range p.Value().([]interface{}) {
			sum += v.(int)
		}
	}
	fmt.Println(sum)
	// Output: 10
}
