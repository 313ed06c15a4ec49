// Package dag implements the DAGScheduler: it turns a MiniRDD dependency
// graph into a sequence of Stages, submits each stage's tasks through a
// TaskSubmitter, and chains stages so a Shuffle stage's tasks all
// complete before its dependents are submitted.
package dag

import (
	"fmt"

	"github.com/vzdtic/minispark/internal/idgen"
	"github.com/vzdtic/minispark/pkg/logging"
	"github.com/vzdtic/minispark/pkg/promise"
	"github.com/vzdtic/minispark/pkg/simerrors"
	"github.com/vzdtic/minispark/pkg/task"
)

// StageKind distinguishes an intermediate shuffle-producing stage from
// the final stage that yields a job's result.
type StageKind int

const (
	ShuffleStage StageKind = iota
	ResultStage
)

// Stage is one scheduling unit: every task in it runs the same RDD's
// Compute against a distinct partition, and no task in it is submitted
// until every task of every stage it depends on has completed.
type Stage struct {
	StageID string
	Kind    StageKind
	RDD     MiniRDD
	Parents []*Stage
}

// Job is the outward record of one SubmitJob call.
type Job struct {
	JobID string
	Stage *Stage // the job's final (result) stage
}

// TaskSubmitter is the DAGScheduler's only dependency on a dispatcher —
// satisfied structurally by *scheduler.TaskScheduler without importing
// pkg/scheduler, which would otherwise cycle back through pkg/dag if
// the scheduler ever needed to enumerate a job's stages.
type TaskSubmitter interface {
	Submit(tasks []task.Task) []*promise.Promise
}

// DAGScheduler builds and drives the stage graph for submitted jobs.
type DAGScheduler struct {
	submitter TaskSubmitter
	log       logging.Logger

	jobIDs   *idgen.Counter
	stageIDs *idgen.Counter
	taskIDs  *idgen.Counter

	// stageCache de-duplicates stages by RDD identity: a shuffle-producing
	// RDD referenced by more than one dependent gets exactly one stage,
	// not one per dependent.
	stageCache map[string]*Stage

	// runCache de-duplicates runStage invocations by stage id: a Stage
	// reached via stageCache from two different dependents must still be
	// submitted exactly once, with every caller sharing the same promises.
	runCache map[string][]*promise.Promise
}

// New creates a DAGScheduler that dispatches through submitter.
func New(submitter TaskSubmitter, log logging.Logger) *DAGScheduler {
	return &DAGScheduler{
		submitter:  submitter,
		log:        log.With(logging.Fields{"component": "dag"}),
		jobIDs:     idgen.NewCounter(0),
		stageIDs:   idgen.NewCounter(0),
		taskIDs:    idgen.NewCounter(0),
		stageCache: make(map[string]*Stage),
		runCache:   make(map[string][]*promise.Promise),
	}
}

// SubmitJob builds the stage graph rooted at rootRDD and submits its
// leaf-most pending stages immediately, chaining the rest to follow as
// their parents complete. numPartitions overrides the root stage's task
// count; pass 0 to use len(rootRDD.Partitions()).
//
// It returns one promise per partition of the root stage's RDD, in
// partition-index order, resolving once that partition's result task
// completes (result tasks only — shuffle-stage completion is internal
// bookkeeping, not observable through the returned promises).
func (d *DAGScheduler) SubmitJob(rootRDD MiniRDD, numPartitions int) ([]*promise.Promise, error) {
	if rootRDD == nil {
		return nil, fmt.Errorf("dag: SubmitJob requires a non-nil root RDD")
	}

	jobID := fmt.Sprintf("job-%d", d.jobIDs.Next())
	resultStage := d.buildStage(rootRDD, ResultStage)

	job := &Job{JobID: jobID, Stage: resultStage}
	d.log.With(logging.Fields{
		"job":          job.JobID,
		"stage":        resultStage.StageID,
		"parentStages": len(resultStage.Parents),
	}).Infof("job submitted")

	partitions := rootRDD.Partitions()
	if numPartitions > 0 && numPartitions != len(partitions) {
		// Caller asked for a different partition count than the RDD
		// natively exposes; synthesize task-only partitions beyond what
		// the RDD provides.
		resized := make([]task.Partition, numPartitions)
		for i := range resized {
			if i < len(partitions) {
				resized[i] = partitions[i]
			} else {
				resized[i] = task.Synthetic(i)
			}
		}
		partitions = resized
	}

	return d.runStage(resultStage, partitions), nil
}

// buildStage recursively constructs the stage graph for rdd, inserting
// a stage boundary at every ShuffleDependency and reusing a cached
// stage when the same RDD is reached through more than one path.
func (d *DAGScheduler) buildStage(rdd MiniRDD, kind StageKind) *Stage {
	if cached, ok := d.stageCache[rdd.ID()]; ok {
		return cached
	}

	var parents []*Stage
	for _, dep := range rdd.Dependencies() {
		if dep.Kind == ShuffleDependency {
			parents = append(parents, d.buildStage(dep.Parent, ShuffleStage))
		}
	}

	stage := &Stage{
		StageID: fmt.Sprintf("stage-%d", d.stageIDs.Next()),
		Kind:    kind,
		RDD:     rdd,
		Parents: parents,
	}
	d.stageCache[rdd.ID()] = stage
	return stage
}

// runStage returns one promise per partition immediately, but only
// actually submits stage's tasks to the TaskSubmitter once every parent
// stage's tasks have resolved — readiness is driven entirely by promise
// continuations, which fire when the parents' TaskResults are delivered
// during a tick, so a child stage's SubmitTask traffic can never be sent
// before its parents' TaskResults have arrived.
func (d *DAGScheduler) runStage(stage *Stage, partitions []task.Partition) []*promise.Promise {
	if cached, ok := d.runCache[stage.StageID]; ok {
		return cached
	}

	resultPromises := make([]*promise.Promise, len(partitions))
	for i := range resultPromises {
		resultPromises[i] = promise.New()
	}
	d.runCache[stage.StageID] = resultPromises

	submit := func() {
		tasks := d.buildTasks(stage, partitions)
		dispatched := d.submitter.Submit(tasks)
		for i, p := range dispatched {
			i, taskID := i, tasks[i].TaskID
			p.Then(func(value interface{}, err error) {
				if err != nil {
					resultPromises[i].Reject(simerrors.NewStageFailure(stage.StageID, taskID, err))
				} else {
					resultPromises[i].Resolve(value)
				}
			})
		}
	}

	if len(stage.Parents) == 0 {
		submit()
		return resultPromises
	}

	var parentPromises []*promise.Promise
	for _, parent := range stage.Parents {
		parentPromises = append(parentPromises, d.runStage(parent, parent.RDD.Partitions())...)
	}
	promise.All(parentPromises).Then(func(value interface{}, err error) {
		if err != nil {
			failure := simerrors.NewStageFailure(stage.StageID, "", err)
			d.log.With(logging.Fields{"stage": stage.StageID}).Warnf("parent stage failed, not submitting: %v", failure)
			for _, rp := range resultPromises {
				rp.Reject(failure)
			}
			return
		}
		submit()
	})

	return resultPromises
}

// buildTasks constructs one task per partition of stage's RDD, resolving
// out-of-range partition ids to a synthetic partition.
func (d *DAGScheduler) buildTasks(stage *Stage, partitions []task.Partition) []task.Task {
	tasks := make([]task.Task, len(partitions))
	rdd := stage.RDD
	stageID := stage.StageID
	for i, p := range partitions {
		taskID := fmt.Sprintf("task-%d", d.taskIDs.Next())
		tasks[i] = task.Task{
			TaskID:      taskID,
			StageID:     stageID,
			PartitionID: p.Index,
			ResolvePartition: func(partitionID int) task.Partition {
				for _, candidate := range rdd.Partitions() {
					if candidate.Index == partitionID {
						return candidate
					}
				}
				return task.Synthetic(partitionID)
			},
			Execute: func(partition task.Partition) *promise.Promise {
				return rdd.Compute(partition)
			},
		}
	}
	return tasks
}
