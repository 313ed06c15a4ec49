// Package simerrors enumerates the error kinds of the simulator, following
// the sentinel-error style of raft.ErrNotLeader/ErrNodeNotFound but adding
// the wrapping pkg/errors gives so a StageFailure can carry its first cause.
package simerrors

import "github.com/pkg/errors"

// Sentinel error kinds. Compare with errors.Is: TaskFailure and
// StageFailure unwrap through Unwrap only, so errors.Cause does not see
// through them to the sentinel.
var (
	ErrNoWorkersAvailable = errors.New("no workers available")
	ErrWorkerOverloaded   = errors.New("worker overloaded")
	ErrUnknownTaskID      = errors.New("unknown task id")
	ErrCancelled          = errors.New("cancelled")
	ErrTimeout            = errors.New("run_until: tick budget exceeded")
)

// TaskFailure wraps the error a task's own body produced.
type TaskFailure struct {
	TaskID string
	Cause  error
}

func (e *TaskFailure) Error() string {
	return errors.Wrapf(e.Cause, "task %s failed", e.TaskID).Error()
}

func (e *TaskFailure) Unwrap() error { return e.Cause }

// NewTaskFailure wraps cause as a TaskFailure for the given task.
func NewTaskFailure(taskID string, cause error) *TaskFailure {
	return &TaskFailure{TaskID: taskID, Cause: cause}
}

// StageFailure is the error a stage's result promises reject with. When a
// task of the stage itself fails, TaskID and Cause name that task and its
// error; when a parent stage failed, TaskID is empty and Cause is the
// parent's first failure in partition order.
type StageFailure struct {
	StageID string
	TaskID  string
	Cause   error
}

func (e *StageFailure) Error() string {
	return errors.Wrapf(e.Cause, "stage %s failed on task %s", e.StageID, e.TaskID).Error()
}

func (e *StageFailure) Unwrap() error { return e.Cause }

// NewStageFailure builds a StageFailure wrapping cause for the given stage
// and task.
func NewStageFailure(stageID, taskID string, cause error) *StageFailure {
	return &StageFailure{StageID: stageID, TaskID: taskID, Cause: cause}
}
