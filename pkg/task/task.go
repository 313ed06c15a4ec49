// Package task defines the Partition and Task value types shared by
// pkg/dag (which constructs tasks), pkg/scheduler (which routes them),
// and pkg/worker (which executes them) — kept in their own package so
// none of those three needs to import another to share these types.
package task

import "github.com/vzdtic/minispark/pkg/promise"

// Partition is an opaque addressable unit of a dataset; its payload is
// produced lazily when a task executes it.
type Partition struct {
	Index           int
	PayloadProducer func() interface{}
}

// Synthetic returns a partition carrying only its index, with no
// payload producer — the fallback used when a worker is asked to
// resolve a partition_id out of range for the task's RDD.
func Synthetic(index int) Partition {
	return Partition{Index: index}
}

// Payload lazily produces the partition's content, or nil if this
// partition has no producer (a Synthetic fallback).
func (p Partition) Payload() interface{} {
	if p.PayloadProducer == nil {
		return nil
	}
	return p.PayloadProducer()
}

// Task is immutable after construction. ResolvePartition
// maps a partition_id to the concrete Partition to execute against
// (falling back to Synthetic when out of range); Execute runs the task
// body against the resolved partition.
type Task struct {
	TaskID           string
	StageID          string
	PartitionID      int
	ResolvePartition func(partitionID int) Partition
	Execute          func(partition Partition) *promise.Promise
}

// Resolve returns the partition this task should execute against.
func (t Task) Resolve() Partition {
	if t.ResolvePartition == nil {
		return Synthetic(t.PartitionID)
	}
	return t.ResolvePartition(t.PartitionID)
}
