package dag

import (
	"github.com/vzdtic/minispark/pkg/bus"
	"github.com/vzdtic/minispark/pkg/promise"
	"github.com/vzdtic/minispark/pkg/task"
)

// DependencyKind distinguishes a narrow (one-to-one, same-stage) parent
// from a shuffle (all-to-all, stage-boundary) parent.
type DependencyKind int

const (
	NarrowDependency DependencyKind = iota
	ShuffleDependency
)

// Dependency names an RDD's parent and how it depends on it.
type Dependency struct {
	Kind   DependencyKind
	Parent MiniRDD
}

// MiniRDD is the thin outbound contract of a dataset node: enough surface
// for the DAGScheduler to build stages and tasks against it, without
// taking on the transformation algebra (map, filter, reduceByKey, ...)
// that a real RDD hierarchy would need — that algebra is out of scope
// here.
type MiniRDD interface {
	ID() string
	Partitions() []task.Partition
	Compute(partition task.Partition) *promise.Promise
	Dependencies() []Dependency
	PreferredLocations(partition task.Partition) []bus.Endpoint
}

// ParallelCollectionRDD wraps a static, pre-sliced in-memory collection.
// It has no dependencies and its Compute simply resolves the partition's
// own payload — the leaf node of every job submitted in this simulation.
type ParallelCollectionRDD struct {
	id    string
	slice [][]interface{}
}

// NewParallelCollectionRDD distributes data round-robin across
// numPartitions partitions: element i goes to partition i % numPartitions,
// so partition sizes differ by at most one and each partition keeps the
// input's relative order.
func NewParallelCollectionRDD(id string, data []interface{}, numPartitions int) *ParallelCollectionRDD {
	if numPartitions <= 0 {
		numPartitions = 1
	}
	slice := make([][]interface{}, numPartitions)
	for i, v := range data {
		idx := i % numPartitions
		slice[idx] = append(slice[idx], v)
	}
	return &ParallelCollectionRDD{id: id, slice: slice}
}

func (r *ParallelCollectionRDD) ID() string { return r.id }

func (r *ParallelCollectionRDD) Partitions() []task.Partition {
	out := make([]task.Partition, len(r.slice))
	for i := range r.slice {
		i := i
		out[i] = task.Partition{
			Index: i,
			PayloadProducer: func() interface{} {
				return r.slice[i]
			},
		}
	}
	return out
}

func (r *ParallelCollectionRDD) Compute(partition task.Partition) *promise.Promise {
	return promise.Resolved(partition.Payload())
}

func (r *ParallelCollectionRDD) Dependencies() []Dependency { return nil }

func (r *ParallelCollectionRDD) PreferredLocations(task.Partition) []bus.Endpoint { return nil }

// ShuffledRDD wraps a parent RDD behind a shuffle boundary: its
// partitioning is independent of the parent's, and consuming it forces
// a new stage, since a stage boundary is introduced at every
// ShuffleDependency. Compute here is a placeholder pass-through —
// an actual shuffle-read/combine implementation belongs to the RDD
// transformation algebra this module does not implement.
type ShuffledRDD struct {
	id            string
	parent        MiniRDD
	numPartitions int
}

func NewShuffledRDD(id string, parent MiniRDD, numPartitions int) *ShuffledRDD {
	if numPartitions <= 0 {
		numPartitions = len(parent.Partitions())
	}
	return &ShuffledRDD{id: id, parent: parent, numPartitions: numPartitions}
}

func (r *ShuffledRDD) ID() string { return r.id }

func (r *ShuffledRDD) Partitions() []task.Partition {
	out := make([]task.Partition, r.numPartitions)
	for i := range out {
		out[i] = task.Partition{Index: i}
	}
	return out
}

func (r *ShuffledRDD) Compute(partition task.Partition) *promise.Promise {
	return promise.Resolved(partition.Payload())
}

func (r *ShuffledRDD) Dependencies() []Dependency {
	return []Dependency{{Kind: ShuffleDependency, Parent: r.parent}}
}

func (r *ShuffledRDD) PreferredLocations(task.Partition) []bus.Endpoint { return nil }
