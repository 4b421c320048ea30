// Package runtime defines the contract shared by the pipeline runner and the
// individual stages, keeping business logic decoupled from artifact I/O.
package runtime

import (
	"context"
	"fmt"

	"github.com/polisai/bordereaux/pkg/domain"
	"github.com/polisai/bordereaux/pkg/table"
)

// Outcome classifies how a stage invocation ended.
type Outcome string

const (
	// OutcomeSuccess indicates the stage partitioned its input and wrote its outputs.
	OutcomeSuccess Outcome = "success"
	// OutcomeStructuralFailure indicates a precondition failed before any row was processed.
	OutcomeStructuralFailure Outcome = "structural_failure"
	// OutcomePartitionViolation indicates the stage lost or duplicated rows.
	OutcomePartitionViolation Outcome = "partition_violation"
)

// Input is everything a stage may read. Stages must treat it as read-only.
type Input struct {
	// Tables holds the primary input. Most stages take exactly one table;
	// normalization takes one per source file.
	Tables []*table.Table
	// References holds the reference tables that were found. An absent key
	// means the reference file does not exist.
	References map[string]*table.Table
	Run        domain.RunContext
}

// Primary returns the first input table, or nil.
func (in Input) Primary() *table.Table {
	if len(in.Tables) == 0 {
		return nil
	}
	return in.Tables[0]
}

// Reference returns the named reference table and whether it was supplied.
func (in Input) Reference(name string) (*table.Table, bool) {
	t, ok := in.References[name]
	return t, ok && t != nil
}

// Rows counts rows across all input tables.
func (in Input) Rows() int {
	n := 0
	for _, t := range in.Tables {
		n += t.Len()
	}
	return n
}

// Result is the partition a stage produced.
type Result struct {
	Accepted   *table.Table
	Exceptions *table.Table
	// AcceptedKeys lists the record keys that went into Accepted. Stages whose
	// accepted table is not one row per input record (aggregations, line
	// expansions) must set it; otherwise it is derived from Accepted.
	AcceptedKeys []string
	// Artifacts carries additional named outputs, such as the deliverables
	// written by consolidation.
	Artifacts map[string]*table.Table
}

// Stage is a pure transformation from input rows to an accepted/exception
// partition.
type Stage interface {
	Name() string
	Execute(ctx context.Context, in Input) (Result, error)
}

// AcceptedCount reports how many input records the stage accepted.
func (r Result) AcceptedCount() int {
	if r.AcceptedKeys != nil {
		return len(r.AcceptedKeys)
	}
	return r.Accepted.Len()
}

// CheckPartition verifies every input record landed in exactly one of the two
// outputs. When keyColumn is non-empty, no key may be both accepted and
// rejected; blank keys are not compared.
func CheckPartition(stage string, inputRows int, res Result, keyColumn string) error {
	accepted := res.AcceptedCount()
	rejected := res.Exceptions.Len()
	if accepted+rejected != inputRows {
		return &domain.StructuralError{
			Stage:   stage,
			Code:    domain.CodePartitionViolated,
			Message: fmt.Sprintf("%d accepted + %d exceptions != %d input rows", accepted, rejected, inputRows),
			Err:     domain.ErrPartitionViolated,
		}
	}
	if keyColumn == "" || rejected == 0 {
		return nil
	}

	keys := res.AcceptedKeys
	if keys == nil {
		keys = res.Accepted.Values(keyColumn)
	}
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k != table.Missing {
			seen[k] = struct{}{}
		}
	}
	for _, r := range res.Exceptions.Rows {
		k := r[keyColumn]
		if k == table.Missing {
			continue
		}
		if _, dup := seen[k]; dup {
			return &domain.StructuralError{
				Stage:   stage,
				Code:    domain.CodePartitionViolated,
				Message: fmt.Sprintf("%s %q is both accepted and an exception", keyColumn, k),
				Err:     domain.ErrPartitionViolated,
			}
		}
	}
	return nil
}
