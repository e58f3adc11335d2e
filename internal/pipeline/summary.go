package pipeline

import (
	"fmt"
	"time"

	"github.com/hereithel-180303/ota-exam/internal/daterange"
	"github.com/hereithel-180303/ota-exam/internal/storage"
)

// State is a date's terminal outcome.
type State string

const (
	StateDone       State = "done"
	StateNoFile     State = "no_file"
	StateFailedFile State = "failed_file"
)

// Step names used in logs, metrics and FileError.
const (
	StepResolve   = "resolve"
	StepLocate    = "locate"
	StepRead      = "read"
	StepReconcile = "reconcile"
	StepPartition = "partition"
	StepLoad      = "load"
)

// DateOutcome records what happened to one report date.
type DateOutcome struct {
	Date        time.Time
	File        string // empty when no file was found
	Fingerprint string // xxh3 of the file content
	State       State
	Deleted     int64 // rows removed by reconciliation
	Load        storage.LoadResult
	Err         error // *FileError when State is StateFailedFile
}

// Summary is the result of a Run.
type Summary struct {
	Range    daterange.Range
	Outcomes []DateOutcome
}

// Count returns how many dates ended in state.
func (s Summary) Count(state State) int {
	n := 0
	for _, o := range s.Outcomes {
		if o.State == state {
			n++
		}
	}
	return n
}

// Partial returns how many loaded dates lost at least one batch.
func (s Summary) Partial() int {
	n := 0
	for _, o := range s.Outcomes {
		if o.State == StateDone && !o.Load.Complete() {
			n++
		}
	}
	return n
}

// RowsCommitted totals committed rows across dates.
func (s Summary) RowsCommitted() int64 {
	var n int64
	for _, o := range s.Outcomes {
		n += o.Load.RowsCommitted
	}
	return n
}

// FileError is a failure confined to one file.
type FileError struct {
	File string
	Step string
	Err  error
}

func (e *FileError) Error() string { return fmt.Sprintf("%s: %s: %v", e.File, e.Step, e.Err) }

func (e *FileError) Unwrap() error { return e.Err }
