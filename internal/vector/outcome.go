package vector

import "fmt"

// OutcomeKind tags the result of a backend operation.
type OutcomeKind int

const (
	// OutcomeOK means the operation completed and produced a result.
	OutcomeOK OutcomeKind = iota
	// OutcomeSkipped means the backend did not attempt the operation (not connected, bad input).
	OutcomeSkipped
	// OutcomeEmpty means the operation completed with nothing usable.
	OutcomeEmpty
	// OutcomeFailed means the operation failed; Err holds the cause.
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the tagged result the store coordinator switches on.
type Outcome struct {
	Kind OutcomeKind
	Err  error
}

func okOutcome() Outcome              { return Outcome{Kind: OutcomeOK} }
func skippedOutcome() Outcome         { return Outcome{Kind: OutcomeSkipped} }
func emptyOutcome() Outcome           { return Outcome{Kind: OutcomeEmpty} }
func failedOutcome(err error) Outcome { return Outcome{Kind: OutcomeFailed, Err: err} }
