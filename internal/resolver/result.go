package resolver

import (
	"time"
)

// Outcome tags how a resolution ended.
type Outcome int

const (
	// OutcomeNotFound means the tool ran but its output held no destination URL.
	OutcomeNotFound Outcome = iota
	// OutcomeFound means a destination URL was extracted.
	OutcomeFound
	// OutcomeTimedOut means a process or total time budget ran out.
	OutcomeTimedOut
	// OutcomeExecutionFailed means the tool could not be run or died without output.
	OutcomeExecutionFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeExecutionFailed:
		return "execution_failed"
	default:
		return "not_found"
	}
}

// Result is the outcome of one resolution. URL is set only when Outcome is OutcomeFound.
type Result struct {
	Outcome  Outcome
	URL      string
	Attempts int
	Duration time.Duration
}

// Found reports whether a destination URL was extracted.
func (r Result) Found() bool {
	return r.Outcome == OutcomeFound && r.URL != ""
}

// worst folds two unsuccessful attempt outcomes into the most specific one.
func worst(a, b Outcome) Outcome {
	switch {
	case a == OutcomeTimedOut || b == OutcomeTimedOut:
		return OutcomeTimedOut
	case a == OutcomeExecutionFailed && b == OutcomeExecutionFailed:
		return OutcomeExecutionFailed
	default:
		return OutcomeNotFound
	}
}
