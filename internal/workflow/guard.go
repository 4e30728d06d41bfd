package workflow

import "sync/atomic"

// Guard is the caller-side disable-on-submit flag. The controller itself
// does not serialise submissions.
type Guard struct {
	inFlight atomic.Bool
}

// Run executes submit unless another submission is already running.
func (g *Guard) Run(submit func() Outcome) (Outcome, error) {
	if !g.inFlight.CompareAndSwap(false, true) {
		return Outcome{}, ErrSubmissionInFlight
	}
	defer g.inFlight.Store(false)
	return submit(), nil
}
