package claim

import (
	"github.com/claimdesk/claimdesk/internal/platform/apperror"
)

// Status is the two-state claim lifecycle.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Transition is an edge of the claim state machine.
type Transition string

const (
	// TransitionClose fires when a closure report becomes active.
	TransitionClose Transition = "close"
	// TransitionReopen fires when the active closure report is removed or an
	// administrator reopens the claim.
	TransitionReopen Transition = "reopen"
)

var transitions = map[Status]map[Transition]Status{
	StatusOpen:   {TransitionClose: StatusClosed},
	StatusClosed: {TransitionReopen: StatusOpen},
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Apply returns the state reached by taking t from s.
func (s Status) Apply(t Transition) (Status, error) {
	next, ok := transitions[s][t]
	if !ok {
		return s, apperror.New(apperror.KindInvalidClaimState, "cannot %s a claim that is %s", t, s)
	}
	return next, nil
}
