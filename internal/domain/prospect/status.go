package prospect

import "fmt"

// OutreachStatus and PayoutStatus are typed lifecycle states. Callers must
// go through CanTransitionTo so illegal jumps (for example confirmed back to
// pending) are rejected instead of silently written.

type OutreachStatus string

const (
	OutreachPending  OutreachStatus = "pending"
	OutreachPROpened OutreachStatus = "pr_opened"
	OutreachPRMerged OutreachStatus = "pr_merged"
	OutreachPRClosed OutreachStatus = "pr_closed"
	OutreachDeclined OutreachStatus = "declined"
)

var outreachTransitions = map[OutreachStatus][]OutreachStatus{
	OutreachPending:  {OutreachPROpened, OutreachDeclined},
	OutreachPROpened: {OutreachPRMerged, OutreachPRClosed, OutreachDeclined},
}

func (s OutreachStatus) Valid() bool {
	switch s {
	case OutreachPending, OutreachPROpened, OutreachPRMerged, OutreachPRClosed, OutreachDeclined:
		return true
	}
	return false
}

func (s OutreachStatus) CanTransitionTo(next OutreachStatus) bool {
	for _, allowed := range outreachTransitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}

// TransitionOutreach validates the jump and returns the next status.
func TransitionOutreach(current, next OutreachStatus) (OutreachStatus, error) {
	if !current.CanTransitionTo(next) {
		return current, fmt.Errorf("%w: outreach %s -> %s", ErrInvalidTransition, current, next)
	}
	return next, nil
}

type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "pending"
	PayoutSent      PayoutStatus = "sent"
	PayoutConfirmed PayoutStatus = "confirmed"
	PayoutFailed    PayoutStatus = "failed"
)

var payoutTransitions = map[PayoutStatus][]PayoutStatus{
	PayoutPending: {PayoutSent, PayoutFailed},
	PayoutSent:    {PayoutConfirmed, PayoutFailed},
}

func (s PayoutStatus) Valid() bool {
	switch s {
	case PayoutPending, PayoutSent, PayoutConfirmed, PayoutFailed:
		return true
	}
	return false
}

// Settled reports whether the payout left the pending state; settled
// prospects are never paid again.
func (s PayoutStatus) Settled() bool {
	return s == PayoutSent || s == PayoutConfirmed || s == PayoutFailed
}

func (s PayoutStatus) CanTransitionTo(next PayoutStatus) bool {
	for _, allowed := range payoutTransitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}

// TransitionPayout validates the jump and returns the next status.
func TransitionPayout(current, next PayoutStatus) (PayoutStatus, error) {
	if !current.CanTransitionTo(next) {
		return current, fmt.Errorf("%w: payout %s -> %s", ErrInvalidTransition, current, next)
	}
	return next, nil
}
