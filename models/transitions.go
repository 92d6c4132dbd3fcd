package models

// Legal status transitions per entity, enforced here instead of being
// re-derived at each call site.

var matchTransitions = map[MatchStatus][]MatchStatus{
	MatchStatusAddressPending: {MatchStatusAdminReview, MatchStatusCancelled},
	MatchStatusAdminReview:    {MatchStatusCompleted, MatchStatusCancelled},
	MatchStatusCompleted:      {MatchStatusCancelled},
	MatchStatusCancelled:      {},
}

// CanTransition reports whether a match may move from s to target.
func (s MatchStatus) CanTransition(target MatchStatus) bool {
	for _, t := range matchTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

var proofTransitions = map[ProofStatus][]ProofStatus{
	ProofStatusSent:         {ProofStatusReceived, ProofStatusDisputed, ProofStatusAutoVerified},
	ProofStatusDisputed:     {ProofStatusAutoVerified, ProofStatusCancelled},
	ProofStatusReceived:     {},
	ProofStatusAutoVerified: {},
	ProofStatusCancelled:    {},
}

// CanTransition reports whether a proof may move from s to target.
func (s ProofStatus) CanTransition(target ProofStatus) bool {
	for _, t := range proofTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further proof transition is legal.
func (s ProofStatus) IsTerminal() bool {
	return len(proofTransitions[s]) == 0
}

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationStatusPending:  {ApplicationStatusAccepted, ApplicationStatusRejected},
	ApplicationStatusAccepted: {},
	ApplicationStatusRejected: {},
}

// CanTransition reports whether an application may move from s to target.
func (s ApplicationStatus) CanTransition(target ApplicationStatus) bool {
	for _, t := range applicationTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

var cancelRequestTransitions = map[CancelRequestStatus][]CancelRequestStatus{
	CancelRequestPending:  {CancelRequestApproved, CancelRequestRejected},
	CancelRequestApproved: {},
	CancelRequestRejected: {},
}

// CanTransition reports whether a cancel request may move from s to target.
func (s CancelRequestStatus) CanTransition(target CancelRequestStatus) bool {
	for _, t := range cancelRequestTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}
