package distributor

// Phase is how far a claim attempt has progressed. Phases only move forward;
// an attempt that fails in any phase has no effect.
type Phase uint8

const (
	PhaseUnchecked Phase = iota
	// PhaseAuthorized: signer, state ownership, start time and asset ownership hold.
	PhaseAuthorized
	// PhaseEligible: metadata, collection creator, custody binding and receipt address hold.
	PhaseEligible
	// PhaseTransferred: the reward moved and the state was updated.
	PhaseTransferred
	// PhaseRecorded: the receipt is marked.
	PhaseRecorded
)

func (p Phase) String() string {
	switch p {
	case PhaseUnchecked:
		return "unchecked"
	case PhaseAuthorized:
		return "authorized"
	case PhaseEligible:
		return "eligible"
	case PhaseTransferred:
		return "transferred"
	case PhaseRecorded:
		return "recorded"
	default:
		return "unknown"
	}
}

// PhaseHook is called each time a claim enters a phase. A non-nil error
// aborts the claim.
type PhaseHook func(Phase) error

type claimAttempt struct {
	phase Phase
	hook  PhaseHook
}

func (c *claimAttempt) advance(next Phase) error {
	if next <= c.phase {
		return nil
	}
	c.phase = next
	if c.hook == nil {
		return nil
	}
	return c.hook(next)
}
