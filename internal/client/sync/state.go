package sync

// State is the reconciler's connectivity/push state.
type State int

const (
	// Offline: no identity; mutations stay local and no network call is
	// ever attempted.
	Offline State = iota
	// OnlineIdle: identity present, nothing pending.
	OnlineIdle
	// OnlinePushing: a push is in flight.
	OnlinePushing
	// OnlineError: the last push exhausted its retry budget; the failed
	// changes are parked and replayable via Retry.
	OnlineError
)

func (s State) String() string {
	switch s {
	case Offline:
		return "offline"
	case OnlineIdle:
		return "online"
	case OnlinePushing:
		return "pushing"
	case OnlineError:
		return "push failed"
	default:
		return "unknown"
	}
}
