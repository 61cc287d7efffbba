package redis

// State is the lifecycle state of a Client.
//
//	Open ──End──▶ Draining ──queue empty──▶ Closed
//	  └────────────Close / failure──────────▲
type State int32

const (
	// StateOpen accepts new requests.
	StateOpen State = iota

	// StateDraining refuses new requests and waits for outstanding replies.
	StateDraining

	// StateClosed is terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
