package textstream

// Phase identifies which of the mutually exclusive streaming states a
// snapshot is in.
type Phase int

const (
	PhaseIdle      Phase = iota // Never started, stopped, or cleared.
	PhaseStreaming              // Between start and a terminal event.
	PhaseComplete               // A completion event was observed.
	PhaseErrored                // The transport or the source failed.
)

// String returns the lowercase name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseStreaming:
		return "streaming"
	case PhaseComplete:
		return "complete"
	case PhaseErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// State is a snapshot of a streaming session. It is a plain value: every
// copy handed to a subscriber is independent of the Controller's own.
type State struct {
	Streaming bool
	Text      string
	Complete  bool
	// Error is empty unless the session failed.
	Error string
	// SessionID identifies the session that produced the snapshot. Empty
	// after Clear.
	SessionID string
}

// Phase derives the phase from the snapshot's flags.
func (s State) Phase() Phase {
	switch {
	case s.Streaming:
		return PhaseStreaming
	case s.Error != "":
		return PhaseErrored
	case s.Complete:
		return PhaseComplete
	default:
		return PhaseIdle
	}
}

// HasContent reports whether any text has been accumulated.
func (s State) HasContent() bool {
	return s.Text != ""
}
