package textstream

import "strings"

// Machine is the only mutator of a session's State. Each method that
// changes the state returns the new snapshot and true; calls that do not
// apply in the current phase return false and leave the state untouched.
//
// A Machine is not safe for concurrent use.
type Machine struct {
	state State
	text  strings.Builder
}

// State returns the current snapshot.
func (m *Machine) State() State {
	return m.state
}

// Start begins a new session, discarding text and error from any previous
// one. Start is rejected while already streaming.
func (m *Machine) Start(sessionID string) (State, bool) {
	if m.state.Streaming {
		return m.state, false
	}
	m.text.Reset()
	m.state = State{Streaming: true, SessionID: sessionID}
	return m.state, true
}

// Apply feeds one decoded event into the machine. Events outside the
// streaming phase are ignored.
func (m *Machine) Apply(evt Event) (State, bool) {
	if !m.state.Streaming {
		return m.state, false
	}
	switch e := evt.(type) {
	case EventContentDelta:
		m.text.WriteString(e.Text)
		m.state.Text = m.text.String()
	case EventDone:
		m.state.Streaming = false
		m.state.Complete = true
	case EventError:
		m.fail(e.Message)
	default:
		return m.state, false
	}
	return m.state, true
}

// Fail moves a streaming session to the errored phase. It is used for
// transport failures, which do not arrive as events.
func (m *Machine) Fail(message string) (State, bool) {
	if !m.state.Streaming {
		return m.state, false
	}
	m.fail(message)
	return m.state, true
}

func (m *Machine) fail(message string) {
	if message == "" {
		message = "unknown error"
	}
	m.state.Streaming = false
	m.state.Complete = false
	m.state.Error = message
}

// Stop ends a streaming session without marking it complete or errored.
// Accumulated text is kept.
func (m *Machine) Stop() (State, bool) {
	if !m.state.Streaming {
		return m.state, false
	}
	m.state.Streaming = false
	return m.state, true
}

// Clear resets to the idle state from any phase. It always produces a
// snapshot, even when the state was already clear.
func (m *Machine) Clear() State {
	m.text.Reset()
	m.state = State{}
	return m.state
}
