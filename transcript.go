package textstream

import "time"

// Transcript records how a session ended. The Controller produces one
// whenever a session completes, fails or is stopped.
type Transcript struct {
	ID        string
	Prompt    string
	Identity  string
	Text      string
	Complete  bool
	Error     string
	StartedAt time.Time
	EndedAt   time.Time
}

// Phase returns the phase the session ended in.
func (t Transcript) Phase() Phase {
	return State{Text: t.Text, Complete: t.Complete, Error: t.Error}.Phase()
}

// Duration returns how long the session ran.
func (t Transcript) Duration() time.Duration {
	return t.EndedAt.Sub(t.StartedAt)
}
