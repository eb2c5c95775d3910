package textstream

// Event is a sealed interface representing one decoded stream event.
// The unexported marker method prevents external implementations.
type Event interface {
	event()
}

// EventContentDelta carries an incremental piece of generated text.
type EventContentDelta struct {
	Text string
}

func (EventContentDelta) event() {}

// EventDone marks the end of a successful session.
type EventDone struct{}

func (EventDone) event() {}

// EventError reports a failure raised by the token source itself.
type EventError struct {
	Message string
}

func (EventError) event() {}

// Interface compliance checks.
var (
	_ Event = EventContentDelta{}
	_ Event = EventDone{}
	_ Event = EventError{}
)
