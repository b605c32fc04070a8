package emit

// Emitter receives observability events from workflow execution.
//
// Implementations must be safe for concurrent use — parallel nodes emit
// from separate goroutines — and must never panic or block the run.
type Emitter interface {
	// Emit processes one event. Failures are handled internally; the
	// engine never checks the outcome.
	Emit(event Event)
}

// Multi fans every event out to several emitters in order.
type Multi []Emitter

// Emit sends the event to each wrapped emitter.
func (m Multi) Emit(event Event) {
	for _, e := range m {
		e.Emit(event)
	}
}
