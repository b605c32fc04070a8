package emit

// NullEmitter discards all events. Use it when observability output is
// unwanted, e.g. in benchmarks or quiet CLI runs.
type NullEmitter struct{}

// NewNullEmitter returns an emitter that drops everything.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards the event.
func (n *NullEmitter) Emit(Event) {}
