package events

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (journal, mirror, RPC).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is the default wired into engines so event emission is always safe to call.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// EmitterFunc adapts a plain function into an Emitter.
type EmitterFunc func(Event)

// Emit implements the Emitter interface.
func (f EmitterFunc) Emit(evt Event) {
	if f != nil {
		f(evt)
	}
}

// Fanout returns an emitter that forwards every event to all targets in order.
func Fanout(targets ...Emitter) Emitter {
	filtered := make([]Emitter, 0, len(targets))
	for _, target := range targets {
		if target != nil {
			filtered = append(filtered, target)
		}
	}
	return fanout{targets: filtered}
}

type fanout struct {
	targets []Emitter
}

func (f fanout) Emit(evt Event) {
	for _, target := range f.targets {
		target.Emit(evt)
	}
}
