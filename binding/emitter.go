package binding

import "github.com/jmheld/tether/physics"

// Listener receives contact events for one event kind.
type Listener func(physics.ContactEvent)

// Emitter is the declarative event surface of a component: listeners keyed
// by event kind. The changed hook fires whenever the listener set changes so
// owners can re-derive engine-side active-event flags.
type Emitter struct {
	handlers map[physics.ContactEventKind]map[int]Listener
	nextSeq  int
	changed  func()
}

func NewEmitter(changed func()) *Emitter {
	return &Emitter{
		handlers: make(map[physics.ContactEventKind]map[int]Listener),
		changed:  changed,
	}
}

// On registers fn for the event kind and returns a removal func.
func (e *Emitter) On(kind physics.ContactEventKind, fn Listener) func() {
	if e == nil || fn == nil {
		return func() {}
	}
	set := e.handlers[kind]
	if set == nil {
		set = make(map[int]Listener)
		e.handlers[kind] = set
	}
	e.nextSeq++
	seq := e.nextSeq
	set[seq] = fn
	e.notifyChanged()

	removed := false
	return func() {
		if removed {
			return
		}
		removed = true
		delete(set, seq)
		e.notifyChanged()
	}
}

func (e *Emitter) notifyChanged() {
	if e != nil && e.changed != nil {
		e.changed()
	}
}

// HasCollisionListeners reports whether any collision or sensor event kind
// has a listener.
func (e *Emitter) HasCollisionListeners() bool {
	if e == nil {
		return false
	}
	for kind, set := range e.handlers {
		if kind.IsCollision() && len(set) > 0 {
			return true
		}
	}
	return false
}

// HasContactForceListeners reports whether contact-force events have a
// listener.
func (e *Emitter) HasContactForceListeners() bool {
	if e == nil {
		return false
	}
	return len(e.handlers[physics.ContactForce]) > 0
}

// Emit delivers ev to every listener registered for its kind.
func (e *Emitter) Emit(ev physics.ContactEvent) {
	if e == nil {
		return
	}
	for _, fn := range e.handlers[ev.Kind] {
		fn(ev)
	}
}
