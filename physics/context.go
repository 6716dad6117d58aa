package physics

// EventTarget receives contact events routed to a registered collider.
type EventTarget interface {
	HandleContactEvent(ev ContactEvent)
}

// WorldContext is the shared collider registry of one physics world. It maps
// collider handles back to the components that own them so engines can route
// contact events. It is owned by whoever owns the world and passed down by
// explicit reference; it is not ambient state.
type WorldContext struct {
	targets map[Collider]EventTarget
}

func NewWorldContext() *WorldContext {
	return &WorldContext{targets: make(map[Collider]EventTarget)}
}

// Register associates a collider handle with its event target. A nil target
// registers the collider for lookup only.
func (c *WorldContext) Register(h Collider, target EventTarget) {
	if c == nil || h == nil {
		return
	}
	c.targets[h] = target
}

// Deregister removes the collider from the registry.
func (c *WorldContext) Deregister(h Collider) {
	if c == nil || h == nil {
		return
	}
	delete(c.targets, h)
}

// Target returns the event target registered for h.
func (c *WorldContext) Target(h Collider) (EventTarget, bool) {
	if c == nil || h == nil {
		return nil, false
	}
	t, ok := c.targets[h]
	return t, ok
}

// Contains reports whether h is registered.
func (c *WorldContext) Contains(h Collider) bool {
	_, ok := c.Target(h)
	return ok
}

// Len returns the number of registered colliders.
func (c *WorldContext) Len() int {
	if c == nil {
		return 0
	}
	return len(c.targets)
}

// Deliver routes ev to the target registered for ev.Collider, if any.
func (c *WorldContext) Deliver(ev ContactEvent) {
	if c == nil {
		return
	}
	if t, ok := c.targets[ev.Collider]; ok && t != nil {
		t.HandleContactEvent(ev)
	}
}
