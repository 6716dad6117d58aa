package binding

import (
	"github.com/jmheld/tether/physics"
	"github.com/jmheld/tether/scene"
)

// RigidBodyContext ties an engine rigid body to the scene node that anchors
// its pose. Colliders mounted under the anchor attach to the body and
// express their pose in its local frame. The context carries its own event
// surface: listeners registered here count toward the active-event flags of
// every attached collider.
type RigidBodyContext struct {
	node   *scene.Node
	body   physics.RigidBody
	events *Emitter

	changed map[int]func()
	nextSeq int
}

// NewRigidBodyContext marks node as a rigid body anchor and wraps the engine
// body for descendant colliders.
func NewRigidBodyContext(node *scene.Node, body physics.RigidBody) *RigidBodyContext {
	ctx := &RigidBodyContext{node: node, body: body, changed: make(map[int]func())}
	ctx.events = NewEmitter(ctx.listenersChanged)
	node.MarkRigidBodyAnchor()
	return ctx
}

func (r *RigidBodyContext) Node() *scene.Node {
	if r == nil {
		return nil
	}
	return r.node
}

func (r *RigidBodyContext) Body() physics.RigidBody {
	if r == nil {
		return nil
	}
	return r.body
}

// On registers a contact-event listener on the body.
func (r *RigidBodyContext) On(kind physics.ContactEventKind, fn Listener) func() {
	if r == nil {
		return func() {}
	}
	return r.events.On(kind, fn)
}

// HandleContactEvent fans an event out to the body's listeners. Colliders
// attached to the body forward their events here as well as to their own
// emitters.
func (r *RigidBodyContext) HandleContactEvent(ev physics.ContactEvent) {
	if r == nil {
		return
	}
	r.events.Emit(ev)
}

func (r *RigidBodyContext) listenersChanged() {
	for _, fn := range r.changed {
		fn()
	}
}

// subscribe lets attached colliders re-derive active events when body
// listeners change. The returned func removes the subscription; unmounting
// colliders call it so a long-lived context does not retain them.
func (r *RigidBodyContext) subscribe(fn func()) func() {
	if r == nil || fn == nil {
		return func() {}
	}
	r.nextSeq++
	seq := r.nextSeq
	r.changed[seq] = fn

	removed := false
	return func() {
		if removed {
			return
		}
		removed = true
		delete(r.changed, seq)
	}
}
