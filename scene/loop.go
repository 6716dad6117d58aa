package scene

// Loop is a single-threaded cooperative frame scheduler. Pending next-tick
// work is flushed at the start of every Step, before frame callbacks run,
// so deferred work observes finalized transforms from the previous frame.
type Loop struct {
	ticks     []func()
	callbacks []*FrameHandle
	frame     uint64
}

func NewLoop() *Loop {
	return &Loop{}
}

// Frame returns the number of completed steps.
func (l *Loop) Frame() uint64 {
	if l == nil {
		return 0
	}
	return l.frame
}

// NextTick queues fn to run at the next Step (or Flush), after all work
// queued before it.
func (l *Loop) NextTick(fn func()) {
	if l == nil || fn == nil {
		return
	}
	l.ticks = append(l.ticks, fn)
}

// Flush runs all pending next-tick work without advancing a frame. Work
// queued while flushing runs in the same flush.
func (l *Loop) Flush() {
	if l == nil {
		return
	}
	for len(l.ticks) > 0 {
		pending := l.ticks
		l.ticks = nil
		for _, fn := range pending {
			fn()
		}
	}
}

// OnFrame registers fn to run every Step. When autostart is false the
// callback stays idle until Start is called on the returned handle.
func (l *Loop) OnFrame(fn func(dt float64), autostart bool) *FrameHandle {
	if l == nil || fn == nil {
		return nil
	}
	h := &FrameHandle{loop: l, fn: fn, running: autostart}
	l.callbacks = append(l.callbacks, h)
	return h
}

// Step flushes pending ticks, then invokes every started frame callback.
func (l *Loop) Step(dt float64) {
	if l == nil {
		return
	}
	l.Flush()

	// snapshot so callbacks can register or remove handles mid-frame
	active := make([]*FrameHandle, len(l.callbacks))
	copy(active, l.callbacks)
	for _, h := range active {
		if h.running && !h.removed {
			h.fn(dt)
		}
	}
	l.compact()
	l.frame++
}

func (l *Loop) compact() {
	kept := l.callbacks[:0]
	for _, h := range l.callbacks {
		if !h.removed {
			kept = append(kept, h)
		}
	}
	l.callbacks = kept
}

// FrameHandle controls a registered frame callback.
type FrameHandle struct {
	loop    *Loop
	fn      func(dt float64)
	running bool
	removed bool
}

func (h *FrameHandle) Start() {
	if h == nil || h.removed {
		return
	}
	h.running = true
}

func (h *FrameHandle) Stop() {
	if h == nil {
		return
	}
	h.running = false
}

// Remove permanently deregisters the callback.
func (h *FrameHandle) Remove() {
	if h == nil {
		return
	}
	h.running = false
	h.removed = true
}

// Running reports whether the callback will fire on the next Step.
func (h *FrameHandle) Running() bool {
	return h != nil && h.running && !h.removed
}
