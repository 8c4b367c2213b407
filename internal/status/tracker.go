package status

import "sync"

// Tracker holds the latest Signals reported by external collaborators and
// notifies subscribers when the derived State changes.
type Tracker struct {
	mu      sync.RWMutex
	signals Signals
	state   State

	subMu  sync.Mutex
	subs   map[int]func(State)
	nextID int
}

// NewTracker creates a Tracker seeded with initial.
func NewTracker(initial Signals) *Tracker {
	return &Tracker{
		signals: initial,
		state:   Derive(initial),
		subs:    make(map[int]func(State)),
	}
}

// Snapshot returns a copy of the current signals.
func (t *Tracker) Snapshot() Signals {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.signals
}

// State returns the state derived from the current signals.
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Update applies fn to the signals and re-derives the state. Subscribers are
// called only when the state changed.
func (t *Tracker) Update(fn func(*Signals)) State {
	t.mu.Lock()
	next := t.signals
	fn(&next)
	t.signals = next
	prev := t.state
	t.state = Derive(next)
	cur := t.state
	t.mu.Unlock()

	if cur != prev {
		t.notify(cur)
	}
	return cur
}

// Subscribe registers fn for state transitions and returns its unsubscribe func.
func (t *Tracker) Subscribe(fn func(State)) func() {
	t.subMu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = fn
	t.subMu.Unlock()

	return func() {
		t.subMu.Lock()
		delete(t.subs, id)
		t.subMu.Unlock()
	}
}

func (t *Tracker) notify(s State) {
	t.subMu.Lock()
	fns := make([]func(State), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.subMu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}
