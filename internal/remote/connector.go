package remote

import "sync"

// Connector holds the current client handle. A nil handle means the record
// store is unavailable.
type Connector struct {
	mu     sync.RWMutex
	client RecordClient

	subMu  sync.Mutex
	subs   map[int]func(bool)
	nextID int
}

// NewConnector returns a Connector with no client.
func NewConnector() *Connector {
	return &Connector{subs: make(map[int]func(bool))}
}

// Current returns the client handle, or nil when unavailable.
func (c *Connector) Current() RecordClient {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// Available reports whether a client handle is present.
func (c *Connector) Available() bool {
	return c.Current() != nil
}

// Connect installs client. Passing nil is the same as Disconnect.
func (c *Connector) Connect(client RecordClient) {
	c.set(client)
}

// Disconnect drops the client handle.
func (c *Connector) Disconnect() {
	c.set(nil)
}

func (c *Connector) set(client RecordClient) {
	c.mu.Lock()
	was := c.client != nil
	c.client = client
	now := c.client != nil
	c.mu.Unlock()

	if was != now {
		c.notify(now)
	}
}

// Subscribe registers fn for availability transitions and returns its
// unsubscribe func.
func (c *Connector) Subscribe(fn func(available bool)) func() {
	c.subMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Connector) notify(available bool) {
	c.subMu.Lock()
	fns := make([]func(bool), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()
	for _, fn := range fns {
		fn(available)
	}
}
