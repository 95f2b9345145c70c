package concord4

import "sync"

type callbacks struct {
	mu   sync.Mutex
	next uint64
	fns  map[CallbackID]map[uint64]func()
}

func (c *callbacks) register(id CallbackID, fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fns == nil {
		c.fns = map[CallbackID]map[uint64]func(){}
	}
	if c.fns[id] == nil {
		c.fns[id] = map[uint64]func(){}
	}
	c.next++
	handle := c.next
	c.fns[id][handle] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.fns[id], handle)
			if len(c.fns[id]) == 0 {
				delete(c.fns, id)
			}
		})
	}
}

// fire runs the callbacks registered for id. The lock is not held while
// they run so a callback may register or remove others.
func (c *callbacks) fire(id CallbackID) {
	c.mu.Lock()
	fns := make([]func(), 0, len(c.fns[id]))
	for _, fn := range c.fns[id] {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (c *callbacks) fireAll() {
	c.mu.Lock()
	var fns []func()
	for _, byHandle := range c.fns {
		for _, fn := range byHandle {
			fns = append(fns, fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
