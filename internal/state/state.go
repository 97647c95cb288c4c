// Package state tracks the live websocket connections of this instance.
package state

import (
	"sync"
)

// Conn is the part of a websocket connection the server writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

type Connection struct {
	ID       string
	PlayerID string
	Conn     Conn
	ConnMu   sync.Mutex

	watchMu sync.Mutex
	watches map[string]func()
}

// WriteJSON serializes writes; gorilla connections allow one writer at a time.
func (c *Connection) WriteJSON(v interface{}) error {
	c.ConnMu.Lock()
	defer c.ConnMu.Unlock()
	return c.Conn.WriteJSON(v)
}

// Watch records the cancel func of a subscription under key. It reports false
// and keeps the existing subscription if key is already watched.
func (c *Connection) Watch(key string, cancel func()) bool {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	if _, ok := c.watches[key]; ok {
		return false
	}
	c.watches[key] = cancel
	return true
}

func (c *Connection) Unwatch(key string) {
	c.watchMu.Lock()
	cancel, ok := c.watches[key]
	delete(c.watches, key)
	c.watchMu.Unlock()
	if ok {
		cancel()
	}
}

func (c *Connection) UnwatchAll() {
	c.watchMu.Lock()
	watches := c.watches
	c.watches = map[string]func(){}
	c.watchMu.Unlock()
	for _, cancel := range watches {
		cancel()
	}
}

type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Connection
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Connection)}
}

func (r *Registry) Register(id, playerID string, conn Conn) *Connection {
	c := &Connection{ID: id, PlayerID: playerID, Conn: conn, watches: map[string]func(){}}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = c
	return c
}

func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
}

func (r *Registry) Get(id string) *Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[id]
}

// ForPlayer returns every open connection of a player.
func (r *Registry) ForPlayer(playerID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*Connection{}
	for _, c := range r.conns {
		if c.PlayerID == playerID {
			out = append(out, c)
		}
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
