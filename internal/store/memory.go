package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

const subscriberBuffer = 256

type memoryEntry struct {
	value json.RawMessage
	seq   uint64
}

type memorySubscriber struct {
	prefix string
	ch     chan Event
}

// MemoryStore is a single-process Store. It backs tests and STORE_BACKEND=memory.
type MemoryStore struct {
	mu           sync.Mutex
	seq          uint64
	values       map[string]memoryEntry
	streams      map[string][]json.RawMessage
	disconnects  map[string]map[string]bool
	subscribers  map[int]*memorySubscriber
	nextSubIndex int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:      make(map[string]memoryEntry),
		streams:     make(map[string][]json.RawMessage),
		disconnects: make(map[string]map[string]bool),
		subscribers: make(map[int]*memorySubscriber),
	}
}

func (m *MemoryStore) Get(ctx context.Context, path string, dst any) (bool, error) {
	m.mu.Lock()
	entry, ok := m.values[path]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	if dst == nil {
		return true, nil
	}
	if err := json.Unmarshal(entry.value, dst); err != nil {
		return true, fmt.Errorf("decoding %s: %w", path, err)
	}
	return true, nil
}

func (m *MemoryStore) Set(ctx context.Context, path string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var seq uint64
	if existing, ok := m.values[path]; ok {
		seq = existing.seq
	} else {
		m.seq++
		seq = m.seq
	}
	m.values[path] = memoryEntry{value: data, seq: seq}
	m.publishLocked(Event{Path: path, Kind: EventSet, Value: data})
	return nil
}

func (m *MemoryStore) Create(ctx context.Context, path string, value any) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("encoding %s: %w", path, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[path]; ok {
		return false, nil
	}
	m.seq++
	m.values[path] = memoryEntry{value: data, seq: m.seq}
	m.publishLocked(Event{Path: path, Kind: EventSet, Value: data})
	return true, nil
}

func (m *MemoryStore) Delete(ctx context.Context, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, hadValue := m.values[path]
	_, hadStream := m.streams[path]
	touched := hadValue || hadStream
	for key := range m.values {
		if matches(path, key) {
			delete(m.values, key)
			touched = true
		}
	}
	for key := range m.streams {
		if matches(path, key) {
			delete(m.streams, key)
			touched = true
		}
	}
	if touched {
		m.publishLocked(Event{Path: path, Kind: EventDelete})
	}
	return hadValue || hadStream, nil
}

func (m *MemoryStore) Children(ctx context.Context, parent string) ([]Child, error) {
	m.mu.Lock()
	type ordered struct {
		child Child
		seq   uint64
	}
	found := []ordered{}
	for key, entry := range m.values {
		p, k := parentOf(key)
		if p == parent {
			found = append(found, ordered{child: Child{Key: k, Value: entry.value}, seq: entry.seq})
		}
	}
	m.mu.Unlock()

	sort.Slice(found, func(i, j int) bool { return found[i].seq < found[j].seq })
	children := make([]Child, 0, len(found))
	for _, o := range found {
		children = append(children, o.child)
	}
	return children, nil
}

func (m *MemoryStore) Append(ctx context.Context, parent string, value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", parent, err)
	}
	key := uuid.New().String()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams[parent] = append(m.streams[parent], data)
	m.publishLocked(Event{Path: parent, Kind: EventAppend, Value: data})
	return key, nil
}

func (m *MemoryStore) List(ctx context.Context, parent string) ([]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stream := m.streams[parent]
	out := make([]json.RawMessage, len(stream))
	copy(out, stream)
	return out, nil
}

func (m *MemoryStore) Subscribe(ctx context.Context, prefix string) (<-chan Event, func(), error) {
	m.mu.Lock()
	id := m.nextSubIndex
	m.nextSubIndex++
	sub := &memorySubscriber{prefix: prefix, ch: make(chan Event, subscriberBuffer)}
	m.subscribers[id] = sub
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subscribers, id)
			close(sub.ch)
			m.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return sub.ch, cancel, nil
}

func (m *MemoryStore) OnDisconnect(ctx context.Context, connID string, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disconnects[connID] == nil {
		m.disconnects[connID] = make(map[string]bool)
	}
	m.disconnects[connID][path] = true
	return nil
}

func (m *MemoryStore) CancelOnDisconnect(ctx context.Context, connID string, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.disconnects[connID], path)
	return nil
}

func (m *MemoryStore) Disconnect(ctx context.Context, connID string) error {
	m.mu.Lock()
	paths := m.disconnects[connID]
	delete(m.disconnects, connID)
	m.mu.Unlock()

	for path := range paths {
		if _, err := m.Delete(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

// publishLocked never blocks; a subscriber whose buffer is full misses the event.
func (m *MemoryStore) publishLocked(ev Event) {
	for _, sub := range m.subscribers {
		if !matches(sub.prefix, ev.Path) && !matches(ev.Path, sub.prefix) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
		}
	}
}
