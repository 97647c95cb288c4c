// Package store is the shared real-time state store every session component
// reads from and writes to. Values live at slash-separated paths
// ("lobbies/abc/strokes"); every write is delivered to subscribers of any
// prefix of that path.
package store

import (
	"context"
	"encoding/json"
	"strings"
)

type EventKind string

const (
	EventSet    EventKind = "set"
	EventDelete EventKind = "delete"
	EventAppend EventKind = "append"
)

type Event struct {
	Path  string          `json:"path"`
	Kind  EventKind       `json:"kind"`
	Value json.RawMessage `json:"value,omitempty"`
}

type Child struct {
	Key   string
	Value json.RawMessage
}

type Store interface {
	// Get decodes the value at path into dst and reports whether it existed.
	Get(ctx context.Context, path string, dst any) (bool, error)
	Set(ctx context.Context, path string, value any) error
	// Create sets path only when it holds no value and reports whether it did.
	// Of several concurrent callers creating the same path only one sees true.
	Create(ctx context.Context, path string, value any) (bool, error)
	// Delete removes the value and stream at path and everything below it.
	// It reports whether the value or stream at path itself existed; of
	// several concurrent callers deleting the same path only one sees true.
	Delete(ctx context.Context, path string) (bool, error)
	// Children returns the values set directly below parent in insertion order.
	Children(ctx context.Context, parent string) ([]Child, error)
	// Append adds an unordered child to the stream at parent and returns its key.
	Append(ctx context.Context, parent string, value any) (string, error)
	// List returns the stream at parent in append order.
	List(ctx context.Context, parent string) ([]json.RawMessage, error)
	Subscribe(ctx context.Context, prefix string) (<-chan Event, func(), error)
	// OnDisconnect registers path for removal when connID disconnects.
	OnDisconnect(ctx context.Context, connID string, path string) error
	CancelOnDisconnect(ctx context.Context, connID string, path string) error
	Disconnect(ctx context.Context, connID string) error
}

func Join(parts ...string) string {
	return strings.Join(parts, "/")
}

func parentOf(path string) (string, string) {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

func matches(prefix, path string) bool {
	if prefix == "" || prefix == path {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/")
}
