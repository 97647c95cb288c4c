package store

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type entry struct {
	Name string `json:"name"`
}

func backends(t *testing.T) map[string]func(t *testing.T) (Store, string) {
	out := map[string]func(t *testing.T) (Store, string){
		"memory": func(t *testing.T) (Store, string) { return NewMemoryStore(), "test" },
	}
	if addr := os.Getenv("REDIS_TEST_ADDR"); addr != "" {
		out["redis"] = func(t *testing.T) (Store, string) {
			rdb := redis.NewClient(&redis.Options{Addr: addr})
			t.Cleanup(func() { rdb.Close() })
			// unique root so runs never see each other's keys
			return NewRedisStore(rdb, zap.NewNop()), "test-" + uuid.New().String()[:8]
		}
	}
	return out
}

func recvEvent(t *testing.T, ch <-chan Event, within time.Duration) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "subscription closed unexpectedly")
		return ev
	case <-time.After(within):
		t.Fatalf("timed out waiting for store event")
		return Event{}
	}
}

func TestStore_SetGetDelete(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s, root := open(t)
			ctx := context.Background()
			path := Join(root, "lobbies", "l1")

			require.NoError(t, s.Set(ctx, path, entry{Name: "first"}))

			var got entry
			found, err := s.Get(ctx, path, &got)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, "first", got.Name)

			existed, err := s.Delete(ctx, path)
			require.NoError(t, err)
			assert.True(t, existed)

			existed, err = s.Delete(ctx, path)
			require.NoError(t, err)
			assert.False(t, existed, "second delete must not claim the same path")

			found, err = s.Get(ctx, path, &got)
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestStore_ChildrenAreFIFO(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s, root := open(t)
			ctx := context.Background()
			parent := Join(root, "queue")

			for _, id := range []string{"c", "a", "b"} {
				require.NoError(t, s.Set(ctx, Join(parent, id), entry{Name: id}))
			}
			// overwriting keeps the original position
			require.NoError(t, s.Set(ctx, Join(parent, "c"), entry{Name: "c2"}))

			children, err := s.Children(ctx, parent)
			require.NoError(t, err)
			require.Len(t, children, 3)
			assert.Equal(t, "c", children[0].Key)
			assert.Equal(t, "a", children[1].Key)
			assert.Equal(t, "b", children[2].Key)

			var first entry
			require.NoError(t, json.Unmarshal(children[0].Value, &first))
			assert.Equal(t, "c2", first.Name)
		})
	}
}

func TestStore_AppendListAndClear(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s, root := open(t)
			ctx := context.Background()
			lobby := Join(root, "lobbies", "l1")
			strokes := Join(lobby, "strokes")

			require.NoError(t, s.Set(ctx, lobby, entry{Name: "lobby"}))
			for i := 0; i < 3; i++ {
				_, err := s.Append(ctx, strokes, map[string]int{"i": i})
				require.NoError(t, err)
			}

			items, err := s.List(ctx, strokes)
			require.NoError(t, err)
			require.Len(t, items, 3)
			assert.JSONEq(t, `{"i":0}`, string(items[0]))
			assert.JSONEq(t, `{"i":2}`, string(items[2]))

			// deleting the lobby clears everything under it
			_, err = s.Delete(ctx, lobby)
			require.NoError(t, err)
			items, err = s.List(ctx, strokes)
			require.NoError(t, err)
			assert.Empty(t, items)
		})
	}
}

func TestStore_SubscribeDeliversWritesUnderPrefix(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s, root := open(t)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			events, stop, err := s.Subscribe(ctx, Join(root, "lobbies", "l1"))
			require.NoError(t, err)
			defer stop()

			require.NoError(t, s.Set(ctx, Join(root, "lobbies", "l2"), entry{Name: "other"}))
			require.NoError(t, s.Set(ctx, Join(root, "lobbies", "l1", "players", "p1"), entry{Name: "p1"}))
			_, err = s.Append(ctx, Join(root, "lobbies", "l1", "chat"), entry{Name: "hi"})
			require.NoError(t, err)

			ev := recvEvent(t, events, time.Second)
			assert.Equal(t, EventSet, ev.Kind)
			assert.Equal(t, Join(root, "lobbies", "l1", "players", "p1"), ev.Path)

			ev = recvEvent(t, events, time.Second)
			assert.Equal(t, EventAppend, ev.Kind)
			assert.JSONEq(t, `{"name":"hi"}`, string(ev.Value))
		})
	}
}

func TestStore_DisconnectRemovesRegisteredPaths(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s, root := open(t)
			ctx := context.Background()
			kept := Join(root, "queue", "kept")
			dropped := Join(root, "queue", "dropped")

			require.NoError(t, s.Set(ctx, kept, entry{Name: "kept"}))
			require.NoError(t, s.Set(ctx, dropped, entry{Name: "dropped"}))
			require.NoError(t, s.OnDisconnect(ctx, "conn-1", dropped))
			require.NoError(t, s.OnDisconnect(ctx, "conn-1", kept))
			require.NoError(t, s.CancelOnDisconnect(ctx, "conn-1", kept))

			require.NoError(t, s.Disconnect(ctx, "conn-1"))

			found, err := s.Get(ctx, dropped, nil)
			require.NoError(t, err)
			assert.False(t, found)
			found, err = s.Get(ctx, kept, nil)
			require.NoError(t, err)
			assert.True(t, found)
		})
	}
}

func TestMemoryStore_ConcurrentDeleteHasSingleWinner(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "queue/p1", entry{Name: "p1"}))

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.Delete(ctx, "queue/p1")
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestStore_CreateOnlyWhenAbsent(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s, root := open(t)
			ctx := context.Background()
			path := Join(root, "pins", "123456")

			created, err := s.Create(ctx, path, "lobby-1")
			require.NoError(t, err)
			assert.True(t, created)

			created, err = s.Create(ctx, path, "lobby-2")
			require.NoError(t, err)
			assert.False(t, created)

			var owner string
			found, err := s.Get(ctx, path, &owner)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, "lobby-1", owner)

			children, err := s.Children(ctx, Join(root, "pins"))
			require.NoError(t, err)
			require.Len(t, children, 1)
			assert.Equal(t, "123456", children[0].Key)
		})
	}
}

func TestMemoryStore_ConcurrentCreateHasSingleWinner(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := s.Create(ctx, "pins/000001", i)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}
