package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyNamespace  = "qb"
	eventsChannel = keyNamespace + ":events:"
)

// RedisStore keeps values as JSON strings, direct children in a sorted set
// per parent (scored by a global sequence so Children is FIFO), appended
// streams as lists, and fans writes out over pub/sub.
type RedisStore struct {
	db  *redis.Client
	log *zap.Logger
}

func NewRedisStore(db *redis.Client, log *zap.Logger) *RedisStore {
	return &RedisStore{db: db, log: log}
}

func valueKey(path string) string      { return keyNamespace + ":v:" + path }
func streamKey(path string) string     { return keyNamespace + ":s:" + path }
func childIndexKey(path string) string { return keyNamespace + ":c:" + path }
func descendantsKey(path string) string {
	return keyNamespace + ":d:" + path
}
func disconnectKey(connID string) string { return keyNamespace + ":disc:" + connID }

func ancestors(path string) []string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts)-1)
	for i := 1; i < len(parts); i++ {
		out = append(out, strings.Join(parts[:i], "/"))
	}
	return out
}

func (r *RedisStore) Get(ctx context.Context, path string, dst any) (bool, error) {
	val, err := r.db.Get(ctx, valueKey(path)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	if dst == nil {
		return true, nil
	}
	if err := json.Unmarshal(val, dst); err != nil {
		return true, fmt.Errorf("decoding %s: %w", path, err)
	}
	return true, nil
}

func (r *RedisStore) Set(ctx context.Context, path string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	seq, err := r.db.Incr(ctx, keyNamespace+":seq").Result()
	if err != nil {
		return fmt.Errorf("sequencing %s: %w", path, err)
	}

	_, err = r.db.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, valueKey(path), data, 0)
		r.index(ctx, pipe, path, seq)
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	r.publish(ctx, Event{Path: path, Kind: EventSet, Value: data})
	return nil
}

// Create claims the value key with SETNX; indexing follows only for the winner.
func (r *RedisStore) Create(ctx context.Context, path string, value any) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("encoding %s: %w", path, err)
	}
	created, err := r.db.SetNX(ctx, valueKey(path), data, 0).Result()
	if err != nil {
		return false, fmt.Errorf("creating %s: %w", path, err)
	}
	if !created {
		return false, nil
	}
	seq, err := r.db.Incr(ctx, keyNamespace+":seq").Result()
	if err != nil {
		return true, fmt.Errorf("sequencing %s: %w", path, err)
	}
	_, err = r.db.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		r.index(ctx, pipe, path, seq)
		return nil
	})
	if err != nil {
		return true, fmt.Errorf("indexing %s: %w", path, err)
	}
	r.publish(ctx, Event{Path: path, Kind: EventSet, Value: data})
	return true, nil
}

func (r *RedisStore) index(ctx context.Context, pipe redis.Pipeliner, path string, seq int64) {
	parent, leaf := parentOf(path)
	pipe.ZAddNX(ctx, childIndexKey(parent), redis.Z{Score: float64(seq), Member: leaf})
	for _, a := range ancestors(path) {
		pipe.SAdd(ctx, descendantsKey(a), path)
	}
}

func (r *RedisStore) Delete(ctx context.Context, path string) (bool, error) {
	descendants, err := r.db.SMembers(ctx, descendantsKey(path)).Result()
	if err != nil {
		return false, fmt.Errorf("listing %s: %w", path, err)
	}

	removed, err := r.db.Del(ctx, valueKey(path), streamKey(path)).Result()
	if err != nil {
		return false, fmt.Errorf("deleting %s: %w", path, err)
	}
	r.unindex(ctx, path)

	for _, d := range descendants {
		if err := r.db.Del(ctx, valueKey(d), streamKey(d)).Err(); err != nil {
			r.log.Warn("deleting descendant", zap.String("path", d), zap.Error(err))
			continue
		}
		r.unindex(ctx, d)
		r.publish(ctx, Event{Path: d, Kind: EventDelete})
	}
	r.db.Del(ctx, descendantsKey(path), childIndexKey(path))

	if removed > 0 || len(descendants) > 0 {
		r.publish(ctx, Event{Path: path, Kind: EventDelete})
	}
	return removed > 0, nil
}

func (r *RedisStore) unindex(ctx context.Context, path string) {
	parent, leaf := parentOf(path)
	_, err := r.db.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, childIndexKey(parent), leaf)
		for _, a := range ancestors(path) {
			pipe.SRem(ctx, descendantsKey(a), path)
		}
		return nil
	})
	if err != nil {
		r.log.Warn("unindexing path", zap.String("path", path), zap.Error(err))
	}
}

func (r *RedisStore) Children(ctx context.Context, parent string) ([]Child, error) {
	keys, err := r.db.ZRange(ctx, childIndexKey(parent), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing children of %s: %w", parent, err)
	}
	if len(keys) == 0 {
		return []Child{}, nil
	}

	valueKeys := make([]string, len(keys))
	for i, k := range keys {
		valueKeys[i] = valueKey(Join(parent, k))
	}
	values, err := r.db.MGet(ctx, valueKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("reading children of %s: %w", parent, err)
	}

	children := make([]Child, 0, len(keys))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		children = append(children, Child{Key: keys[i], Value: json.RawMessage(s)})
	}
	return children, nil
}

func (r *RedisStore) Append(ctx context.Context, parent string, value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", parent, err)
	}
	key := uuid.New().String()

	_, err = r.db.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, streamKey(parent), data)
		for _, a := range ancestors(parent) {
			pipe.SAdd(ctx, descendantsKey(a), parent)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("appending to %s: %w", parent, err)
	}
	r.publish(ctx, Event{Path: parent, Kind: EventAppend, Value: data})
	return key, nil
}

func (r *RedisStore) List(ctx context.Context, parent string) ([]json.RawMessage, error) {
	items, err := r.db.LRange(ctx, streamKey(parent), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading stream %s: %w", parent, err)
	}
	out := make([]json.RawMessage, len(items))
	for i, item := range items {
		out[i] = json.RawMessage(item)
	}
	return out, nil
}

func (r *RedisStore) Subscribe(ctx context.Context, prefix string) (<-chan Event, func(), error) {
	sub := r.db.PSubscribe(ctx, eventsChannel+prefix, eventsChannel+prefix+"/*")
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, nil, fmt.Errorf("error subscribing %w", err)
	}

	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				r.log.Warn("decoding store event", zap.Error(err))
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() { sub.Close() }
	go func() {
		<-ctx.Done()
		sub.Close()
	}()
	return out, cancel, nil
}

func (r *RedisStore) OnDisconnect(ctx context.Context, connID string, path string) error {
	if err := r.db.SAdd(ctx, disconnectKey(connID), path).Err(); err != nil {
		return fmt.Errorf("registering disconnect cleanup: %w", err)
	}
	return nil
}

func (r *RedisStore) CancelOnDisconnect(ctx context.Context, connID string, path string) error {
	if err := r.db.SRem(ctx, disconnectKey(connID), path).Err(); err != nil {
		return fmt.Errorf("cancelling disconnect cleanup: %w", err)
	}
	return nil
}

func (r *RedisStore) Disconnect(ctx context.Context, connID string) error {
	paths, err := r.db.SMembers(ctx, disconnectKey(connID)).Result()
	if err != nil {
		return fmt.Errorf("reading disconnect cleanup: %w", err)
	}
	for _, path := range paths {
		if _, err := r.Delete(ctx, path); err != nil {
			return err
		}
	}
	return r.db.Del(ctx, disconnectKey(connID)).Err()
}

func (r *RedisStore) publish(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		r.log.Warn("encoding store event", zap.Error(err))
		return
	}
	if err := r.db.Publish(ctx, eventsChannel+ev.Path, payload).Err(); err != nil {
		r.log.Warn("error publishing store event", zap.String("path", ev.Path), zap.Error(err))
	}
}
