package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/velora/storefront/pkg/errors"
)

// RedisRecordStore persists the session record under a fixed key and fans
// out change notifications over pub/sub. Every storefront process sharing
// the key sees logins and logouts from the others, the same way browser tabs
// observe storage events.
type RedisRecordStore struct {
	client  *redis.Client
	key     string
	channel string
}

// NewRedisRecordStore creates a Redis-backed record store.
func NewRedisRecordStore(client *redis.Client, key string) *RedisRecordStore {
	return &RedisRecordStore{
		client:  client,
		key:     key,
		channel: key + ":events",
	}
}

// Load retrieves the record. A missing key reports absent; a record that no
// longer parses is deleted and reported absent, so a corrupt write can never
// wedge startup.
func (r *RedisRecordStore) Load(ctx context.Context) (*Record, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound("session record", r.key)
		}
		return nil, fmt.Errorf("redis get session record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		_ = r.client.Del(ctx, r.key).Err()
		return nil, apperrors.NotFound("session record", r.key)
	}

	return &rec, nil
}

// Save persists the record and publishes a change notification.
func (r *RedisRecordStore) Save(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}

	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set session record: %w", err)
	}

	if err := r.client.Publish(ctx, r.channel, "updated").Err(); err != nil {
		return fmt.Errorf("publish session record change: %w", err)
	}
	return nil
}

// Delete removes the record and publishes a change notification.
func (r *RedisRecordStore) Delete(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis del session record: %w", err)
	}

	if err := r.client.Publish(ctx, r.channel, "removed").Err(); err != nil {
		return fmt.Errorf("publish session record change: %w", err)
	}
	return nil
}

// Watch subscribes to record change notifications. Each notification is
// resolved to the current record state with a fresh Load, so watchers always
// observe the latest value rather than the payload of a stale message.
func (r *RedisRecordStore) Watch(ctx context.Context) (<-chan Event, error) {
	pubsub := r.client.Subscribe(ctx, r.channel)

	// Confirm the subscription is active before returning.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to session channel: %w", err)
	}

	out := make(chan Event, 8)

	go func() {
		defer close(out)
		defer func() { _ = pubsub.Close() }()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				rec, err := r.Load(ctx)
				ev, deliver := resolveNotification(rec, err)
				if !deliver {
					continue
				}
				out <- ev
			}
		}
	}()

	return out, nil
}

// resolveNotification maps the outcome of the post-notification read to an
// event. Only a definitively absent record becomes a removal; a transient
// read failure delivers nothing, because the next notification re-resolves
// the state and a Redis blip must not masquerade as a logout.
func resolveNotification(rec *Record, err error) (Event, bool) {
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return Event{}, true
		}
		return Event{}, false
	}
	return Event{Record: rec}, true
}
