// Package session keeps the per-chat conversation state of multi-step
// flows in Redis.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type State string

const (
	StateIdle                 State = "idle"
	StateAwaitingSignal       State = "awaiting_signal"
	StateAwaitingField        State = "awaiting_field"
	StateAwaitingValue        State = "awaiting_value"
	StateAwaitingDeletion     State = "awaiting_deletion_selection"
	StateAwaitingAdminUpgrade State = "awaiting_admin_upgrade"
)

// Key scopes a conversation to one user in one chat.
type Key struct {
	UserID int64
	ChatID int64
}

func (k Key) String() string {
	return fmt.Sprintf("session:%d:%d", k.ChatID, k.UserID)
}

type Conversation struct {
	State     State     `json:"state"`
	SignalID  uint      `json:"signal_id,omitempty"`
	Field     string    `json:"field,omitempty"`
	Selected  []uint    `json:"selected,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Conversation) IsSelected(id uint) bool {
	for _, s := range c.Selected {
		if s == id {
			return true
		}
	}
	return false
}

type Store interface {
	// Load returns an idle conversation when nothing is stored.
	Load(ctx context.Context, key Key) (*Conversation, error)
	Save(ctx context.Context, key Key, conv *Conversation) error
	// Update applies fn to the stored conversation atomically. An error from
	// fn leaves the stored conversation unchanged and is returned as is.
	Update(ctx context.Context, key Key, fn func(conv *Conversation) error) error
	Clear(ctx context.Context, key Key) error
}

const maxUpdateAttempts = 10

// RedisStore keeps each conversation as JSON under a key that expires after
// ttl of inactivity.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, key Key) (*Conversation, error) {
	return load(ctx, s.rdb, key)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func load(ctx context.Context, rdb getter, key Key) (*Conversation, error) {
	raw, err := rdb.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return &Conversation{State: StateIdle}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", key, err)
	}

	var conv Conversation
	if err := json.Unmarshal(raw, &conv); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", key, err)
	}
	return &conv, nil
}

func (s *RedisStore) Save(ctx context.Context, key Key, conv *Conversation) error {
	raw, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", key, err)
	}
	if err := s.rdb.Set(ctx, key.String(), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session %s: %w", key, err)
	}
	return nil
}

// Update reads, changes and writes the conversation under WATCH and retries
// when another writer commits to the same key in between.
func (s *RedisStore) Update(ctx context.Context, key Key, fn func(conv *Conversation) error) error {
	txf := func(tx *redis.Tx) error {
		conv, err := load(ctx, tx, key)
		if err != nil {
			return err
		}
		if err := fn(conv); err != nil {
			return err
		}
		raw, err := json.Marshal(conv)
		if err != nil {
			return fmt.Errorf("failed to encode session %s: %w", key, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key.String(), raw, s.ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.rdb.Watch(ctx, txf, key.String())
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("failed to update session %s: %w", key, redis.TxFailedErr)
}

func (s *RedisStore) Clear(ctx context.Context, key Key) error {
	if err := s.rdb.Del(ctx, key.String()).Err(); err != nil {
		return fmt.Errorf("failed to clear session %s: %w", key, err)
	}
	return nil
}
