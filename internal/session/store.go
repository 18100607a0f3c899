// Package session holds the cached identity snapshot keyed by user id.
// The snapshot is a copy of the primary record, not authoritative
// state; deleting the entry is the revocation point for force-logout.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNoSession means no entry exists for the id. This is a normal
	// outcome, not a store failure.
	ErrNoSession = errors.New("session not found")

	// ErrUnavailable wraps connection-level failures. Callers must
	// treat it as deny, never as "no session, carry on".
	ErrUnavailable = errors.New("session store unavailable")
)

type Snapshot struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type Store struct {
	client *redis.Client
}

func NewStore(addr, password string) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	return &Store{client: client}
}

func NewStoreWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Put(ctx context.Context, id string, snap Snapshot, ttl time.Duration) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, key(id), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*Snapshot, error) {
	data, err := s.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Delete is idempotent; removing a missing key is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func key(id string) string {
	return "session:" + id
}
