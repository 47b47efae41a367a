package lists

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

const updatedKey = "lists:updated"

// Store keeps operator-managed lists in Redis sets.
type Store struct {
	client redis.Cmdable
}

func NewStore(client redis.Cmdable) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &Store{client: client}, nil
}

func (s *Store) Add(ctx context.Context, name Name, entries ...string) error {
	if len(entries) == 0 {
		return nil
	}
	members := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		if err := ValidateEntry(e); err != nil {
			return err
		}
		members = append(members, e)
	}

	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, name.redisKey(), members...)
	pipe.HSet(ctx, updatedKey, string(name), time.Now().UTC().Format(time.RFC3339Nano))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add to %s list: %w", name, err)
	}
	return nil
}

// Remove deletes entry from the list. It returns ErrNotFound when the entry
// was not a member.
func (s *Store) Remove(ctx context.Context, name Name, entry string) error {
	if err := ValidateEntry(entry); err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	removed := pipe.SRem(ctx, name.redisKey(), entry)
	pipe.HSet(ctx, updatedKey, string(name), time.Now().UTC().Format(time.RFC3339Nano))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("remove from %s list: %w", name, err)
	}
	if removed.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

// Members returns the sorted entries of the list.
func (s *Store) Members(ctx context.Context, name Name) ([]string, error) {
	members, err := s.client.SMembers(ctx, name.redisKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s members: %w", name, err)
	}
	sort.Strings(members)
	return members, nil
}

// UpdatedAt returns the time of the last change, zero if never changed.
func (s *Store) UpdatedAt(ctx context.Context, name Name) (time.Time, error) {
	val, err := s.client.HGet(ctx, updatedKey, string(name)).Result()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("list %s updated: %w", name, err)
	}
	return time.Parse(time.RFC3339Nano, val)
}
