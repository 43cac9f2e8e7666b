package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pocketsnooze/snoozerd/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a snoozed item record does not exist.
var ErrNotFound = errors.New("snoozed item not found")

// Store is the persistent snooze store. The backing Redis instance is shared
// by the user's devices and is only eventually consistent: a write is not
// assumed to be immediately visible elsewhere, and any read may be stale.
type Store struct {
	client *redis.Client
}

// NewStore creates a snooze store on top of an established Redis client.
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// SaveItem stores a snoozed item record and announces the change.
func (s *Store) SaveItem(ctx context.Context, item *domain.SnoozedItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal snoozed item: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, ItemKey(item.ItemID), data, 0)
	pipe.SAdd(ctx, KeyAllItems, item.ItemID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save snoozed item: %w", err)
	}

	s.publishChange(ctx, item.ItemID)
	return nil
}

// GetItem retrieves one snoozed item record by ID.
func (s *Store) GetItem(ctx context.Context, id string) (*domain.SnoozedItem, error) {
	data, err := s.client.Get(ctx, ItemKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get snoozed item: %w", err)
	}

	var item domain.SnoozedItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snoozed item: %w", err)
	}
	return &item, nil
}

// ListItems retrieves all snoozed item records.
func (s *Store) ListItems(ctx context.Context) ([]*domain.SnoozedItem, error) {
	ids, err := s.client.SMembers(ctx, KeyAllItems).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get snoozed item IDs: %w", err)
	}
	if len(ids) == 0 {
		return []*domain.SnoozedItem{}, nil
	}

	items := make([]*domain.SnoozedItem, 0, len(ids))
	for _, id := range ids {
		item, err := s.GetItem(ctx, id)
		if err != nil {
			// Records can vanish between SMembers and Get when
			// another device removes them.
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// DeleteItems removes snoozed item records (bulk operation). Missing IDs are
// tolerated so concurrent removal by another device is a no-op.
func (s *Store) DeleteItems(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, ItemKey(id))
		pipe.SRem(ctx, KeyAllItems, id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete snoozed items: %w", err)
	}

	s.publishChange(ctx, ids...)
	return nil
}
