package redis

import (
	"context"
	"encoding/json"

	"github.com/pocketsnooze/snoozerd/internal/utils"
)

// publishChange announces changed item IDs on the change channel. Delivery
// is best effort: a device that misses an announcement still converges via
// its fallback wake check.
func (s *Store) publishChange(ctx context.Context, ids ...string) {
	if len(ids) == 0 {
		return
	}
	payload, err := json.Marshal(ids)
	if err != nil {
		return
	}
	_ = s.client.Publish(ctx, ChannelChanges, payload).Err()
}

// Watch subscribes to the change channel and yields batches of changed item
// IDs until ctx is cancelled. Malformed announcements are skipped.
func (s *Store) Watch(ctx context.Context) <-chan []string {
	out := make(chan []string, 8)
	sub := s.client.Subscribe(ctx, ChannelChanges)

	go func() {
		defer close(out)
		defer utils.Close(sub)

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ids []string
				if err := json.Unmarshal([]byte(msg.Payload), &ids); err != nil {
					continue
				}
				if len(ids) == 0 {
					continue
				}
				select {
				case out <- ids:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}
