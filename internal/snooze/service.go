package snooze

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pocketsnooze/snoozerd/internal/domain"
	"github.com/pocketsnooze/snoozerd/internal/logger"
	"github.com/pocketsnooze/snoozerd/internal/pocket"
	redisstore "github.com/pocketsnooze/snoozerd/internal/store/redis"
)

// DefaultSyncInterval is the minimum gap between unforced metadata syncs.
const DefaultSyncInterval = time.Hour

// Gateway is the slice of the Pocket client the operations use.
type Gateway interface {
	Add(ctx context.Context, url, tags string) (pocket.Item, error)
	Modify(ctx context.Context, actions []pocket.Action) error
	Retrieve(ctx context.Context, opts pocket.RetrieveOptions) (map[string]pocket.Item, error)
}

// Store is the slice of the snooze store the operations use.
type Store interface {
	SaveItem(ctx context.Context, item *domain.SnoozedItem) error
	GetItem(ctx context.Context, id string) (*domain.SnoozedItem, error)
	ListItems(ctx context.Context) ([]*domain.SnoozedItem, error)
	DeleteItems(ctx context.Context, ids ...string) error
	LastSynced(ctx context.Context) (int64, error)
	SetLastSynced(ctx context.Context, ts int64) error
}

// WakePlanner reprograms the next wake after the snooze set changed.
type WakePlanner interface {
	Reschedule(ctx context.Context) error
}

// Service holds the mutating entry points of the snooze core: snooze a page,
// manually unsnooze or archive an item, and the periodic metadata sync.
type Service struct {
	store        Store
	gateway      Gateway
	planner      WakePlanner
	logger       logger.Logger
	syncInterval time.Duration
	now          func() time.Time
}

// Options configures a Service.
type Options struct {
	Store        Store
	Gateway      Gateway
	Planner      WakePlanner
	Logger       logger.Logger
	SyncInterval time.Duration
	Now          func() time.Time
}

// New creates the snooze operations service.
func New(opts Options) *Service {
	interval := opts.SyncInterval
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:        opts.Store,
		gateway:      opts.Gateway,
		planner:      opts.Planner,
		logger:       opts.Logger,
		syncInterval: interval,
		now:          now,
	}
}

// itemToSnoozed converts a Pocket API item into its local projection.
func itemToSnoozed(item pocket.Item, until int64) *domain.SnoozedItem {
	return &domain.SnoozedItem{
		ItemID:         item.ItemID,
		URL:            item.BestURL(),
		Title:          item.BestTitle(),
		UntilTimestamp: until,
	}
}

// Snooze saves url to Pocket, archives it under the snoozed tag, records the
// local wake time, reprograms the wake if this item is due sooner than
// anything else, and forces a metadata sync.
func (s *Service) Snooze(ctx context.Context, url string, until int64) error {
	item, err := s.gateway.Add(ctx, url, pocket.TagSnoozed)
	if err != nil {
		return fmt.Errorf("failed to add %s to pocket: %w", url, err)
	}
	if err := s.gateway.Modify(ctx, []pocket.Action{pocket.ArchiveAction(item.ItemID)}); err != nil {
		return fmt.Errorf("failed to archive item %s: %w", item.ItemID, err)
	}

	if err := s.store.SaveItem(ctx, itemToSnoozed(item, until)); err != nil {
		return err
	}
	s.logger.Info("snoozed page",
		logger.String("item_id", item.ItemID),
		logger.String("url", url),
		logger.Int64("until", until))

	if err := s.planner.Reschedule(ctx); err != nil {
		s.logger.Error("failed to reprogram wake after snooze",
			logger.Error(err))
	}
	return s.Sync(ctx, true)
}

// Unsnooze manually wakes one item: readd + tag swap in Pocket first, local
// removal only after that succeeds. Calling it again for the same ID is a
// no-op.
func (s *Service) Unsnooze(ctx context.Context, itemID string) error {
	if _, err := s.store.GetItem(ctx, itemID); err != nil {
		if errors.Is(err, redisstore.ErrNotFound) {
			s.logger.Debug("item already unsnoozed",
				logger.String("item_id", itemID))
			return nil
		}
		return err
	}

	if err := s.gateway.Modify(ctx, pocket.UnsnoozeActions(itemID)); err != nil {
		return fmt.Errorf("failed to unsnooze item %s: %w", itemID, err)
	}
	if err := s.store.DeleteItems(ctx, itemID); err != nil {
		return err
	}
	s.logger.Info("unsnoozed item", logger.String("item_id", itemID))

	if err := s.planner.Reschedule(ctx); err != nil {
		s.logger.Error("failed to reprogram wake after unsnooze",
			logger.Error(err))
	}
	return nil
}

// Archive moves an item to the Pocket archive without touching its snooze
// state.
func (s *Service) Archive(ctx context.Context, itemID string) error {
	if err := s.gateway.Modify(ctx, []pocket.Action{pocket.ArchiveAction(itemID)}); err != nil {
		return fmt.Errorf("failed to archive item %s: %w", itemID, err)
	}
	s.logger.Info("archived item", logger.String("item_id", itemID))
	return nil
}

// ListSnoozed enumerates the local snooze set without any remote call.
func (s *Service) ListSnoozed(ctx context.Context) ([]*domain.SnoozedItem, error) {
	return s.store.ListItems(ctx)
}

// Sync refreshes the cached url/title of locally known snoozed items from
// Pocket. Unforced calls within the sync interval do nothing. The local
// untilTimestamp always survives, since Pocket cannot know it. lastSynced
// advances on every completed sync, even an empty one, to bound the next
// query window.
func (s *Service) Sync(ctx context.Context, force bool) error {
	nowTS := s.now().Unix()
	lastSynced, err := s.store.LastSynced(ctx)
	if err != nil {
		return err
	}
	if !force && nowTS < lastSynced+int64(s.syncInterval.Seconds()) {
		s.logger.Debug("sync rate-limited",
			logger.Int64("last_synced", lastSynced))
		return nil
	}

	remote, err := s.gateway.Retrieve(ctx, pocket.RetrieveOptions{
		Tag:         pocket.TagSnoozed,
		DetailsType: "simple",
		Since:       lastSynced,
	})
	if err != nil {
		return fmt.Errorf("failed to fetch snoozed items from pocket: %w", err)
	}

	items, err := s.store.ListItems(ctx)
	if err != nil {
		return err
	}

	updated := 0
	for _, item := range items {
		remoteItem, ok := remote[item.ItemID]
		if !ok {
			continue
		}
		refreshed := itemToSnoozed(remoteItem, item.UntilTimestamp)
		if *refreshed == *item {
			continue
		}
		if err := s.store.SaveItem(ctx, refreshed); err != nil {
			return err
		}
		updated++
	}

	if err := s.store.SetLastSynced(ctx, nowTS); err != nil {
		return err
	}
	s.logger.Info("sync completed",
		logger.Int("remote_items", len(remote)),
		logger.Int("updated", updated),
		logger.Bool("forced", force))
	return nil
}
