package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/pocketsnooze/snoozerd/internal/domain"
	"github.com/pocketsnooze/snoozerd/internal/logger"
	"github.com/pocketsnooze/snoozerd/internal/pocket"
)

// Gateway is the slice of the Pocket client the reconciler uses.
type Gateway interface {
	Retrieve(ctx context.Context, opts pocket.RetrieveOptions) (map[string]pocket.Item, error)
	Modify(ctx context.Context, actions []pocket.Action) error
}

// ItemStore is the slice of the snooze store the reconciler uses.
type ItemStore interface {
	ListItems(ctx context.Context) ([]*domain.SnoozedItem, error)
	DeleteItems(ctx context.Context, ids ...string) error
}

// Reconciler resolves disagreements between the local snooze set and Pocket
// when a wake fires. Pocket's tag/archive state is the serialization point
// between devices: whether an item is still snoozed is re-checked remotely
// immediately before mutating, never trusted from the local cache.
type Reconciler struct {
	store   ItemStore
	gateway Gateway
	logger  logger.Logger

	// onComplete runs after items were woken, before the caller
	// reschedules. Wired to a forced metadata sync.
	onComplete func(ctx context.Context) error

	now func() time.Time
}

// Options configures a Reconciler.
type Options struct {
	Store      ItemStore
	Gateway    Gateway
	Logger     logger.Logger
	OnComplete func(ctx context.Context) error
	Now        func() time.Time
}

// New creates a reconciler.
func New(opts Options) *Reconciler {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Reconciler{
		store:      opts.Store,
		gateway:    opts.Gateway,
		logger:     opts.Logger,
		onComplete: opts.OnComplete,
		now:        now,
	}
}

// Reconcile wakes every item that is due. Items Pocket no longer reports as
// snoozed were handled by another device and are dropped locally without a
// remote call; confirmed items are woken with one batched action sequence and
// removed locally only after that call succeeds, so a failed call leaves them
// to be retried at the next wake.
func (r *Reconciler) Reconcile(ctx context.Context) error {
	items, err := r.store.ListItems(ctx)
	if err != nil {
		return fmt.Errorf("failed to read snoozed items: %w", err)
	}

	due, notYetDue := domain.Partition(items, r.now().Unix())
	if len(due) == 0 {
		r.logger.Debug("no items due",
			logger.Int("not_yet_due", len(notYetDue)))
		return nil
	}

	confirmed, absent, err := r.confirmRemote(ctx, due)
	if err != nil {
		return fmt.Errorf("failed to check remote snooze state: %w", err)
	}

	if len(confirmed) > 0 {
		actions := make([]pocket.Action, 0, len(confirmed)*3)
		for _, id := range confirmed {
			actions = append(actions, pocket.UnsnoozeActions(id)...)
		}
		if err := r.gateway.Modify(ctx, actions); err != nil {
			// Confirmed items stay local and are retried next
			// wake. Confirmed-absent records are still dropped:
			// the remote already has no snooze for them.
			r.dropAbsent(ctx, absent)
			r.logger.Warn("failed to unsnooze items remotely, keeping local records",
				logger.Strings("item_ids", confirmed),
				logger.Error(err))
			return fmt.Errorf("failed to unsnooze items: %w", err)
		}
		r.logger.Info("unsnoozed items in pocket",
			logger.Strings("item_ids", confirmed))
	} else {
		r.logger.Warn("no due items left to unsnooze in pocket")
	}

	if err := r.store.DeleteItems(ctx, domain.ItemIDs(due)...); err != nil {
		return fmt.Errorf("failed to remove woken items locally: %w", err)
	}
	if len(absent) > 0 {
		r.logger.Warn("items already unsnoozed remotely, dropped locally",
			logger.Strings("item_ids", absent))
	}

	if r.onComplete != nil {
		if err := r.onComplete(ctx); err != nil {
			r.logger.Warn("wake completion callback failed",
				logger.Error(err))
		}
	}
	return nil
}

// confirmRemote splits the due items into those Pocket still reports as
// snoozed (archived + tagged) and those another device already handled.
func (r *Reconciler) confirmRemote(ctx context.Context, due []*domain.SnoozedItem) (confirmed, absent []string, err error) {
	remote, err := r.gateway.Retrieve(ctx, pocket.RetrieveOptions{
		State:       "archived",
		Tag:         pocket.TagSnoozed,
		DetailsType: "simple",
	})
	if err != nil {
		return nil, nil, err
	}

	for _, item := range due {
		if _, ok := remote[item.ItemID]; ok {
			confirmed = append(confirmed, item.ItemID)
		} else {
			absent = append(absent, item.ItemID)
		}
	}
	return confirmed, absent, nil
}

func (r *Reconciler) dropAbsent(ctx context.Context, absent []string) {
	if len(absent) == 0 {
		return
	}
	if err := r.store.DeleteItems(ctx, absent...); err != nil {
		r.logger.Error("failed to drop remotely-handled items",
			logger.Strings("item_ids", absent),
			logger.Error(err))
	}
}
