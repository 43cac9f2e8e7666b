package snooze

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketsnooze/snoozerd/internal/domain"
	"github.com/pocketsnooze/snoozerd/internal/logger"
	"github.com/pocketsnooze/snoozerd/internal/pocket"
	redisstore "github.com/pocketsnooze/snoozerd/internal/store/redis"
)

type fakeGateway struct {
	added    pocket.Item
	addErr   error
	remote   map[string]pocket.Item
	lastOpts pocket.RetrieveOptions

	addCalls      int
	retrieveCalls int
	modified      [][]pocket.Action
	modifyErr     error
}

func (f *fakeGateway) Add(ctx context.Context, url, tags string) (pocket.Item, error) {
	f.addCalls++
	if f.addErr != nil {
		return pocket.Item{}, f.addErr
	}
	return f.added, nil
}

func (f *fakeGateway) Modify(ctx context.Context, actions []pocket.Action) error {
	f.modified = append(f.modified, actions)
	return f.modifyErr
}

func (f *fakeGateway) Retrieve(ctx context.Context, opts pocket.RetrieveOptions) (map[string]pocket.Item, error) {
	f.retrieveCalls++
	f.lastOpts = opts
	return f.remote, nil
}

type fakeStore struct {
	items      map[string]*domain.SnoozedItem
	lastSynced int64
	saves      int
}

func newFakeStore(items ...*domain.SnoozedItem) *fakeStore {
	m := make(map[string]*domain.SnoozedItem, len(items))
	for _, item := range items {
		m[item.ItemID] = item
	}
	return &fakeStore{items: m}
}

func (f *fakeStore) SaveItem(ctx context.Context, item *domain.SnoozedItem) error {
	f.items[item.ItemID] = item
	f.saves++
	return nil
}

func (f *fakeStore) GetItem(ctx context.Context, id string) (*domain.SnoozedItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, redisstore.ErrNotFound
	}
	return item, nil
}

func (f *fakeStore) ListItems(ctx context.Context) ([]*domain.SnoozedItem, error) {
	out := make([]*domain.SnoozedItem, 0, len(f.items))
	for _, item := range f.items {
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeStore) DeleteItems(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		delete(f.items, id)
	}
	return nil
}

func (f *fakeStore) LastSynced(ctx context.Context) (int64, error) { return f.lastSynced, nil }

func (f *fakeStore) SetLastSynced(ctx context.Context, ts int64) error {
	f.lastSynced = ts
	return nil
}

type fakePlanner struct{ reschedules int }

func (f *fakePlanner) Reschedule(ctx context.Context) error {
	f.reschedules++
	return nil
}

func newService(store *fakeStore, gw *fakeGateway, planner *fakePlanner, now int64) *Service {
	return New(Options{
		Store:   store,
		Gateway: gw,
		Planner: planner,
		Logger:  logger.New("error", false),
		Now:     func() time.Time { return time.Unix(now, 0) },
	})
}

func TestSnoozeSavesArchivesAndReprograms(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{
		added: pocket.Item{ItemID: "42", GivenURL: "https://example.com/a", GivenTitle: "A page"},
	}
	planner := &fakePlanner{}
	svc := newService(store, gw, planner, 1000)

	require.NoError(t, svc.Snooze(context.Background(), "https://example.com/a", 2000))

	require.Len(t, gw.modified, 1)
	assert.Equal(t, []pocket.Action{pocket.ArchiveAction("42")}, gw.modified[0])

	saved, err := store.GetItem(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", saved.URL)
	assert.Equal(t, "A page", saved.Title)
	assert.Equal(t, int64(2000), saved.UntilTimestamp)

	assert.Equal(t, 1, planner.reschedules)
	assert.Equal(t, 1, gw.retrieveCalls, "snooze forces a sync")
	assert.Equal(t, int64(1000), store.lastSynced)
}

func TestSnoozeThenSyncStaysQuiet(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{added: pocket.Item{ItemID: "42", GivenURL: "https://example.com/a"}}
	svc := newService(store, gw, &fakePlanner{}, 1000)

	require.NoError(t, svc.Snooze(context.Background(), "https://example.com/a", 2000))
	require.NoError(t, svc.Sync(context.Background(), false))

	assert.Equal(t, 1, gw.retrieveCalls, "an unforced sync right after a snooze is redundant")
}

func TestUnsnoozeCallsPocketBeforeRemoving(t *testing.T) {
	store := newFakeStore(&domain.SnoozedItem{ItemID: "42", UntilTimestamp: 2000})
	gw := &fakeGateway{}
	planner := &fakePlanner{}
	svc := newService(store, gw, planner, 1000)

	require.NoError(t, svc.Unsnooze(context.Background(), "42"))

	require.Len(t, gw.modified, 1)
	assert.Equal(t, pocket.UnsnoozeActions("42"), gw.modified[0])
	assert.NotContains(t, store.items, "42")
	assert.Equal(t, 1, planner.reschedules)
}

func TestUnsnoozeFailureKeepsLocalRecord(t *testing.T) {
	store := newFakeStore(&domain.SnoozedItem{ItemID: "42", UntilTimestamp: 2000})
	gw := &fakeGateway{
		modifyErr: &pocket.RequestError{Kind: pocket.KindTransport, Message: "dial failed", XError: pocket.XErrorTransport},
	}
	svc := newService(store, gw, &fakePlanner{}, 1000)

	require.Error(t, svc.Unsnooze(context.Background(), "42"))
	assert.Contains(t, store.items, "42", "record survives a failed remote call")
}

func TestUnsnoozeUnknownItemIsNoOp(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{}
	planner := &fakePlanner{}
	svc := newService(store, gw, planner, 1000)

	require.NoError(t, svc.Unsnooze(context.Background(), "42"))
	require.NoError(t, svc.Unsnooze(context.Background(), "42"))

	assert.Empty(t, gw.modified, "no remote calls for an already-woken item")
	assert.Zero(t, planner.reschedules)
}

func TestSyncRateLimited(t *testing.T) {
	store := newFakeStore()
	store.lastSynced = 900
	gw := &fakeGateway{}
	svc := newService(store, gw, &fakePlanner{}, 1000)

	require.NoError(t, svc.Sync(context.Background(), false))

	assert.Zero(t, gw.retrieveCalls)
	assert.Equal(t, int64(900), store.lastSynced, "a skipped sync does not advance the marker")
}

func TestForcedSyncIgnoresRateLimit(t *testing.T) {
	store := newFakeStore()
	store.lastSynced = 900
	gw := &fakeGateway{}
	svc := newService(store, gw, &fakePlanner{}, 1000)

	require.NoError(t, svc.Sync(context.Background(), true))

	assert.Equal(t, 1, gw.retrieveCalls)
	assert.Equal(t, int64(900), gw.lastOpts.Since, "query window starts at the previous sync")
	assert.Equal(t, int64(1000), store.lastSynced)
}

func TestSyncRefreshesMetadataKeepingWakeTime(t *testing.T) {
	store := newFakeStore(&domain.SnoozedItem{
		ItemID:         "42",
		URL:            "https://example.com/a",
		Title:          "old title",
		UntilTimestamp: 2000,
	})
	gw := &fakeGateway{
		remote: map[string]pocket.Item{
			"42": {ItemID: "42", ResolvedURL: "https://example.com/a", ResolvedTitle: "new title"},
			"99": {ItemID: "99", ResolvedURL: "https://example.com/b"},
		},
	}
	svc := newService(store, gw, &fakePlanner{}, 1000)

	require.NoError(t, svc.Sync(context.Background(), true))

	refreshed := store.items["42"]
	assert.Equal(t, "new title", refreshed.Title)
	assert.Equal(t, int64(2000), refreshed.UntilTimestamp, "local wake time is never overwritten")
	assert.NotContains(t, store.items, "99", "sync never invents local records")
}

func TestSyncSkipsUnchangedItems(t *testing.T) {
	store := newFakeStore(&domain.SnoozedItem{
		ItemID:         "42",
		URL:            "https://example.com/a",
		Title:          "same",
		UntilTimestamp: 2000,
	})
	gw := &fakeGateway{
		remote: map[string]pocket.Item{
			"42": {ItemID: "42", ResolvedURL: "https://example.com/a", ResolvedTitle: "same"},
		},
	}
	svc := newService(store, gw, &fakePlanner{}, 1000)

	require.NoError(t, svc.Sync(context.Background(), true))
	assert.Zero(t, store.saves, "identical metadata is not rewritten")
}
