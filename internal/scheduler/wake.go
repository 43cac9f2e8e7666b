package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pocketsnooze/snoozerd/internal/domain"
	"github.com/pocketsnooze/snoozerd/internal/logger"
)

// Reconciler performs the due-item reconciliation when a wake fires.
type Reconciler interface {
	Reconcile(ctx context.Context) error
}

// ItemSource is the slice of the snooze store the scheduler reads.
type ItemSource interface {
	ListItems(ctx context.Context) ([]*domain.SnoozedItem, error)
}

// WakeScheduler owns the single pending wake. Reprogramming replaces the
// pending timer, never stacks a second one, and all state is recomputed from
// the persisted snooze set: nothing in memory needs to survive a restart.
type WakeScheduler struct {
	items      ItemSource
	reconciler Reconciler
	logger     logger.Logger

	// fallback is the re-check interval used when no items remain, so
	// cross-device changes are eventually noticed even without a local
	// mutation. Zero clears the timer instead.
	fallback time.Duration

	// grace delays the startup due-check to let cross-device sync settle
	// before waking anything. Avoids waking an item another device just
	// re-snoozed.
	grace time.Duration

	// retryBackoff is the minimum delay before the next wake after a
	// failed reconciliation. Rescheduling an overdue item floors its wake
	// at now, so without this a remote outage would refire immediately.
	retryBackoff time.Duration

	changes <-chan []string
	now     func() time.Time

	mu    sync.Mutex
	timer *time.Timer
	next  time.Time

	fireCh chan struct{}
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Options configures a WakeScheduler.
type Options struct {
	Items        ItemSource
	Reconciler   Reconciler
	Logger       logger.Logger
	Fallback     time.Duration   // 0 = clear the timer when no items remain
	Grace        time.Duration   // delay before the startup due-check
	RetryBackoff time.Duration   // delay before retrying a failed wake, default 1m
	Changes      <-chan []string // store change announcements, may be nil
	Now          func() time.Time
}

// New creates a wake scheduler.
func New(opts Options) *WakeScheduler {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	retryBackoff := opts.RetryBackoff
	if retryBackoff <= 0 {
		retryBackoff = time.Minute
	}
	return &WakeScheduler{
		items:        opts.Items,
		reconciler:   opts.Reconciler,
		logger:       opts.Logger,
		fallback:     opts.Fallback,
		grace:        opts.Grace,
		retryBackoff: retryBackoff,
		changes:      opts.Changes,
		now:          now,
		fireCh:       make(chan struct{}, 1),
		stopCh:       make(chan struct{}),
	}
}

// Start schedules the startup due-check and begins handling wake events.
// The first wake fires after the grace window to catch items that came due
// while the process was down.
func (s *WakeScheduler) Start(ctx context.Context) error {
	startupCheck := s.now().Add(s.grace)
	s.scheduleAt(startupCheck)
	s.logger.Info("startup wake check scheduled",
		logger.Time("at", startupCheck),
		logger.Duration("grace", s.grace))

	s.wg.Add(1)
	go s.run(ctx)
	return nil
}

// Stop halts wake handling. Pending timers are discarded.
func (s *WakeScheduler) Stop() {
	close(s.stopCh)
	s.clearTimer()
	s.wg.Wait()
}

func (s *WakeScheduler) run(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-s.fireCh:
			s.handleWake(ctx)
		case ids, ok := <-s.changes:
			if !ok {
				s.changes = nil
				continue
			}
			s.logger.Debug("snooze set changed, recomputing next wake",
				logger.Strings("item_ids", ids))
			if err := s.Reschedule(ctx); err != nil {
				s.logger.Error("failed to reschedule after change",
					logger.Error(err))
			}
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *WakeScheduler) handleWake(ctx context.Context) {
	s.logger.Info("wake fired")
	if err := s.reconciler.Reconcile(ctx); err != nil {
		// Unresolved items are still due, and a plain Reschedule would
		// floor their wake at now and refire instantly. Back off
		// instead and retry when the remote may have recovered.
		at := s.now().Add(s.retryBackoff)
		s.scheduleAt(at)
		s.logger.Warn("reconciliation left local state unresolved, retry scheduled",
			logger.Time("at", at),
			logger.Error(err))
		return
	}
	if err := s.Reschedule(ctx); err != nil {
		s.logger.Error("failed to reschedule after wake",
			logger.Error(err))
	}
}

// Reschedule recomputes the next wake from the persisted snooze set:
// min(untilTimestamp) floored at now, or the fallback interval when no items
// remain. The pending timer is replaced atomically from the caller's
// perspective.
func (s *WakeScheduler) Reschedule(ctx context.Context) error {
	items, err := s.items.ListItems(ctx)
	if err != nil {
		return fmt.Errorf("failed to read snoozed items: %w", err)
	}

	nowTS := s.now().Unix()
	next, ok := domain.NextWake(items, nowTS)
	if !ok {
		if s.fallback <= 0 {
			s.clearTimer()
			s.logger.Info("no snoozed items remain, wake timer cleared")
			return nil
		}
		at := s.now().Add(s.fallback)
		s.scheduleAt(at)
		s.logger.Info("no snoozed items remain, fallback re-check scheduled",
			logger.Time("at", at))
		return nil
	}

	at := time.Unix(next, 0)
	s.scheduleAt(at)
	s.logger.Info("next wake scheduled",
		logger.Time("at", at),
		logger.Int("items", len(items)))
	return nil
}

// NextWake returns the time of the pending wake, if one is programmed.
func (s *WakeScheduler) NextWake() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next, s.timer != nil
}

// scheduleAt replaces the pending wake with one at t.
func (s *WakeScheduler) scheduleAt(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	d := time.Until(t)
	if d < 0 {
		d = 0
	}
	s.next = t
	s.timer = time.AfterFunc(d, func() {
		select {
		case s.fireCh <- struct{}{}:
		default:
			// A wake is already pending; firing twice adds nothing.
		}
	})
}

func (s *WakeScheduler) clearTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.next = time.Time{}
}
