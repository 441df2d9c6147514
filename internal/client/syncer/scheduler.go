package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/everkeep/internal/client/client"
	"github.com/dmitrijs2005/everkeep/internal/journal"
	"github.com/dmitrijs2005/everkeep/internal/logging"
	"github.com/sethvargo/go-retry"
)

var (
	ErrSyncDisabled = errors.New("cloud sync is off")
	ErrOffline      = errors.New("offline")
	ErrStopped      = errors.New("scheduler stopped")
)

// Store is the journal state the scheduler backs up and restores into.
// CloudSyncEnabled is called with the scheduler's lock held; no Store method
// may call back into the Scheduler.
type Store interface {
	CloudSyncEnabled() bool
	OwnerKey(ctx context.Context) (string, error)
	// Snapshot returns a copy of the current document.
	Snapshot() *journal.Document
	// ApplyRemote merges remote into the local document and persists the
	// result without triggering another sync.
	ApplyRemote(ctx context.Context, remote *journal.Document) error
}

// Notifier surfaces sync problems to the user. SyncFailed fires once per
// failure streak and SyncRecovered once when the streak ends.
type Notifier interface {
	SyncFailed(msg string)
	SyncRecovered(msg string)
}

type Options struct {
	Debounce  time.Duration
	RetryBase time.Duration
	RetryMax  time.Duration
}

func (o Options) withDefaults() Options {
	if o.Debounce <= 0 {
		o.Debounce = 800 * time.Millisecond
	}
	if o.RetryBase <= 0 {
		o.RetryBase = 2 * time.Second
	}
	if o.RetryMax <= 0 {
		o.RetryMax = 60 * time.Second
	}
	return o
}

type slot int

const (
	slotDebounce slot = iota
	slotRestoreRetry
	slotBackupRetry
	slotCount
)

type timerHandle struct {
	timer *time.Timer
	gen   uint64
}

type Scheduler struct {
	client   client.Client
	store    Store
	notifier Notifier
	logger   logging.Logger
	opts     Options
	now      func() time.Time

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stopped          bool
	online           bool
	state            State
	inFlight         bool
	restoreAttempted bool
	errorShown       bool
	lastError        string
	cause            string
	lastSuccess      time.Time
	attempt          int
	backoff          retry.Backoff
	timers           [slotCount]timerHandle
	gen              uint64

	// operations requested while another call was in flight
	pendingRestore       bool
	pendingRestoreBackup bool
	pendingBackup        bool
}

func New(c client.Client, store Store, notifier Notifier, logger logging.Logger, opts Options) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		client:   c,
		store:    store,
		notifier: notifier,
		logger:   logger.With("module", "syncer"),
		opts:     opts.withDefaults(),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		online:   true,
	}
	s.resetBackoff()
	return s
}

// resetBackoff restarts the retry sequence at 2*RetryBase, doubling up to
// RetryMax. Callers hold mu.
func (s *Scheduler) resetBackoff() {
	s.attempt = 0
	s.backoff = retry.WithCappedDuration(s.opts.RetryMax, retry.NewExponential(2*s.opts.RetryBase))
}

// Start kicks off the first sync of the session when cloud sync is on.
func (s *Scheduler) Start() {
	s.NotifySaved()
}

// Stop cancels all timers and waits for running sync calls to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.cancelTimersLocked()
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

// NotifySaved is called after every local save that should reach the
// server.
func (s *Scheduler) NotifySaved() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduleLocked()
}

// SetOnline records connectivity. Coming online schedules a sync.
func (s *Scheduler) SetOnline(online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	was := s.online
	s.online = online
	if online && !was {
		s.logger.Info(s.ctx, "online")
		s.scheduleLocked()
	} else if !online && was {
		s.logger.Info(s.ctx, "offline")
	}
}

// Enable is called once cloud sync has been switched on and persisted. It
// performs a fresh restore before any backup.
func (s *Scheduler) Enable() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.restoreAttempted = false
	if !s.online {
		s.state = RestorePending
		return
	}
	s.startRestoreLocked(true)
}

// Disable drops every pending timer and all error state so that enabling
// again starts from a restore.
func (s *Scheduler) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelTimersLocked()
	s.restoreAttempted = false
	s.pendingRestore = false
	s.pendingRestoreBackup = false
	s.pendingBackup = false
	s.errorShown = false
	s.lastError = ""
	s.cause = ""
	s.resetBackoff()
	s.state = Idle
}

// OwnerKeyRotated treats the new identity as already restored and schedules
// a backup under it.
func (s *Scheduler) OwnerKeyRotated() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelTimersLocked()
	s.restoreAttempted = true
	s.scheduleLocked()
}

// SyncNow runs the next due operation immediately in the caller's goroutine
// and returns its error. While another call is in flight the operation is
// queued instead.
func (s *Scheduler) SyncNow(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.stopped:
		s.mu.Unlock()
		return ErrStopped
	case !s.store.CloudSyncEnabled():
		s.mu.Unlock()
		return ErrSyncDisabled
	case !s.online:
		s.mu.Unlock()
		return ErrOffline
	}

	s.cancelTimerLocked(slotDebounce)
	if !s.restoreAttempted {
		s.mu.Unlock()
		return s.restore(ctx, true)
	}
	s.mu.Unlock()
	return s.backup(ctx)
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	st := Status{
		State:            s.state,
		Enabled:          s.store.CloudSyncEnabled(),
		Online:           s.online,
		InFlight:         s.inFlight,
		RestoreAttempted: s.restoreAttempted,
		Attempt:          s.attempt,
		LastError:        s.lastError,
		Cause:            s.cause,
		LastSuccess:      s.lastSuccess,
	}
	s.mu.Unlock()
	st.Label = label(st)
	return st
}

// scheduleLocked: restore first if this session has not tried yet,
// otherwise (re)arm the debounce timer.
func (s *Scheduler) scheduleLocked() {
	if s.stopped || !s.store.CloudSyncEnabled() || !s.online {
		return
	}
	if !s.restoreAttempted {
		s.startRestoreLocked(true)
		return
	}
	s.armLocked(slotDebounce, s.opts.Debounce, func() { _ = s.backup(s.ctx) })
	if !s.inFlight && s.state != ErrorBackoff {
		s.state = BackupScheduled
	}
}

func (s *Scheduler) startRestoreLocked(triggerBackup bool) {
	if s.stopped {
		return
	}
	if s.inFlight {
		s.pendingRestore = true
		s.pendingRestoreBackup = s.pendingRestoreBackup || triggerBackup
		return
	}
	s.state = RestorePending
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.restore(s.ctx, triggerBackup)
	}()
}

// armLocked replaces the timer in sl with one running fn after d. A timer
// that fires after being superseded does nothing.
func (s *Scheduler) armLocked(sl slot, d time.Duration, fn func()) {
	s.cancelTimerLocked(sl)
	if s.stopped {
		return
	}

	s.gen++
	gen := s.gen
	s.wg.Add(1)
	t := time.AfterFunc(d, func() {
		defer s.wg.Done()

		s.mu.Lock()
		if s.stopped || s.timers[sl].gen != gen {
			s.mu.Unlock()
			return
		}
		s.timers[sl] = timerHandle{}
		s.mu.Unlock()

		fn()
	})
	s.timers[sl] = timerHandle{timer: t, gen: gen}
}

func (s *Scheduler) cancelTimerLocked(sl slot) {
	h := s.timers[sl]
	if h.timer != nil && h.timer.Stop() {
		s.wg.Done()
	}
	s.timers[sl] = timerHandle{}
}

func (s *Scheduler) cancelTimersLocked() {
	for sl := slot(0); sl < slotCount; sl++ {
		s.cancelTimerLocked(sl)
	}
}

// begin claims the single in-flight slot. It reports false when the call
// should not run now; a busy scheduler queues it.
func (s *Scheduler) begin(op State, triggerBackup bool) bool {
	if s.stopped || !s.store.CloudSyncEnabled() || !s.online {
		return false
	}
	if s.inFlight {
		if op == Restoring {
			s.pendingRestore = true
			s.pendingRestoreBackup = s.pendingRestoreBackup || triggerBackup
		} else {
			s.pendingBackup = true
		}
		return false
	}
	s.inFlight = true
	s.state = op
	return true
}

func (s *Scheduler) backup(ctx context.Context) error {
	s.mu.Lock()
	if !s.begin(BackingUp, false) {
		s.mu.Unlock()
		return nil
	}
	s.cancelTimerLocked(slotBackupRetry)
	s.mu.Unlock()

	err := s.doBackup(ctx)

	s.finish(err, msgBackupFailed, slotBackupRetry, func() { _ = s.backup(s.ctx) })
	return err
}

func (s *Scheduler) doBackup(ctx context.Context) error {
	key, err := s.store.OwnerKey(ctx)
	if err != nil {
		return fmt.Errorf("owner key: %w", err)
	}

	res, err := s.client.Backup(ctx, key, s.store.Snapshot(), s.now().UnixMilli())
	if err != nil {
		return err
	}
	if res.Status == client.StatusIgnored {
		s.logger.Info(ctx, "server holds a newer snapshot, backup ignored",
			"serverClientUpdatedAt", res.ServerClientUpdatedAt)
	}
	return nil
}

func (s *Scheduler) restore(ctx context.Context, triggerBackup bool) error {
	s.mu.Lock()
	if !s.begin(Restoring, triggerBackup) {
		s.mu.Unlock()
		return nil
	}
	s.restoreAttempted = true
	s.cancelTimerLocked(slotRestoreRetry)
	s.mu.Unlock()

	err := s.doRestore(ctx)

	s.finish(err, msgRestoreFailed, slotRestoreRetry, func() { _ = s.restore(s.ctx, triggerBackup) })

	if err == nil && triggerBackup {
		s.NotifySaved()
	}
	return err
}

func (s *Scheduler) doRestore(ctx context.Context) error {
	key, err := s.store.OwnerKey(ctx)
	if err != nil {
		return fmt.Errorf("owner key: %w", err)
	}

	res, err := s.client.Restore(ctx, key)
	if err != nil {
		return err
	}
	if res.State == nil {
		return nil
	}

	if err := s.store.ApplyRemote(ctx, journal.NormalizeJSON(res.State)); err != nil {
		return fmt.Errorf("apply remote: %w", err)
	}
	return nil
}

// finish releases the in-flight slot, records the outcome and then runs
// whatever was queued meanwhile.
func (s *Scheduler) finish(err error, failMsg string, retrySlot slot, retryFn func()) {
	var notify func()

	s.mu.Lock()
	s.inFlight = false
	s.state = Idle

	switch {
	case err == nil:
		s.lastSuccess = s.now()
		s.lastError = ""
		s.cause = ""
		s.resetBackoff()
		if s.errorShown {
			s.errorShown = false
			notify = func() { s.notifier.SyncRecovered(msgRecovered) }
		}
	case s.stopped || errors.Is(err, context.Canceled):
		// shutting down
	case !s.store.CloudSyncEnabled():
		s.logger.Info(s.ctx, "sync failed after cloud sync was turned off", "error", err)
	case errors.Is(err, client.ErrRejected):
		// the same request would be rejected again; the next save retries
		s.logger.Warn(s.ctx, "server rejected sync request", "error", err)
		s.lastError = msgRejected
		s.cause = err.Error()
		if !s.errorShown {
			s.errorShown = true
			notify = func() { s.notifier.SyncFailed(msgRejected) }
		}
	default:
		s.logger.Warn(s.ctx, "sync failed", "error", err)
		s.lastError = failMsg
		s.cause = err.Error()
		if !s.errorShown {
			s.errorShown = true
			notify = func() { s.notifier.SyncFailed(failMsg) }
		}
		s.attempt++
		delay, _ := s.backoff.Next()
		s.state = ErrorBackoff
		s.armLocked(retrySlot, delay, func() {
			s.mu.Lock()
			online := s.online
			s.mu.Unlock()
			if online {
				retryFn()
			}
		})
	}

	if s.pendingRestore {
		trigger := s.pendingRestoreBackup
		s.pendingRestore = false
		s.pendingRestoreBackup = false
		s.pendingBackup = false
		s.startRestoreLocked(trigger)
	} else if s.pendingBackup {
		s.pendingBackup = false
		s.scheduleLocked()
	}
	s.mu.Unlock()

	if notify != nil && s.notifier != nil {
		notify()
	}
}
