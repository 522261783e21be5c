package syncer

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"watchsync/models"
	"watchsync/services/localstore"
	"watchsync/services/remote"
)

// changeDebounce is how long after the last local write a change-triggered
// push fires. Collapses bursts of mutations into one push.
const changeDebounce = 2 * time.Second

// Merge strategies applied at session boundaries. The names make the policy
// explicit at each call site instead of leaving it implicit in control flow.
const (
	StrategyRemoteOverwritesLocal = "remote-overwrites-local" // login pull
	StrategyLocalSeedsRemote      = "local-seeds-remote"      // registration
)

// Library is the slice of the library service the syncer needs.
type Library interface {
	Snapshot() models.Snapshot
	ApplySnapshot(models.Snapshot) error
	ReplaceProgress(map[string]models.ProgressRecord) error
	SetSessionMarkers(email, userID string) error
	ClearSessionMarkers() error
}

// AccountClient is the slice of the remote client the syncer needs.
type AccountClient interface {
	FetchState(ctx context.Context) (models.UserState, error)
	PushState(ctx context.Context, snapshot models.Snapshot) error
	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, req remote.RegisterRequest) error
	Logout(ctx context.Context) error
}

// ChangeSource feeds local store writes into the syncer so mutations push
// shortly after they happen instead of waiting out a full interval.
type ChangeSource interface {
	Subscribe() (<-chan localstore.Change, func())
}

// SessionObserver is the slice of the session observer the syncer needs.
type SessionObserver interface {
	Start(ctx context.Context)
	Stop()
	Refresh(ctx context.Context)
	Current() models.SessionState
	OnLogin(func(models.SessionState))
	OnLogout(func())
}

// Status reports the sync loop's health for the status endpoint.
type Status struct {
	Running       bool                `json:"running"`
	Session       models.SessionState `json:"session"`
	PushInterval  string              `json:"pushInterval"`
	LastPushAt    *time.Time          `json:"lastPushAt,omitempty"`
	LastPushError string              `json:"lastPushError,omitempty"`
}

// Service is the single sync object owning the session observer and the
// periodic push loop. Constructed once at startup and shared by reference;
// it replaces the scattered per-view sync behaviors of the original design.
type Service struct {
	library  Library
	client   AccountClient
	observer SessionObserver
	changes  ChangeSource
	interval time.Duration

	mu        sync.Mutex
	running   bool
	ctx       context.Context
	cancel    context.CancelFunc
	cancelSub func()
	wg        sync.WaitGroup

	statusMu      sync.RWMutex
	lastPushAt    *time.Time
	lastPushError string
}

// NewService creates the sync service. The push interval is the single
// source of truth for the background cadence.
func NewService(library Library, client AccountClient, observer SessionObserver, changes ChangeSource, pushInterval time.Duration) *Service {
	if pushInterval <= 0 {
		pushInterval = 60 * time.Second
	}
	svc := &Service{
		library:  library,
		client:   client,
		observer: observer,
		changes:  changes,
		interval: pushInterval,
	}
	observer.OnLogin(svc.handleLogin)
	observer.OnLogout(svc.handleLogout)
	return svc
}

// Start launches the session observer and the periodic push loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	s.observer.Start(s.ctx)

	s.wg.Add(1)
	go s.pushLoop()

	if s.changes != nil {
		ch, cancelSub := s.changes.Subscribe()
		s.cancelSub = cancelSub
		s.wg.Add(1)
		go s.watchChanges(ch)
	}

	log.Printf("[syncer] started, push interval %s", s.interval)
	return nil
}

// Stop cancels the push loop and the observer. After Stop returns no further
// pushes happen; the loop and observer goroutines have exited, bounded by ctx.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.cancel()
	s.running = false
	cancelSub := s.cancelSub
	s.cancelSub = nil
	s.mu.Unlock()

	if cancelSub != nil {
		cancelSub()
	}
	s.observer.Stop()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("[syncer] stopped")
	case <-ctx.Done():
		log.Println("[syncer] stopped (timeout)")
	}
	return nil
}

// Status returns a snapshot of the loop state.
func (s *Service) Status() Status {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	s.statusMu.RLock()
	defer s.statusMu.RUnlock()

	return Status{
		Running:       running,
		Session:       s.observer.Current(),
		PushInterval:  s.interval.String(),
		LastPushAt:    s.lastPushAt,
		LastPushError: s.lastPushError,
	}
}

// SyncNow pushes the local snapshot immediately, sharing the periodic path.
func (s *Service) SyncNow(ctx context.Context) error {
	if !s.observer.Current().Authenticated() {
		return remote.ErrUnauthenticated
	}
	return s.push(ctx)
}

// Login exchanges credentials and refreshes the observer; the resulting
// authenticated transition performs the remote-overwrites-local pull.
func (s *Service) Login(ctx context.Context, email, password string) error {
	if err := s.client.Login(ctx, email, password); err != nil {
		return err
	}
	s.observer.Refresh(ctx)
	return nil
}

// Register creates an account seeded with the current local snapshot
// (local-seeds-remote), then signs in with the new credentials.
func (s *Service) Register(ctx context.Context, name, email, password string) error {
	seed := s.library.Snapshot()
	req := remote.RegisterRequest{
		Name:      name,
		Email:     email,
		Password:  password,
		Favorites: seed.Favorites,
		Progress:  seed.Progress,
	}
	if err := s.client.Register(ctx, req); err != nil {
		return err
	}
	log.Printf("[syncer] registered %s with %d favorites, %d progress records (%s)",
		email, len(seed.Favorites), len(seed.Progress), StrategyLocalSeedsRemote)
	return s.Login(ctx, email, password)
}

// Logout snapshots remote state into the local store so the guest keeps the
// data, then tears down the session. Session markers are cleared by the
// observer's logout transition; favorites/progress are retained.
func (s *Service) Logout(ctx context.Context) error {
	if state, err := s.client.FetchState(ctx); err != nil {
		log.Printf("[syncer] final snapshot failed, keeping local data as-is: %v", err)
	} else if err := s.library.ApplySnapshot(models.Snapshot{Favorites: state.Favorites, Progress: state.Progress}); err != nil {
		log.Printf("[syncer] applying final snapshot failed: %v", err)
	}

	if err := s.client.Logout(ctx); err != nil {
		return err
	}
	s.observer.Refresh(ctx)
	return nil
}

func (s *Service) pushLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if !s.observer.Current().Authenticated() {
				continue
			}
			if err := s.push(s.ctx); err != nil {
				// Sync is best-effort; the next tick retries implicitly.
				log.Printf("[syncer] periodic push failed: %v", err)
			}
		}
	}
}

// push sends the local snapshot to the account service. Before pushing it
// fetches remote state and merges progress records per key by greater
// last_updated, so a concurrent device cannot be clobbered by a blind
// overwrite. Favorites remain a whole-set replace.
func (s *Service) push(ctx context.Context) error {
	snapshot := s.library.Snapshot()

	if state, err := s.client.FetchState(ctx); err == nil {
		merged := models.MergeProgress(snapshot.Progress, state.Progress)
		if progressChanged(merged, snapshot.Progress) {
			// Remote had records this device lacked or superseded;
			// fold them in locally so both sides converge.
			if err := s.library.ReplaceProgress(merged); err != nil {
				log.Printf("[syncer] folding remote progress into local failed: %v", err)
			}
		}
		snapshot.Progress = merged
	} else if !errors.Is(err, remote.ErrNotFound) {
		log.Printf("[syncer] pre-push fetch failed, pushing local state unmerged: %v", err)
	}

	err := s.client.PushState(ctx, snapshot)

	now := time.Now().UTC()
	s.statusMu.Lock()
	s.lastPushAt = &now
	if err != nil {
		s.lastPushError = err.Error()
	} else {
		s.lastPushError = ""
	}
	s.statusMu.Unlock()

	return err
}

// progressChanged reports whether merged differs from local: a remote winner
// on a shared key counts, not just extra keys.
func progressChanged(merged, local map[string]models.ProgressRecord) bool {
	if len(merged) != len(local) {
		return true
	}
	for key, rec := range merged {
		existing, ok := local[key]
		if !ok || existing.LastUpdated != rec.LastUpdated {
			return true
		}
	}
	return false
}

// watchChanges debounces local favorites/progress writes into a push, so a
// mutation syncs shortly after it happens instead of waiting out the ticker.
func (s *Service) watchChanges(ch <-chan localstore.Change) {
	defer s.wg.Done()

	debounce := time.NewTimer(changeDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case change, ok := <-ch:
			if !ok {
				return
			}
			if change.Key != localstore.KeyFavorites && change.Key != localstore.KeyProgress {
				continue
			}
			if !s.observer.Current().Authenticated() {
				continue
			}
			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(changeDebounce)
		case <-debounce.C:
			if !s.observer.Current().Authenticated() {
				continue
			}
			if err := s.push(s.ctx); err != nil {
				log.Printf("[syncer] change-triggered push failed: %v", err)
			}
		}
	}
}

// handleLogin is the remote-overwrites-local pull: fetch the account blob,
// replace the local documents, and mirror the session markers. Local-only
// guest changes are discarded; see DESIGN.md for the open merge question.
func (s *Service) handleLogin(state models.SessionState) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	remoteState, err := s.client.FetchState(ctx)
	switch {
	case err == nil:
		if err := s.library.ApplySnapshot(models.Snapshot{Favorites: remoteState.Favorites, Progress: remoteState.Progress}); err != nil {
			log.Printf("[syncer] applying pulled state failed: %v", err)
			return
		}
		log.Printf("[syncer] pulled remote state: %d favorites, %d progress records (%s)",
			len(remoteState.Favorites), len(remoteState.Progress), StrategyRemoteOverwritesLocal)
	case errors.Is(err, remote.ErrNotFound):
		// Session valid but no account row: seed remote from local
		// instead of wiping the guest data.
		if pushErr := s.client.PushState(ctx, s.library.Snapshot()); pushErr != nil {
			log.Printf("[syncer] seeding missing account state failed: %v", pushErr)
		}
	default:
		log.Printf("[syncer] login pull failed: %v", err)
		return
	}

	if err := s.library.SetSessionMarkers(state.Email, state.UserID); err != nil {
		log.Printf("[syncer] persisting session markers failed: %v", err)
	}
}

// handleLogout clears the session mirror. Favorites/progress stay in the
// local store; the explicit Logout path has already snapshotted remote state
// into it when reachable.
func (s *Service) handleLogout() {
	if err := s.library.ClearSessionMarkers(); err != nil {
		log.Printf("[syncer] clearing session markers failed: %v", err)
	}
}
