package session

import (
	"context"
	"log"
	"sync"
	"time"

	"watchsync/models"
)

// Resolver resolves the current account session. Implemented by the remote
// client; narrowed to an interface so tests can script transitions.
type Resolver interface {
	Session(ctx context.Context) (models.SessionState, error)
}

// Observer polls the session endpoint and turns the responses into login and
// logout transitions. It starts in the unknown state; the first successful
// resolution decides whether that counts as a login (authenticated) or just
// an anonymous guest (no callback).
type Observer struct {
	resolver Resolver
	interval time.Duration

	onLogin  func(models.SessionState)
	onLogout func()

	mu      sync.RWMutex
	current models.SessionState

	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewObserver creates an observer polling resolver every interval.
func NewObserver(resolver Resolver, interval time.Duration) *Observer {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Observer{
		resolver: resolver,
		interval: interval,
		current:  models.SessionState{Status: models.SessionUnknown},
	}
}

// OnLogin registers the callback fired when the session transitions to
// authenticated. Must be called before Start.
func (o *Observer) OnLogin(fn func(models.SessionState)) {
	o.onLogin = fn
}

// OnLogout registers the callback fired when an authenticated session ends.
// Must be called before Start.
func (o *Observer) OnLogout(fn func()) {
	o.onLogout = fn
}

// Current returns the last resolved session state.
func (o *Observer) Current() models.SessionState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.current
}

// Start begins the polling loop. The first poll runs immediately so the
// unknown state resolves without waiting a full interval.
func (o *Observer) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return
	}

	ctx, o.cancel = context.WithCancel(ctx)
	o.running = true

	o.wg.Add(1)
	go o.loop(ctx)

	log.Println("[session] observer started")
}

// Stop halts polling and waits for the loop to exit.
func (o *Observer) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.cancel()
	o.running = false
	o.mu.Unlock()

	o.wg.Wait()
	log.Println("[session] observer stopped")
}

// Refresh resolves the session once, outside the polling cadence. Used right
// after an explicit login/logout so transitions apply without polling lag.
func (o *Observer) Refresh(ctx context.Context) {
	o.poll(ctx)
}

func (o *Observer) loop(ctx context.Context) {
	defer o.wg.Done()

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	o.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.poll(ctx)
		}
	}
}

func (o *Observer) poll(ctx context.Context) {
	state, err := o.resolver.Session(ctx)
	if err != nil {
		// Resolution failures keep the previous state; an unreachable
		// account service must not look like a logout.
		log.Printf("[session] resolve failed: %v", err)
		return
	}

	o.mu.Lock()
	previous := o.current
	o.current = state
	o.mu.Unlock()

	switch {
	case state.Authenticated() && !previous.Authenticated():
		log.Printf("[session] authenticated as %s", state.Email)
		if o.onLogin != nil {
			o.onLogin(state)
		}
	case !state.Authenticated() && previous.Authenticated():
		log.Println("[session] session ended")
		if o.onLogout != nil {
			o.onLogout()
		}
	}
}
