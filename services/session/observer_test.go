package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"watchsync/models"
)

// scriptedResolver returns whatever state the test sets, or an error.
type scriptedResolver struct {
	mu    sync.Mutex
	state models.SessionState
	err   error
}

func (r *scriptedResolver) set(state models.SessionState, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
	r.err = err
}

func (r *scriptedResolver) Session(ctx context.Context) (models.SessionState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state, r.err
}

func TestObserverStartsUnknown(t *testing.T) {
	obs := NewObserver(&scriptedResolver{}, time.Hour)
	if got := obs.Current().Status; got != models.SessionUnknown {
		t.Fatalf("expected unknown before first poll, got %q", got)
	}
}

func TestObserverFiresLoginOnAuthentication(t *testing.T) {
	resolver := &scriptedResolver{}
	resolver.set(models.SessionState{Status: models.SessionAnonymous}, nil)

	obs := NewObserver(resolver, time.Hour)

	var loggedIn models.SessionState
	logins := 0
	obs.OnLogin(func(state models.SessionState) {
		logins++
		loggedIn = state
	})

	ctx := context.Background()
	obs.Refresh(ctx)
	if logins != 0 {
		t.Fatal("anonymous resolution must not fire login")
	}

	resolver.set(models.SessionState{Status: models.SessionAuthenticated, Email: "user@example.com", UserID: "u-1"}, nil)
	obs.Refresh(ctx)
	if logins != 1 {
		t.Fatalf("expected one login callback, got %d", logins)
	}
	if loggedIn.Email != "user@example.com" {
		t.Fatalf("unexpected login state: %+v", loggedIn)
	}

	// Staying authenticated must not re-fire.
	obs.Refresh(ctx)
	if logins != 1 {
		t.Fatalf("expected login fired once, got %d", logins)
	}
}

func TestObserverFiresLogoutOnSessionEnd(t *testing.T) {
	resolver := &scriptedResolver{}
	resolver.set(models.SessionState{Status: models.SessionAuthenticated, Email: "user@example.com"}, nil)

	obs := NewObserver(resolver, time.Hour)

	logouts := 0
	obs.OnLogout(func() { logouts++ })

	ctx := context.Background()
	obs.Refresh(ctx)

	resolver.set(models.SessionState{Status: models.SessionAnonymous}, nil)
	obs.Refresh(ctx)
	if logouts != 1 {
		t.Fatalf("expected one logout callback, got %d", logouts)
	}

	obs.Refresh(ctx)
	if logouts != 1 {
		t.Fatalf("expected logout fired once, got %d", logouts)
	}
}

func TestObserverKeepsStateOnResolveError(t *testing.T) {
	resolver := &scriptedResolver{}
	resolver.set(models.SessionState{Status: models.SessionAuthenticated, Email: "user@example.com"}, nil)

	obs := NewObserver(resolver, time.Hour)

	logouts := 0
	obs.OnLogout(func() { logouts++ })

	ctx := context.Background()
	obs.Refresh(ctx)

	// An unreachable account service must not look like a logout.
	resolver.set(models.SessionState{}, errors.New("connection refused"))
	obs.Refresh(ctx)

	if logouts != 0 {
		t.Fatalf("resolve error fired logout %d times", logouts)
	}
	if !obs.Current().Authenticated() {
		t.Fatal("expected previous authenticated state retained")
	}
}

func TestObserverStartPollsImmediately(t *testing.T) {
	resolver := &scriptedResolver{}
	resolver.set(models.SessionState{Status: models.SessionAnonymous}, nil)

	obs := NewObserver(resolver, time.Hour)
	obs.Start(context.Background())
	defer obs.Stop()

	deadline := time.After(time.Second)
	for obs.Current().Status == models.SessionUnknown {
		select {
		case <-deadline:
			t.Fatal("first poll did not resolve the session")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if got := obs.Current().Status; got != models.SessionAnonymous {
		t.Fatalf("expected anonymous, got %q", got)
	}
}
