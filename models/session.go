package models

// SessionStatus is the resolution state of the account session.
type SessionStatus string

const (
	// SessionUnknown means the session has not been resolved yet.
	SessionUnknown SessionStatus = "unknown"
	// SessionAnonymous means no account is signed in; local state is the
	// sole source of truth.
	SessionAnonymous SessionStatus = "anonymous"
	// SessionAuthenticated means an account session is active.
	SessionAuthenticated SessionStatus = "authenticated"
)

// SessionState describes the current account session as reported by the
// account service. Volatile; re-resolved on every startup.
type SessionState struct {
	Status SessionStatus `json:"status"`
	Email  string        `json:"email,omitempty"`
	UserID string        `json:"userId,omitempty"`
}

// Authenticated reports whether a user is signed in.
func (s SessionState) Authenticated() bool {
	return s.Status == SessionAuthenticated
}

// SessionMarkers is the local mirror of the signed-in session, persisted
// alongside favorites/progress so the UI can render account state offline.
// Cleared on logout while the media data itself is retained.
type SessionMarkers struct {
	LoggedIn bool   `json:"isLoggedIn"`
	Email    string `json:"userEmail,omitempty"`
	UserID   string `json:"userId,omitempty"`
}
