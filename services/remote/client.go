package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"watchsync/models"
)

var (
	ErrBaseURLRequired    = errors.New("account service base url is required")
	ErrUnauthenticated    = errors.New("no active session")
	ErrNotFound           = errors.New("account state not found")
	ErrServerRejected     = errors.New("account service rejected the request")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Client talks to the account data service. The service resolves identity
// from the session cookie, never from a client-supplied id, so the client
// carries a cookie jar across requests.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	fetchAttempts uint
}

// NewClient creates a client for the account service at baseURL.
func NewClient(baseURL string, timeout time.Duration, fetchAttempts int) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrBaseURLRequired
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if fetchAttempts <= 0 {
		fetchAttempts = 1
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		baseURL:       baseURL,
		fetchAttempts: uint(fetchAttempts),
	}, nil
}

// FetchState retrieves the whole account blob for the current session.
// The GET is idempotent, so transient failures are retried with backoff.
func (c *Client) FetchState(ctx context.Context) (models.UserState, error) {
	var state models.UserState

	err := retry.Do(
		func() error {
			return c.fetchStateOnce(ctx, &state)
		},
		retry.Context(ctx),
		retry.Attempts(c.fetchAttempts),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			// Auth and missing-account failures are definitive.
			return !errors.Is(err, ErrUnauthenticated) && !errors.Is(err, ErrNotFound)
		}),
	)
	if err != nil {
		return models.UserState{}, err
	}

	if state.Progress == nil {
		state.Progress = map[string]models.ProgressRecord{}
	}
	if state.Favorites == nil {
		state.Favorites = []models.FavoriteItem{}
	}
	return state, nil
}

func (c *Client) fetchStateOnce(ctx context.Context, state *models.UserState) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/user/data", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("account service request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(state); err != nil {
			return fmt.Errorf("decode account state: %w", err)
		}
		return nil
	case http.StatusUnauthorized:
		return ErrUnauthenticated
	case http.StatusNotFound:
		return ErrNotFound
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s - %s", ErrServerRejected, resp.Status, strings.TrimSpace(string(body)))
	}
}

// PushState replaces the account's favorites/progress fields wholesale.
// A single attempt: the periodic sync loop is the implicit retry.
func (c *Client) PushState(ctx context.Context, snapshot models.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/user/data", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("account service request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized:
		return ErrUnauthenticated
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s - %s", ErrServerRejected, resp.Status, strings.TrimSpace(string(body)))
	}
}

// Session resolves the current session from the account service.
func (c *Client) Session(ctx context.Context) (models.SessionState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/auth/me", nil)
	if err != nil {
		return models.SessionState{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.SessionState{}, fmt.Errorf("account service request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body struct {
			User *struct {
				Email string `json:"email"`
				ID    string `json:"id"`
			} `json:"user"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return models.SessionState{}, fmt.Errorf("decode session: %w", err)
		}
		if body.User == nil {
			return models.SessionState{Status: models.SessionAnonymous}, nil
		}
		return models.SessionState{
			Status: models.SessionAuthenticated,
			Email:  body.User.Email,
			UserID: body.User.ID,
		}, nil
	case http.StatusUnauthorized:
		return models.SessionState{Status: models.SessionAnonymous}, nil
	default:
		body, _ := io.ReadAll(resp.Body)
		return models.SessionState{}, fmt.Errorf("%w: %s - %s", ErrServerRejected, resp.Status, strings.TrimSpace(string(body)))
	}
}

// Login exchanges credentials for a session cookie.
func (c *Client) Login(ctx context.Context, email, password string) error {
	payload, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/login", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("account service request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrInvalidCredentials
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s - %s", ErrServerRejected, resp.Status, strings.TrimSpace(string(body)))
	}
}

// RegisterRequest carries the registration payload. Seed favorites/progress
// captured before registration become the account's initial remote state.
type RegisterRequest struct {
	Name      string                           `json:"name"`
	Email     string                           `json:"email"`
	Password  string                           `json:"password"`
	Favorites []models.FavoriteItem            `json:"favorites,omitempty"`
	Progress  map[string]models.ProgressRecord `json:"vidLinkProgress,omitempty"`
}

// Register creates a new account, seeding it with the provided snapshot.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode registration: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/register", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("account service request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusBadRequest:
		body, _ := io.ReadAll(resp.Body)
		if strings.Contains(strings.ToLower(string(body)), "already exists") {
			return ErrUserExists
		}
		return fmt.Errorf("%w: %s - %s", ErrServerRejected, resp.Status, strings.TrimSpace(string(body)))
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s - %s", ErrServerRejected, resp.Status, strings.TrimSpace(string(body)))
	}
}

// Logout tears down the session cookie on the service side. Best effort.
func (c *Client) Logout(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/logout", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("account service request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s - %s", ErrServerRejected, resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}
