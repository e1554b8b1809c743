package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	identitymodel "github.com/tandelhq/tandel/backend/internal/model/identity"
)

// DefaultEndpoint is the Identity Toolkit REST base used by the hosted
// provider.
const DefaultEndpoint = "https://identitytoolkit.googleapis.com/v1"

// ErrAuthDisabled is returned when no provider API key is configured.
var ErrAuthDisabled = errors.New("identity provider is not configured")

// ProviderError carries the provider's error code alongside the user-facing
// message mapped from it.
type ProviderError struct {
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	return e.Message
}

// userMessage maps provider error codes to the strings shown to users.
func userMessage(code string) string {
	switch code {
	case "INVALID_LOGIN_CREDENTIALS", "INVALID_PASSWORD", "EMAIL_NOT_FOUND":
		return "Invalid email or password."
	case "EMAIL_EXISTS":
		return "Email already in use."
	case "WEAK_PASSWORD : Password should be at least 6 characters", "WEAK_PASSWORD":
		return "Password should be at least 6 characters."
	default:
		return "An error occurred."
	}
}

// Service implements email/password auth against the identity provider and
// broadcasts sign-in-state changes to subscribers.
type Service struct {
	endpoint string
	apiKey   string
	client   *http.Client

	mu          sync.RWMutex
	current     *identitymodel.Profile
	subscribers map[int]chan *identitymodel.Profile
	nextSubID   int
}

// NewService creates the provider client. endpoint falls back to the hosted
// default when empty.
func NewService(endpoint, apiKey string, timeout time.Duration) *Service {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Service{
		endpoint:    endpoint,
		apiKey:      apiKey,
		client:      &http.Client{Timeout: timeout},
		subscribers: make(map[int]chan *identitymodel.Profile),
	}
}

// Enabled reports whether provider credentials are configured.
func (s *Service) Enabled() bool {
	return s.apiKey != ""
}

// SignIn authenticates with email and password.
func (s *Service) SignIn(ctx context.Context, email, password string) (*identitymodel.Profile, error) {
	return s.authenticate(ctx, "accounts:signInWithPassword", email, password)
}

// SignUp registers a new account and signs it in.
func (s *Service) SignUp(ctx context.Context, email, password string) (*identitymodel.Profile, error) {
	return s.authenticate(ctx, "accounts:signUp", email, password)
}

// SignOut clears the signed-in state and notifies subscribers.
func (s *Service) SignOut() {
	s.broadcast(nil)
}

// Current returns the signed-in profile, or nil.
func (s *Service) Current() *identitymodel.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe returns a channel of sign-in-state changes and an unsubscribe
// function. The present state is replayed immediately.
func (s *Service) Subscribe() (<-chan *identitymodel.Profile, func()) {
	ch := make(chan *identitymodel.Profile, 4)

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch
	ch <- s.current
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if sub, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(sub)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Service) authenticate(ctx context.Context, verb, email, password string) (*identitymodel.Profile, error) {
	if !s.Enabled() {
		return nil, ErrAuthDisabled
	}

	payload, err := json.Marshal(map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode auth request: %w", err)
	}

	url := fmt.Sprintf("%s/%s?key=%s", s.endpoint, verb, s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var failure struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&failure); err != nil {
			return nil, fmt.Errorf("auth failed with status %d", resp.StatusCode)
		}
		return nil, &ProviderError{
			Code:    failure.Error.Message,
			Message: userMessage(failure.Error.Message),
		}
	}

	var success struct {
		LocalID     string `json:"localId"`
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
		PhotoURL    string `json:"profilePicture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&success); err != nil {
		return nil, fmt.Errorf("failed to decode auth response: %w", err)
	}

	profile := &identitymodel.Profile{
		UID:         success.LocalID,
		Email:       success.Email,
		DisplayName: success.DisplayName,
		PhotoURL:    success.PhotoURL,
	}
	s.broadcast(profile)

	log.Printf("[identity] signed in uid=%s", profile.UID)
	return profile, nil
}

func (s *Service) broadcast(profile *identitymodel.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = profile
	for _, ch := range s.subscribers {
		select {
		case ch <- profile:
		default:
			// A stalled subscriber misses the update rather than blocking
			// the auth path.
		}
	}
}
