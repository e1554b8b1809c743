package image

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the unauthenticated Pollinations endpoint; the generated
// image is rendered when the returned URL is fetched.
const DefaultBaseURL = "https://image.pollinations.ai"

// ErrEmptyPrompt rejects generation without a prompt.
var ErrEmptyPrompt = errors.New("image prompt is required")

// Service builds generation URLs for the image provider.
type Service struct {
	baseURL string
	client  *http.Client
}

// NewService creates the provider client. baseURL falls back to the public
// endpoint when empty.
func NewService(baseURL string, timeout time.Duration) *Service {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Generate returns the image URL for prompt. The provider materializes the
// image on first fetch, so a successful probe is not required; when the probe
// runs and the provider answers with an error status, that is surfaced.
func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	imageURL, err := s.buildURL(prompt)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build probe request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		// Network failures on the probe are non-fatal; the URL itself is the
		// deliverable.
		return imageURL, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return "", fmt.Errorf("image provider returned status %d", resp.StatusCode)
	}
	return imageURL, nil
}

func (s *Service) buildURL(prompt string) (string, error) {
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	return fmt.Sprintf("%s/prompt/%s?width=1024&height=1024&nologo=true",
		s.baseURL, url.PathEscape(prompt)), nil
}
