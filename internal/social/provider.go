// Package social exchanges OAuth2 authorization codes for Facebook and Google profiles.
package social

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
)

// Profile is the subset of a provider profile the forum stores
type Profile struct {
	Provider    string
	ID          string
	Email       string
	FirstName   string
	LastName    string
	Name        string
	Link        string
	Picture     string
	Gender      string
	Locale      string
	Timezone    string
	Verified    string
	Hometown    string
	Location    string
	AccessToken string
}

// Provider is an OAuth2 identity provider
type Provider interface {
	Name() string
	// AuthCodeURL is where the user is sent to grant access. state is echoed back on the callback.
	AuthCodeURL(redirectURL, state string) string
	// Exchange trades the callback code for the user's profile.
	Exchange(ctx context.Context, code, redirectURL string) (*Profile, error)
}

// oauthProvider holds the parts shared by every provider
type oauthProvider struct {
	config     oauth2.Config
	profileURL string
	timeout    time.Duration
}

func (p *oauthProvider) configFor(redirectURL string) *oauth2.Config {
	cfg := p.config
	cfg.RedirectURL = redirectURL
	return &cfg
}

func (p *oauthProvider) authCodeURL(redirectURL, state string) string {
	return p.configFor(redirectURL).AuthCodeURL(state)
}

// fetch exchanges the code and GETs the profile document into dst
func (p *oauthProvider) fetch(ctx context.Context, code, redirectURL string, dst interface{}) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: p.timeout})
	cfg := p.configFor(redirectURL)

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile request: %w", err)
	}
	resp, err := cfg.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile endpoint returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return token, nil
}
