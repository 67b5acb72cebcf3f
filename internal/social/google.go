package social

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const googleProfileURL = "https://www.googleapis.com/oauth2/v1/userinfo"

// Google logs users in through the userinfo endpoint
type Google struct {
	oauthProvider
}

// NewGoogle creates a Google provider
func NewGoogle(clientID, secret string, timeout time.Duration) *Google {
	return &Google{oauthProvider{
		config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: secret,
			Endpoint:     endpoints.Google,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.profile",
				"https://www.googleapis.com/auth/userinfo.email",
			},
		},
		profileURL: googleProfileURL,
		timeout:    timeout,
	}}
}

// Name implements Provider
func (g *Google) Name() string { return "google" }

// AuthCodeURL implements Provider
func (g *Google) AuthCodeURL(redirectURL, state string) string {
	return g.authCodeURL(redirectURL, state)
}

type googleProfile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Link          string `json:"link"`
	Picture       string `json:"picture"`
	Gender        string `json:"gender"`
	Locale        string `json:"locale"`
}

func (gp googleProfile) toProfile(accessToken string) *Profile {
	link := gp.Link
	if link == "" {
		link = "https://plus.google.com/" + gp.ID
	}
	return &Profile{
		Provider:    "google",
		ID:          gp.ID,
		Email:       gp.Email,
		FirstName:   gp.GivenName,
		LastName:    gp.FamilyName,
		Name:        gp.Name,
		Link:        link,
		Picture:     gp.Picture,
		Gender:      gp.Gender,
		Locale:      gp.Locale,
		Verified:    fmt.Sprintf("%t", gp.VerifiedEmail),
		AccessToken: accessToken,
	}
}

// Exchange implements Provider
func (g *Google) Exchange(ctx context.Context, code, redirectURL string) (*Profile, error) {
	var gp googleProfile
	token, err := g.fetch(ctx, code, redirectURL, &gp)
	if err != nil {
		return nil, fmt.Errorf("google: %w", err)
	}
	if gp.Email == "" {
		return nil, errors.New("google: profile has no email")
	}
	return gp.toProfile(token.AccessToken), nil
}
