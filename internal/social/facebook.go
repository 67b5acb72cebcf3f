package social

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const facebookProfileURL = "https://graph.facebook.com/me?fields=id,name,first_name,last_name,email,link,locale,timezone,verified,gender,hometown,location"

// Facebook logs users in through the Graph API
type Facebook struct {
	oauthProvider
}

// NewFacebook creates a Facebook provider
func NewFacebook(appID, secret string, timeout time.Duration) *Facebook {
	return &Facebook{oauthProvider{
		config: oauth2.Config{
			ClientID:     appID,
			ClientSecret: secret,
			Endpoint:     endpoints.Facebook,
			Scopes:       []string{"email", "public_profile"},
		},
		profileURL: facebookProfileURL,
		timeout:    timeout,
	}}
}

// Name implements Provider
func (f *Facebook) Name() string { return "facebook" }

// AuthCodeURL implements Provider
func (f *Facebook) AuthCodeURL(redirectURL, state string) string {
	return f.authCodeURL(redirectURL, state)
}

type namedRef struct {
	Name string `json:"name"`
}

type facebookProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Name      string    `json:"name"`
	Link      string    `json:"link"`
	Locale    string    `json:"locale"`
	Gender    string    `json:"gender"`
	Verified  bool      `json:"verified"`
	Timezone  float64   `json:"timezone"`
	Hometown  *namedRef `json:"hometown"`
	Location  *namedRef `json:"location"`
}

func (fp facebookProfile) toProfile(accessToken string) *Profile {
	p := &Profile{
		Provider:    "facebook",
		ID:          fp.ID,
		Email:       fp.Email,
		FirstName:   fp.FirstName,
		LastName:    fp.LastName,
		Name:        fp.Name,
		Link:        fp.Link,
		Locale:      fp.Locale,
		Gender:      fp.Gender,
		Verified:    fmt.Sprintf("%t", fp.Verified),
		Timezone:    fmt.Sprintf("%g", fp.Timezone),
		Picture:     "https://graph.facebook.com/" + fp.ID + "/picture?type=large",
		AccessToken: accessToken,
	}
	if fp.Hometown != nil {
		p.Hometown = fp.Hometown.Name
	}
	if fp.Location != nil {
		p.Location = fp.Location.Name
	}
	return p
}

// Exchange implements Provider
func (f *Facebook) Exchange(ctx context.Context, code, redirectURL string) (*Profile, error) {
	var fp facebookProfile
	token, err := f.fetch(ctx, code, redirectURL, &fp)
	if err != nil {
		return nil, fmt.Errorf("facebook: %w", err)
	}
	if fp.Email == "" {
		return nil, errors.New("facebook: profile has no email")
	}
	return fp.toProfile(token.AccessToken), nil
}
