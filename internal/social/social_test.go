package social

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

// newProviderServer serves a token endpoint and a profile endpoint
func newProviderServer(t *testing.T, profileJSON string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error = %v", err)
		}
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(profileJSON))
	})
	return httptest.NewServer(mux)
}

func pointAt(p *oauthProvider, srv *httptest.Server) {
	p.config.Endpoint = oauth2.Endpoint{
		AuthURL:   srv.URL + "/auth",
		TokenURL:  srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	p.profileURL = srv.URL + "/me"
}

func TestGoogleExchange(t *testing.T) {
	srv := newProviderServer(t, `{"id":"g1","email":"ann@example.com","verified_email":true,
		"name":"Ann Lee","given_name":"Ann","family_name":"Lee","picture":"http://pic"}`)
	defer srv.Close()

	g := NewGoogle("cid", "secret", time.Second)
	pointAt(&g.oauthProvider, srv)

	p, err := g.Exchange(context.Background(), "good-code", "http://forum/gp_login/")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}

	tests := []struct {
		field, got, want string
	}{
		{"email", p.Email, "ann@example.com"},
		{"first name", p.FirstName, "Ann"},
		{"last name", p.LastName, "Lee"},
		{"link", p.Link, "https://plus.google.com/g1"},
		{"verified", p.Verified, "true"},
		{"token", p.AccessToken, "tok-1"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %q, want %q", tt.field, tt.got, tt.want)
			}
		})
	}

	if _, err := g.Exchange(context.Background(), "bad-code", "http://forum/gp_login/"); err == nil {
		t.Error("Exchange() with a rejected code should fail")
	}
}

func TestFacebookExchange(t *testing.T) {
	srv := newProviderServer(t, `{"id":"f1","email":"bo@example.com","first_name":"Bo","last_name":"Ng",
		"name":"Bo Ng","verified":true,"timezone":2,"hometown":{"name":"Oslo"}}`)
	defer srv.Close()

	f := NewFacebook("app", "secret", time.Second)
	pointAt(&f.oauthProvider, srv)

	p, err := f.Exchange(context.Background(), "good-code", "http://forum/fb_login/")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if p.Hometown != "Oslo" || p.Location != "" {
		t.Errorf("hometown/location = %q/%q, want Oslo/empty", p.Hometown, p.Location)
	}
	if p.Picture != "https://graph.facebook.com/f1/picture?type=large" {
		t.Errorf("Picture = %q", p.Picture)
	}
	if p.Timezone != "2" {
		t.Errorf("Timezone = %q, want 2", p.Timezone)
	}
}

func TestExchangeRequiresEmail(t *testing.T) {
	srv := newProviderServer(t, `{"id":"f2","name":"No Mail"}`)
	defer srv.Close()

	f := NewFacebook("app", "secret", time.Second)
	pointAt(&f.oauthProvider, srv)

	if _, err := f.Exchange(context.Background(), "good-code", "http://forum/fb_login/"); err == nil {
		t.Error("Exchange() without email should fail")
	}
}

func TestAuthCodeURL(t *testing.T) {
	g := NewGoogle("cid", "secret", time.Second)
	raw := g.AuthCodeURL("http://forum/gp_login/", "st4te")

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse() error = %v", err)
	}
	q := u.Query()
	if q.Get("client_id") != "cid" || q.Get("state") != "st4te" || q.Get("redirect_uri") != "http://forum/gp_login/" {
		t.Errorf("AuthCodeURL() = %s", raw)
	}
	if !strings.Contains(q.Get("scope"), "userinfo.email") {
		t.Errorf("scope = %q, want userinfo.email", q.Get("scope"))
	}
}
