package auth

import (
	"github.com/steemit/simpleforum/internal/models"
)

// Viewer is the requester of the current request. User is nil for anonymous requests.
type Viewer struct {
	User *models.User
}

// Anonymous is the viewer of a request without a session
var Anonymous = Viewer{}

// IsAuthenticated reports whether the request carries a logged-in user
func (v Viewer) IsAuthenticated() bool {
	return v.User != nil
}

// IsAdmin reports whether the viewer is a superuser
func (v Viewer) IsAdmin() bool {
	return v.User != nil && v.User.IsSuperuser
}

// ID returns the viewer's user id, or 0 when anonymous
func (v Viewer) ID() int64 {
	if v.User == nil {
		return 0
	}
	return v.User.ID
}

// Owns reports whether the viewer is the given user
func (v Viewer) Owns(userID int64) bool {
	return v.User != nil && v.User.ID == userID
}

// CanManage reports whether the viewer may change content owned by userID
func (v Viewer) CanManage(userID int64) bool {
	return v.Owns(userID) || v.IsAdmin()
}

// Redirect targets used by the gates
const (
	HomePath      = "/"
	DashboardPath = "/dashboard/"
)

// Decision is the result of an access check. When Allowed is false the
// request must not reach the handler; Logout asks for the session to be cleared.
type Decision struct {
	Allowed  bool
	Redirect string
	Logout   bool
}

// RequireAdmin admits active superusers only. Everyone else is sent to the
// topic list; inactive superusers are logged out as well.
func RequireAdmin(v Viewer) Decision {
	if !v.IsAdmin() {
		return Decision{Redirect: HomePath}
	}
	if !v.User.IsActive {
		return Decision{Redirect: HomePath, Logout: true}
	}
	return Decision{Allowed: true}
}

// RequireUser admits active authenticated users. Inactive accounts are logged out.
func RequireUser(v Viewer) Decision {
	if !v.IsAuthenticated() {
		return Decision{Redirect: HomePath}
	}
	if !v.User.IsActive {
		return Decision{Redirect: HomePath, Logout: true}
	}
	return Decision{Allowed: true}
}
