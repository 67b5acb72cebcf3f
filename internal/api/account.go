package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/steemit/simpleforum/internal/auth"
	"github.com/steemit/simpleforum/internal/forum"
	"github.com/steemit/simpleforum/internal/models"
)

const oauthStateCookie = "oauth_state"

// startSession binds the session to user, answering 500 when the cookie cannot be written
func (r *Router) startSession(c *gin.Context, user *models.User) bool {
	if err := r.sessions.Login(c.Writer, c.Request, user.ID); err != nil {
		r.serverError(c, err)
		return false
	}
	return true
}

func (r *Router) registerPage(c *gin.Context) {
	if currentViewer(c).IsAuthenticated() {
		c.Redirect(http.StatusFound, auth.HomePath)
		return
	}
	r.render(c, http.StatusOK, "register.html", gin.H{"Title": "Sign up"})
}

func (r *Router) register(c *gin.Context) {
	var in forum.RegisterInput
	if err := c.ShouldBindWith(&in, binding.Form); err != nil {
		r.bindFailed(c, err)
		return
	}
	user, err := r.forum.Register(c.Request.Context(), in)
	if err != nil {
		r.fail(c, err)
		return
	}
	if !r.startSession(c, user) {
		return
	}
	success(c, "Successfully Created Badge", nil)
}

func (r *Router) login(c *gin.Context) {
	var in forum.LoginInput
	if err := c.ShouldBindWith(&in, binding.Form); err != nil {
		r.bindFailed(c, err)
		return
	}
	user, err := r.forum.Authenticate(c.Request.Context(), in)
	if err != nil {
		r.fail(c, err)
		return
	}
	if !r.startSession(c, user) {
		return
	}
	success(c, "Successfully user loggedin", nil)
}

// logout clears the session. Admins go back to the dashboard login.
func (r *Router) logout(c *gin.Context) {
	target := auth.HomePath
	if currentViewer(c).IsAdmin() {
		target = auth.DashboardPath
	}
	if err := r.sessions.Logout(c.Writer, c.Request); err != nil {
		r.serverError(c, err)
		return
	}
	c.Redirect(http.StatusFound, target)
}

// socialLogin runs the OAuth2 code flow of the named provider. Without a code
// the user is sent to the provider; the callback upserts the account and logs in.
func (r *Router) socialLogin(name, path string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provider, ok := r.providers[name]
		if !ok {
			r.notFound(c)
			return
		}
		redirectURL := r.baseURL + path

		code := c.Query("code")
		if code == "" {
			state := uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(oauthStateCookie, state, 600, path, "", r.secure, true)
			c.Redirect(http.StatusFound, provider.AuthCodeURL(redirectURL, state))
			return
		}

		state, err := c.Cookie(oauthStateCookie)
		if err != nil || state == "" || state != c.Query("state") {
			r.logger.Warn("OAuth state mismatch", zap.String("provider", name))
			r.notFound(c)
			return
		}
		c.SetCookie(oauthStateCookie, "", -1, path, "", r.secure, true)

		ctx := c.Request.Context()
		profile, err := provider.Exchange(ctx, code, redirectURL)
		if err != nil {
			r.serverError(c, err)
			return
		}
		user, err := r.forum.SocialLogin(ctx, profile)
		if errors.Is(err, forum.ErrForbidden) {
			c.Redirect(http.StatusFound, auth.HomePath)
			return
		}
		if err != nil {
			r.serverError(c, err)
			return
		}
		if !r.startSession(c, user) {
			return
		}
		c.Redirect(http.StatusFound, auth.HomePath)
	}
}

func (r *Router) forgotPasswordPage(c *gin.Context) {
	r.render(c, http.StatusOK, "forgot_password.html", gin.H{"Title": "Forgot password"})
}

// forgotPassword answers unknown emails under "message", unlike the other forms
func (r *Router) forgotPassword(c *gin.Context) {
	var in forum.ForgotPasswordInput
	if err := c.ShouldBindWith(&in, binding.Form); err != nil {
		r.bindFailed(c, err)
		return
	}
	err := r.forum.ForgotPassword(c.Request.Context(), in)
	var denied *forum.Denied
	if errors.As(err, &denied) {
		c.JSON(http.StatusOK, gin.H{"error": true, "message": denied.Reason})
		return
	}
	if err != nil {
		r.fail(c, err)
		return
	}
	success(c, "An Email is sent to the entered email id", nil)
}

func (r *Router) changePasswordPage(c *gin.Context) {
	r.render(c, http.StatusOK, "change_password.html", gin.H{"Title": "Change password"})
}

func (r *Router) changePassword(c *gin.Context) {
	r.setPassword(c, false)
}

func (r *Router) dashboardChangePasswordPage(c *gin.Context) {
	r.render(c, http.StatusOK, "dashboard_change_password.html", gin.H{"Title": "Change password"})
}

func (r *Router) dashboardChangePassword(c *gin.Context) {
	r.setPassword(c, true)
}

// setPassword serves both change password forms; only the dashboard asks for the old one
func (r *Router) setPassword(c *gin.Context, requireOld bool) {
	var in forum.ChangePasswordInput
	if err := c.ShouldBindWith(&in, binding.Form); err != nil {
		r.bindFailed(c, err)
		return
	}
	if err := r.forum.ChangePassword(c.Request.Context(), currentViewer(c).User, in, requireOld); err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": false, "message": "Password changed successfully"})
}

func (r *Router) ownProfile(c *gin.Context) {
	viewer := currentViewer(c)
	summary, err := r.forum.Profile(c.Request.Context(), viewer.User)
	if err != nil {
		r.fail(c, err)
		return
	}
	r.render(c, http.StatusOK, "profile.html", gin.H{
		"Title":   viewer.User.Username,
		"Summary": summary,
		"Own":     true,
	})
}

func (r *Router) uploadProfilePic(c *gin.Context) {
	file, header, err := c.Request.FormFile("profile_pic")
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"error": true, "response": "Please Upload Your Profile pic"})
		return
	}
	defer file.Close()

	url, err := r.forum.UploadProfilePic(c.Request.Context(), currentViewer(c).User, header.Filename, file)
	if err != nil {
		r.fail(c, err)
		return
	}
	success(c, "Successfully uploaded", gin.H{"profile_pic": url})
}

func (r *Router) mailSettings(c *gin.Context) {
	enabled, err := r.forum.ToggleMailNotifications(c.Request.Context(), currentViewer(c).User)
	if err != nil {
		r.fail(c, err)
		return
	}
	success(c, "You have successfully uploaded the settings", gin.H{"send_mailnotifications": enabled})
}
