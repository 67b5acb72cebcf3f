package api

import (
	"context"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/steemit/simpleforum/internal/auth"
	"github.com/steemit/simpleforum/internal/cache"
	"github.com/steemit/simpleforum/internal/db"
	"github.com/steemit/simpleforum/internal/forum"
	"github.com/steemit/simpleforum/internal/social"
	"github.com/steemit/simpleforum/pkg/logging"
)

// Deps are the collaborators the HTTP layer needs
type Deps struct {
	DB        *db.DB
	Cache     *cache.Cache
	Forum     *forum.Service
	Sessions  *auth.Sessions
	Providers map[string]social.Provider
	Templates *template.Template
	BaseURL   string
	MediaDir  string
	MediaURL  string
	// SecureCookies marks the OAuth state cookie as Secure
	SecureCookies bool
}

// Router sets up forum routes
type Router struct {
	db        *db.DB
	cache     *cache.Cache
	forum     *forum.Service
	sessions  *auth.Sessions
	providers map[string]social.Provider
	templates *template.Template
	baseURL   string
	mediaDir  string
	mediaURL  string
	secure    bool
	logger    *zap.Logger
}

// NewRouter creates a new forum router
func NewRouter(deps Deps) *Router {
	return &Router{
		db:        deps.DB,
		cache:     deps.Cache,
		forum:     deps.Forum,
		sessions:  deps.Sessions,
		providers: deps.Providers,
		templates: deps.Templates,
		baseURL:   strings.TrimRight(deps.BaseURL, "/"),
		mediaDir:  deps.MediaDir,
		mediaURL:  strings.TrimRight(deps.MediaURL, "/"),
		secure:    deps.SecureCookies,
		logger:    logging.WithComponent("api-router"),
	}
}

// SetupRoutes sets up all forum routes on engine
func (r *Router) SetupRoutes(engine *gin.Engine) {
	if r.templates != nil {
		engine.SetHTMLTemplate(r.templates)
	}

	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	if r.mediaDir != "" && strings.HasPrefix(r.mediaURL, "/") {
		engine.Static(r.mediaURL, r.mediaDir)
	}

	engine.NoRoute(r.loadViewer, r.notFound)

	site := engine.Group("/", requestLogger(r.logger), tracing(), r.loadViewer)

	// Public pages
	site.GET("/", r.index)
	site.GET("/register/", r.registerPage)
	site.POST("/register/", r.register)
	site.POST("/forum/login/", r.login)
	site.GET("/fb_login/", r.socialLogin("facebook", "/fb_login/"))
	site.GET("/gp_login/", r.socialLogin("google", "/gp_login/"))
	site.GET("/logout/", r.logout)
	site.GET("/forgot-password/", r.forgotPasswordPage)
	site.POST("/forgot-password/", r.forgotPassword)
	site.GET("/topic/view/:slug/", r.viewTopic)
	site.GET("/categories/", r.categories)
	site.Match([]string{http.MethodGet, http.MethodPost}, "/tags/", r.tags)
	site.Match([]string{http.MethodGet, http.MethodPost}, "/badges/", r.badges)
	site.GET("/category/:slug/", r.category)
	site.GET("/tags/:slug/", r.tag)
	site.GET("/user/profile/:user_name/", r.userProfile)
	site.GET("/user/:user_name/", r.userProfile)
	site.GET("/mentioned-users/:topic_id/", r.mentionedUsers)

	// Signed-in users
	user := site.Group("/", r.gate(auth.RequireUser))
	user.GET("/topic/add/", r.topicAddPage)
	user.POST("/topic/add/", r.topicAdd)
	user.GET("/topic/:slug/update/", r.topicUpdatePage)
	user.POST("/topic/:slug/update/", r.topicUpdate)
	user.POST("/topic/:slug/delete/", r.topicDelete)
	user.POST("/topic/like/:slug/", r.topicLike)
	user.POST("/topic/follow/:slug/", r.topicFollow)
	votes := []string{http.MethodGet, http.MethodPost}
	user.Match(votes, "/topic/votes/:slug/up/", r.topicVote(true))
	user.Match(votes, "/topic/votes/:slug/down/", r.topicVote(false))
	user.POST("/comment/add/", r.commentAdd)
	user.POST("/comment/edit/:comment_id/", r.commentEdit)
	user.POST("/comment/delete/:comment_id/", r.commentDelete)
	user.Match(votes, "/comment/votes/:pk/up/", r.commentVote(true))
	user.Match(votes, "/comment/votes/:pk/down/", r.commentVote(false))
	user.GET("/profile/", r.ownProfile)
	user.POST("/upload/profile-pic/", r.uploadProfilePic)
	user.POST("/send-mail/settings/", r.mailSettings)
	user.GET("/change-password/", r.changePasswordPage)
	user.POST("/change-password/", r.changePassword)

	// Dashboard login is open, the rest is admin only
	site.GET("/dashboard/", r.dashboardLoginPage)
	site.POST("/dashboard/", r.dashboardLogin)

	admin := site.Group("/dashboard", r.gate(auth.RequireAdmin))
	listing := []string{http.MethodGet, http.MethodPost}
	admin.Match(listing, "/category/list/", r.dashboardCategories)
	admin.GET("/category/add/", r.categoryAddPage)
	admin.POST("/category/add/", r.categoryAdd)
	admin.GET("/category/edit/:slug/", r.categoryEditPage)
	admin.POST("/category/edit/:slug/", r.categoryEdit)
	admin.POST("/category/delete/:slug/", r.categoryDelete)
	admin.GET("/category/view/:slug/", r.categoryView)

	admin.Match(listing, "/badge/list/", r.dashboardBadges)
	admin.GET("/badge/add/", r.badgeAddPage)
	admin.POST("/badge/add/", r.badgeAdd)
	admin.GET("/badge/edit/:slug/", r.badgeEditPage)
	admin.POST("/badge/edit/:slug/", r.badgeEdit)
	admin.POST("/badge/delete/:slug/", r.badgeDelete)
	admin.GET("/badge/view/:slug/", r.badgeView)

	admin.Match(listing, "/users/list/", r.dashboardUsers)
	admin.POST("/users/delete/:user_id/", r.userDelete)
	admin.POST("/users/status/:user_id/", r.userStatus)
	admin.GET("/users/view/:user_id/", r.userView)
	admin.GET("/users/edit/:user_id/", r.userBadgesPage)
	admin.POST("/users/edit/:user_id/", r.userBadges)

	admin.Match(listing, "/topics/list/", r.dashboardTopics)
	admin.POST("/topics/delete/:slug/", r.dashboardTopicDelete)
	admin.GET("/topic/view/:slug/", r.dashboardTopicView)
	admin.POST("/topic/status/:slug/", r.topicStatus)

	admin.GET("/change-password/", r.dashboardChangePasswordPage)
	admin.POST("/change-password/", r.dashboardChangePassword)
}

// healthHandler reports whether the database and cache answer
func (r *Router) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{"database": "OK"}
	status := http.StatusOK
	if r.db != nil {
		if err := r.db.Health(ctx); err != nil {
			r.logger.Warn("Database health check failed", zap.Error(err))
			checks["database"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	if r.cache != nil {
		checks["cache"] = "OK"
		if err := r.cache.Health(ctx); err != nil {
			r.logger.Warn("Cache health check failed", zap.Error(err))
			checks["cache"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	state := "OK"
	if status != http.StatusOK {
		state = "DEGRADED"
	}
	c.JSON(status, gin.H{
		"status":  state,
		"service": "simpleforum",
		"checks":  checks,
	})
}
