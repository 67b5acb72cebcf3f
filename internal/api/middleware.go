package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/steemit/simpleforum/internal/auth"
	"github.com/steemit/simpleforum/internal/forum"
	"github.com/steemit/simpleforum/pkg/telemetry"
)

const viewerKey = "viewer"

// requestLogger logs one line per request
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		logger.Debug("HTTP request", fields...)
	}
}

// tracing opens a span around the request
func tracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := telemetry.StartSpan(c.Request.Context(), c.Request.Method+" "+route)
		defer span.End()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		span.SetAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", c.Writer.Status()),
		)
	}
}

// loadViewer resolves the session to a user. Stale sessions read as anonymous.
func (r *Router) loadViewer(c *gin.Context) {
	viewer := auth.Anonymous
	if r.sessions != nil {
		if id, ok := r.sessions.UserID(c.Request); ok {
			user, err := r.forum.GetUser(c.Request.Context(), id)
			switch {
			case err == nil:
				viewer = auth.Viewer{User: user}
			case errors.Is(err, forum.ErrNotFound):
			default:
				r.serverError(c, err)
				return
			}
		}
	}
	c.Set(viewerKey, viewer)
	c.Next()
}

// currentViewer returns the viewer stored by loadViewer
func currentViewer(c *gin.Context) auth.Viewer {
	if v, ok := c.Get(viewerKey); ok {
		if viewer, ok := v.(auth.Viewer); ok {
			return viewer
		}
	}
	return auth.Anonymous
}

// gate runs policy against the viewer and redirects when it denies
func (r *Router) gate(policy func(auth.Viewer) auth.Decision) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := policy(currentViewer(c))
		if decision.Allowed {
			c.Next()
			return
		}
		if decision.Logout {
			if err := r.sessions.Logout(c.Writer, c.Request); err != nil {
				r.logger.Warn("Failed to clear session", zap.Error(err))
			}
		}
		c.Redirect(http.StatusFound, decision.Redirect)
		c.Abort()
	}
}
