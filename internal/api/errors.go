package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/steemit/simpleforum/internal/forum"
)

// Error is an unexpected failure answered with a status code
type Error struct {
	Code    int
	Message string
}

// NewError creates a new API error
func NewError(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	return "API error " + strconv.Itoa(e.Code) + ": " + e.Message
}

var errInternal = NewError(http.StatusInternalServerError, "Internal server error")

// success writes {"error": false, "response": message} plus extra keys
func success(c *gin.Context, message string, extra gin.H) {
	payload := gin.H{"error": false, "response": message}
	for k, v := range extra {
		payload[k] = v
	}
	c.JSON(http.StatusOK, payload)
}

// fail maps a forum error onto the response convention: form and permission
// errors are 200 with error set, unknown objects are the 404 page.
func (r *Router) fail(c *gin.Context, err error) {
	var form forum.FormErrors
	var denied *forum.Denied
	switch {
	case errors.As(err, &form):
		c.JSON(http.StatusOK, gin.H{"error": true, "response": form})
	case errors.As(err, &denied):
		c.JSON(http.StatusOK, gin.H{"error": true, "response": denied.Reason})
	case errors.Is(err, forum.ErrNotFound):
		r.notFound(c)
	default:
		r.serverError(c, err)
	}
}

// bindFailed reports a request that could not be decoded into a form
func (r *Router) bindFailed(c *gin.Context, err error) {
	r.logger.Debug("Failed to bind form", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.JSON(http.StatusOK, gin.H{"error": true, "response": forum.FormErrors{
		"__all__": {"Enter a valid value."},
	}})
}

func (r *Router) serverError(c *gin.Context, err error) {
	r.logger.Error("Request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	_ = c.Error(err)
	c.AbortWithStatusJSON(errInternal.Code, gin.H{"error": true, "response": errInternal.Message})
}

func (r *Router) notFound(c *gin.Context) {
	r.render(c, http.StatusNotFound, "not_found.html", gin.H{"Title": "Page not found"})
	c.Abort()
}

// render executes page with the viewer added to data
func (r *Router) render(c *gin.Context, status int, page string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Viewer"] = currentViewer(c)
	c.HTML(status, page, data)
}

// pathID parses an integer path parameter. A malformed id is a missing object.
func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, forum.ErrNotFound
	}
	return id, nil
}

// formValue reads a field from the posted form, falling back to the query string
func formValue(c *gin.Context, key string) string {
	if v, ok := c.GetPostForm(key); ok {
		return v
	}
	return c.Query(key)
}

func pageNumber(c *gin.Context) int {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil {
		return 1
	}
	return page
}
