package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/canopyhq/canopy/internal/middleware"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentUserID returns the authenticated user's id, if any.
func currentUserID(c *gin.Context) string {
	v, ok := c.Get(middleware.CtxUserIDKey)
	if !ok {
		return ""
	}
	id, _ := v.(string)
	return id
}

// currentSessionID returns the authenticated session's id, if any.
func currentSessionID(c *gin.Context) string {
	v, ok := c.Get(middleware.CtxSessionIDKey)
	if !ok {
		return ""
	}
	id, _ := v.(string)
	return id
}
