package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/canopyhq/canopy/internal/content"
	"github.com/canopyhq/canopy/pkg/response"
)

// CacheHandler exposes page cache statistics and invalidation to operators.
type CacheHandler struct {
	hybrid *content.HybridService
}

func NewCacheHandler(hybrid *content.HybridService) *CacheHandler {
	return &CacheHandler{hybrid: hybrid}
}

// GET /api/admin/cache/stats
func (h *CacheHandler) Stats(c *gin.Context) {
	response.Success(c, http.StatusOK, h.hybrid.CacheStats())
}

// POST /api/admin/cache/clear
func (h *CacheHandler) Clear(c *gin.Context) {
	h.hybrid.ClearCache()
	response.Success(c, http.StatusOK, gin.H{"cleared": true})
}

// POST /api/admin/cache/invalidate-pages drops only page entries.
func (h *CacheHandler) InvalidatePages(c *gin.Context) {
	removed := h.hybrid.InvalidatePages()
	response.Success(c, http.StatusOK, gin.H{"removed": removed})
}
