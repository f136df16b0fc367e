package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/canopyhq/canopy/internal/content"
	"github.com/canopyhq/canopy/pkg/errors"
	"github.com/canopyhq/canopy/pkg/response"
)

// ContentHandler exposes the shared site-wide content blob and its derived
// option lists.
type ContentHandler struct {
	store *content.Store
	sync  *content.SyncService
}

func NewContentHandler(store *content.Store, syncService *content.SyncService) *ContentHandler {
	return &ContentHandler{store: store, sync: syncService}
}

// GET /api/content
func (h *ContentHandler) Get(c *gin.Context) {
	blob := h.store.ContentData(requestContext(c))
	response.Success(c, http.StatusOK, blob)
}

// GET /api/content/departments?include_all=true
func (h *ContentHandler) Departments(c *gin.Context) {
	includeAll := parseBoolQuery(c, "include_all")
	response.Success(c, http.StatusOK, h.store.Departments(requestContext(c), includeAll))
}

// GET /api/content/options returns the full set of select-box option lists
// the public site needs in one round trip.
func (h *ContentHandler) Options(c *gin.Context) {
	ctx := requestContext(c)
	response.Success(c, http.StatusOK, gin.H{
		"departments":       h.store.Departments(ctx, true),
		"job_types":         h.store.JobTypes(ctx),
		"locations":         h.store.Locations(ctx),
		"experience_levels": h.store.ExperienceLevels(ctx),
		"services":          h.store.Services(ctx),
		"benefits":          h.store.Benefits(ctx),
	})
}

// PUT /api/admin/content merges a partial update into the content blob.
func (h *ContentHandler) Update(c *gin.Context) {
	var partial map[string]any
	if err := c.ShouldBindJSON(&partial); err != nil {
		response.Error(c, errors.NewBadRequest("invalid JSON payload"))
		return
	}
	if len(partial) == 0 {
		response.Error(c, errors.NewBadRequest("empty content update"))
		return
	}

	merged, err := h.sync.UpdateContentData(requestContext(c), content.Blob(partial))
	if err != nil {
		response.Error(c, errors.Wrap(err, "failed to update content"))
		return
	}

	response.Success(c, http.StatusOK, merged)
}
