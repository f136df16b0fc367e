package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/canopyhq/canopy/internal/content"
	"github.com/canopyhq/canopy/pkg/errors"
	"github.com/canopyhq/canopy/pkg/response"
)

// SyncHandler triggers content synchronisation runs and consistency checks.
type SyncHandler struct {
	sync   *content.SyncService
	hybrid *content.HybridService
}

func NewSyncHandler(syncService *content.SyncService, hybrid *content.HybridService) *SyncHandler {
	return &SyncHandler{sync: syncService, hybrid: hybrid}
}

type syncRequest struct {
	Direction string `json:"direction"`
	Validate  bool   `json:"validate"`
}

// POST /api/admin/sync
func (h *SyncHandler) Run(c *gin.Context) {
	var req syncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, errors.NewBadRequest("invalid JSON payload"))
			return
		}
	}

	direction, err := content.ParseDirection(req.Direction)
	if err != nil {
		response.Error(c, errors.NewBadRequest(err.Error()))
		return
	}

	result, err := h.sync.Run(requestContext(c), direction, req.Validate)
	if err != nil {
		response.Error(c, errors.Wrap(err, "sync run failed"))
		return
	}

	// Synced rows supersede whatever is cached.
	h.hybrid.InvalidatePages()

	response.Success(c, http.StatusOK, result)
}

// GET /api/admin/sync/validate
func (h *SyncHandler) Validate(c *gin.Context) {
	report, err := h.sync.ValidateConsistency(requestContext(c))
	if err != nil {
		response.Error(c, errors.Wrap(err, "consistency validation failed"))
		return
	}
	response.Success(c, http.StatusOK, report)
}
