package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/canopyhq/canopy/internal/services"
	"github.com/canopyhq/canopy/pkg/errors"
	"github.com/canopyhq/canopy/pkg/response"
)

// ApplicationHandler manages candidate submissions for the back office.
type ApplicationHandler struct {
	applications *services.ApplicationService
}

func NewApplicationHandler(applications *services.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{applications: applications}
}

// GET /api/admin/applications?job_id=&status=
func (h *ApplicationHandler) List(c *gin.Context) {
	applications, err := h.applications.List(requestContext(c), c.Query("job_id"), c.Query("status"))
	if err != nil {
		response.Error(c, errors.Wrap(err, "failed to list applications"))
		return
	}
	response.Success(c, http.StatusOK, applications)
}

// GET /api/admin/applications/:id
func (h *ApplicationHandler) Get(c *gin.Context) {
	application, err := h.applications.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, application)
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

// PATCH /api/admin/applications/:id/status
func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if !bindAndValidate(c, &req) {
		return
	}

	application, err := h.applications.UpdateStatus(requestContext(c), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, application)
}

// DELETE /api/admin/applications/:id
func (h *ApplicationHandler) Delete(c *gin.Context) {
	if err := h.applications.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
