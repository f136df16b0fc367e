package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/canopyhq/canopy/internal/services"
	"github.com/canopyhq/canopy/pkg/errors"
	"github.com/canopyhq/canopy/pkg/response"
)

// maxLeaveImportSize bounds uploaded CSV files to 5 MiB.
const maxLeaveImportSize = 5 << 20

// LeaveHandler manages employee leave requests for the back office.
type LeaveHandler struct {
	leave *services.LeaveService
}

func NewLeaveHandler(leave *services.LeaveService) *LeaveHandler {
	return &LeaveHandler{leave: leave}
}

// GET /api/admin/leave?status=
func (h *LeaveHandler) List(c *gin.Context) {
	requests, err := h.leave.List(requestContext(c), c.Query("status"))
	if err != nil {
		response.Error(c, errors.Wrap(err, "failed to list leave requests"))
		return
	}
	response.Success(c, http.StatusOK, requests)
}

// GET /api/admin/leave/:id
func (h *LeaveHandler) Get(c *gin.Context) {
	request, err := h.leave.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, request)
}

// POST /api/admin/leave
func (h *LeaveHandler) Create(c *gin.Context) {
	var input services.LeaveInput
	if !bindAndValidate(c, &input) {
		return
	}

	request, err := h.leave.Create(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, request)
}

// PUT /api/admin/leave/:id
func (h *LeaveHandler) Update(c *gin.Context) {
	var input services.LeaveInput
	if !bindAndValidate(c, &input) {
		return
	}

	request, err := h.leave.Update(requestContext(c), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, request)
}

// PATCH /api/admin/leave/:id/status
func (h *LeaveHandler) SetStatus(c *gin.Context) {
	var req statusRequest
	if !bindAndValidate(c, &req) {
		return
	}

	request, err := h.leave.SetStatus(requestContext(c), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, request)
}

// DELETE /api/admin/leave/:id
func (h *LeaveHandler) Delete(c *gin.Context) {
	if err := h.leave.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// POST /api/admin/leave/import accepts a CSV upload in the "file" form field.
func (h *LeaveHandler) Import(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.Error(c, errors.NewBadRequest("missing CSV upload in \"file\" field"))
		return
	}
	defer file.Close()

	result, err := h.leave.ImportCSV(requestContext(c), http.MaxBytesReader(c.Writer, file, maxLeaveImportSize))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}
