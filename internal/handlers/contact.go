package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/canopyhq/canopy/internal/services"
	"github.com/canopyhq/canopy/pkg/errors"
	"github.com/canopyhq/canopy/pkg/response"
)

// ContactHandler accepts public contact form submissions and manages them in
// the back office.
type ContactHandler struct {
	contact *services.ContactService
}

func NewContactHandler(contact *services.ContactService) *ContactHandler {
	return &ContactHandler{contact: contact}
}

// POST /api/contact
func (h *ContactHandler) Submit(c *gin.Context) {
	var input services.ContactInput
	if !bindAndValidate(c, &input) {
		return
	}

	message, err := h.contact.Submit(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"id": message.ID})
}

// GET /api/admin/contact?unread=true
func (h *ContactHandler) List(c *gin.Context) {
	messages, err := h.contact.List(requestContext(c), parseBoolQuery(c, "unread"))
	if err != nil {
		response.Error(c, errors.Wrap(err, "failed to list contact messages"))
		return
	}
	response.Success(c, http.StatusOK, messages)
}

// GET /api/admin/contact/:id
func (h *ContactHandler) Get(c *gin.Context) {
	message, err := h.contact.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, message)
}

// PATCH /api/admin/contact/:id/read
func (h *ContactHandler) MarkRead(c *gin.Context) {
	message, err := h.contact.MarkRead(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, message)
}

// DELETE /api/admin/contact/:id
func (h *ContactHandler) Delete(c *gin.Context) {
	if err := h.contact.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
