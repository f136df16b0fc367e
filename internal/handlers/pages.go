package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/canopyhq/canopy/internal/content"
	"github.com/canopyhq/canopy/internal/services"
	"github.com/canopyhq/canopy/pkg/errors"
	"github.com/canopyhq/canopy/pkg/response"
)

// PageHandler serves public page content through the hybrid cache and exposes
// admin CRUD over page records.
type PageHandler struct {
	pages  *services.PageService
	hybrid *content.HybridService
	files  *content.PageFiles
}

func NewPageHandler(pages *services.PageService, hybrid *content.HybridService, files *content.PageFiles) *PageHandler {
	return &PageHandler{pages: pages, hybrid: hybrid, files: files}
}

// GET /api/pages/:id serves one published page through the cache.
func (h *PageHandler) GetPublic(c *gin.Context) {
	result, err := h.hybrid.PageContent(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, errors.Wrap(err, "failed to load page"))
		return
	}
	if result == nil || result.Page == nil || !result.Page.Published {
		response.Error(c, errors.NewNotFound("page not found"))
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GET /api/json-pages/:id serves the raw JSON file mirror, bypassing both the
// cache and the database. Used by static-export tooling.
func (h *PageHandler) GetJSONFile(c *gin.Context) {
	id := c.Param("id")
	if !content.ValidPageID(id) {
		response.Error(c, errors.NewNotFound("page not found"))
		return
	}

	doc, ok := h.files.Read(id)
	if !ok {
		response.Error(c, errors.NewNotFound("page not found"))
		return
	}

	response.Success(c, http.StatusOK, doc)
}

// GET /api/admin/pages
func (h *PageHandler) List(c *gin.Context) {
	pages, err := h.pages.ListPages(requestContext(c))
	if err != nil {
		response.Error(c, errors.Wrap(err, "failed to list pages"))
		return
	}
	response.Success(c, http.StatusOK, pages)
}

// GET /api/admin/pages/:id
func (h *PageHandler) Get(c *gin.Context) {
	page, err := h.pages.GetPage(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, page)
}

// POST /api/admin/pages
func (h *PageHandler) Create(c *gin.Context) {
	var input services.PageInput
	if !bindAndValidate(c, &input) {
		return
	}

	page, err := h.pages.CreatePage(requestContext(c), input, currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, page)
}

// PUT /api/admin/pages/:id
func (h *PageHandler) Update(c *gin.Context) {
	var input services.PageInput
	if !bindAndValidate(c, &input) {
		return
	}
	input.PageID = c.Param("id")

	page, err := h.pages.UpdatePage(requestContext(c), c.Param("id"), input, currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, page)
}

// PATCH /api/admin/pages/:id/content merges sections into the stored content.
func (h *PageHandler) PatchContent(c *gin.Context) {
	var sections map[string]any
	if err := c.ShouldBindJSON(&sections); err != nil {
		response.Error(c, errors.NewBadRequest("invalid JSON payload"))
		return
	}

	page, err := h.pages.PatchPageContent(requestContext(c), c.Param("id"), sections, currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, page)
}

// DELETE /api/admin/pages/:id
func (h *PageHandler) Delete(c *gin.Context) {
	if err := h.pages.DeletePage(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/admin/pages/:id/revisions
func (h *PageHandler) Revisions(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 20)
	revisions, err := h.pages.Revisions(requestContext(c), c.Param("id"), limit)
	if err != nil {
		response.Error(c, errors.Wrap(err, "failed to list revisions"))
		return
	}
	response.Success(c, http.StatusOK, revisions)
}
