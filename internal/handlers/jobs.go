package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/canopyhq/canopy/internal/services"
	"github.com/canopyhq/canopy/pkg/errors"
	"github.com/canopyhq/canopy/pkg/response"
)

// JobHandler serves public job listings and admin posting management.
type JobHandler struct {
	jobs         *services.JobService
	applications *services.ApplicationService
}

func NewJobHandler(jobs *services.JobService, applications *services.ApplicationService) *JobHandler {
	return &JobHandler{jobs: jobs, applications: applications}
}

// GET /api/jobs?department=&type=&location=
func (h *JobHandler) ListPublic(c *gin.Context) {
	jobs, err := h.jobs.ListActive(requestContext(c), services.JobFilter{
		Department: c.Query("department"),
		Type:       c.Query("type"),
		Location:   c.Query("location"),
	})
	if err != nil {
		response.Error(c, errors.Wrap(err, "failed to list jobs"))
		return
	}
	response.Success(c, http.StatusOK, jobs)
}

// GET /api/jobs/:slug
func (h *JobHandler) GetPublic(c *gin.Context) {
	job, err := h.jobs.GetBySlug(requestContext(c), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, job)
}

// POST /api/jobs/:slug/apply
func (h *JobHandler) Apply(c *gin.Context) {
	var input services.ApplicationInput
	if !bindAndValidate(c, &input) {
		return
	}

	application, err := h.applications.Apply(requestContext(c), c.Param("slug"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"id": application.ID})
}

// GET /api/admin/jobs
func (h *JobHandler) List(c *gin.Context) {
	jobs, err := h.jobs.ListAll(requestContext(c))
	if err != nil {
		response.Error(c, errors.Wrap(err, "failed to list jobs"))
		return
	}
	response.Success(c, http.StatusOK, jobs)
}

// GET /api/admin/jobs/:id
func (h *JobHandler) Get(c *gin.Context) {
	job, err := h.jobs.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, job)
}

// POST /api/admin/jobs
func (h *JobHandler) Create(c *gin.Context) {
	var input services.JobInput
	if !bindAndValidate(c, &input) {
		return
	}

	job, err := h.jobs.Create(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, job)
}

// PUT /api/admin/jobs/:id
func (h *JobHandler) Update(c *gin.Context) {
	var input services.JobInput
	if !bindAndValidate(c, &input) {
		return
	}

	job, err := h.jobs.Update(requestContext(c), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, job)
}

// DELETE /api/admin/jobs/:id
func (h *JobHandler) Delete(c *gin.Context) {
	if err := h.jobs.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
