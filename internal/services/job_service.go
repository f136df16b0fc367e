package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/canopyhq/canopy/internal/content"
	"github.com/canopyhq/canopy/internal/models"
	apperrors "github.com/canopyhq/canopy/pkg/errors"
)

// JobInput carries admin-supplied job posting fields.
type JobInput struct {
	Slug         string   `json:"slug" validate:"required"`
	Title        string   `json:"title" validate:"required"`
	Department   string   `json:"department"`
	Location     string   `json:"location"`
	Type         string   `json:"type"`
	Experience   string   `json:"experience"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements"`
	IsActive     *bool    `json:"is_active"`
}

// JobFilter narrows public job listings.
type JobFilter struct {
	Department string
	Type       string
	Location   string
}

// JobService manages job postings for both the public careers pages and the
// back office.
type JobService struct {
	db *gorm.DB
}

// NewJobService wires job posting management over the shared database handle.
func NewJobService(db *gorm.DB) (*JobService, error) {
	if db == nil {
		return nil, errors.New("job service: db is required")
	}
	return &JobService{db: db}, nil
}

// ListActive returns published postings matching the filter, newest first.
func (s *JobService) ListActive(ctx context.Context, filter JobFilter) ([]models.JobPosting, error) {
	query := s.db.WithContext(ctx).Where("is_active = ?", true)

	if dept := strings.TrimSpace(filter.Department); dept != "" && dept != "all" {
		query = query.Where("department = ?", dept)
	}
	if jobType := strings.TrimSpace(filter.Type); jobType != "" && jobType != "all" {
		query = query.Where("type = ?", jobType)
	}
	if location := strings.TrimSpace(filter.Location); location != "" && location != "all" {
		query = query.Where("location = ?", location)
	}

	var jobs []models.JobPosting
	if err := query.Order("posted_at desc").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("job service: list active: %w", err)
	}
	return jobs, nil
}

// ListAll returns every posting for the back office, including inactive ones.
func (s *JobService) ListAll(ctx context.Context) ([]models.JobPosting, error) {
	var jobs []models.JobPosting
	err := s.db.WithContext(ctx).Order("posted_at desc").Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("job service: list all: %w", err)
	}
	return jobs, nil
}

// GetBySlug fetches an active posting by its public slug.
func (s *JobService) GetBySlug(ctx context.Context, slug string) (*models.JobPosting, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, apperrors.NewNotFound("job posting not found")
	}

	var job models.JobPosting
	err := s.db.WithContext(ctx).Where("slug = ? AND is_active = ?", slug, true).Take(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("job posting not found")
	}
	if err != nil {
		return nil, fmt.Errorf("job service: get by slug: %w", err)
	}
	return &job, nil
}

// GetByID fetches a posting regardless of its active flag, for the back office.
func (s *JobService) GetByID(ctx context.Context, id string) (*models.JobPosting, error) {
	var job models.JobPosting
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("job posting not found")
	}
	if err != nil {
		return nil, fmt.Errorf("job service: get by id: %w", err)
	}
	return &job, nil
}

// Create stores a new posting.
func (s *JobService) Create(ctx context.Context, input JobInput) (*models.JobPosting, error) {
	slug := strings.TrimSpace(input.Slug)
	if !content.ValidPageID(slug) {
		return nil, apperrors.NewBadRequest("invalid job slug")
	}

	requirements, err := marshalRequirements(input.Requirements)
	if err != nil {
		return nil, apperrors.NewBadRequest("invalid job requirements")
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	job := &models.JobPosting{
		Slug:         slug,
		Title:        strings.TrimSpace(input.Title),
		Department:   strings.TrimSpace(input.Department),
		Location:     strings.TrimSpace(input.Location),
		Type:         strings.TrimSpace(input.Type),
		Experience:   strings.TrimSpace(input.Experience),
		Description:  input.Description,
		Requirements: requirements,
		IsActive:     active,
		PostedAt:     time.Now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrConflict
		}
		return nil, fmt.Errorf("job service: create: %w", err)
	}
	return job, nil
}

// Update applies a full update to an existing posting.
func (s *JobService) Update(ctx context.Context, id string, input JobInput) (*models.JobPosting, error) {
	job, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	slug := strings.TrimSpace(input.Slug)
	if !content.ValidPageID(slug) {
		return nil, apperrors.NewBadRequest("invalid job slug")
	}

	requirements, err := marshalRequirements(input.Requirements)
	if err != nil {
		return nil, apperrors.NewBadRequest("invalid job requirements")
	}

	job.Slug = slug
	job.Title = strings.TrimSpace(input.Title)
	job.Department = strings.TrimSpace(input.Department)
	job.Location = strings.TrimSpace(input.Location)
	job.Type = strings.TrimSpace(input.Type)
	job.Experience = strings.TrimSpace(input.Experience)
	job.Description = input.Description
	job.Requirements = requirements
	if input.IsActive != nil {
		job.IsActive = *input.IsActive
	}

	if err := s.db.WithContext(ctx).Save(job).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrConflict
		}
		return nil, fmt.Errorf("job service: update: %w", err)
	}
	return job, nil
}

// Delete removes a posting and its applications stay behind for audit.
func (s *JobService) Delete(ctx context.Context, id string) error {
	job, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(job).Error; err != nil {
		return fmt.Errorf("job service: delete: %w", err)
	}
	return nil
}

func marshalRequirements(requirements []string) (datatypes.JSON, error) {
	if requirements == nil {
		requirements = []string{}
	}
	raw, err := json.Marshal(requirements)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
