package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/canopyhq/canopy/internal/models"
	apperrors "github.com/canopyhq/canopy/pkg/errors"
)

// ApplicationInput carries a candidate's submission against a job slug.
type ApplicationInput struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone"`
	ResumeURL   string `json:"resume_url" validate:"omitempty,url"`
	CoverLetter string `json:"cover_letter"`
}

// validStatusTransitions defines the allowed review workflow moves.
var validStatusTransitions = map[string][]string{
	models.ApplicationStatusNew:       {models.ApplicationStatusReviewing, models.ApplicationStatusRejected},
	models.ApplicationStatusReviewing: {models.ApplicationStatusInterview, models.ApplicationStatusRejected},
	models.ApplicationStatusInterview: {models.ApplicationStatusHired, models.ApplicationStatusRejected},
}

// ApplicationService records and reviews candidate submissions.
type ApplicationService struct {
	db   *gorm.DB
	jobs *JobService
}

// NewApplicationService wires application intake over the shared database handle.
func NewApplicationService(db *gorm.DB, jobs *JobService) (*ApplicationService, error) {
	if db == nil {
		return nil, errors.New("application service: db is required")
	}
	if jobs == nil {
		return nil, errors.New("application service: job service is required")
	}
	return &ApplicationService{db: db, jobs: jobs}, nil
}

// Apply records a submission against an active posting identified by slug.
func (s *ApplicationService) Apply(ctx context.Context, slug string, input ApplicationInput) (*models.JobApplication, error) {
	job, err := s.jobs.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	application := &models.JobApplication{
		JobID:       job.ID,
		Name:        strings.TrimSpace(input.Name),
		Email:       strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:       strings.TrimSpace(input.Phone),
		ResumeURL:   strings.TrimSpace(input.ResumeURL),
		CoverLetter: input.CoverLetter,
		Status:      models.ApplicationStatusNew,
	}

	if err := s.db.WithContext(ctx).Create(application).Error; err != nil {
		return nil, fmt.Errorf("application service: create: %w", err)
	}
	return application, nil
}

// List returns applications for the back office, optionally filtered by job
// and status.
func (s *ApplicationService) List(ctx context.Context, jobID, status string) ([]models.JobApplication, error) {
	query := s.db.WithContext(ctx).Preload("Job")

	if jobID = strings.TrimSpace(jobID); jobID != "" {
		query = query.Where("job_id = ?", jobID)
	}
	if status = strings.TrimSpace(status); status != "" {
		query = query.Where("status = ?", status)
	}

	var applications []models.JobApplication
	if err := query.Order("created_at desc").Find(&applications).Error; err != nil {
		return nil, fmt.Errorf("application service: list: %w", err)
	}
	return applications, nil
}

// Get fetches one application with its posting preloaded.
func (s *ApplicationService) Get(ctx context.Context, id string) (*models.JobApplication, error) {
	var application models.JobApplication
	err := s.db.WithContext(ctx).Preload("Job").Where("id = ?", id).Take(&application).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("application not found")
	}
	if err != nil {
		return nil, fmt.Errorf("application service: get: %w", err)
	}
	return &application, nil
}

// UpdateStatus advances an application through the review workflow. Only the
// transitions in validStatusTransitions are permitted.
func (s *ApplicationService) UpdateStatus(ctx context.Context, id, status string) (*models.JobApplication, error) {
	application, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	status = strings.TrimSpace(status)
	if !transitionAllowed(application.Status, status) {
		return nil, apperrors.NewBadRequest(
			fmt.Sprintf("cannot move application from %q to %q", application.Status, status))
	}

	if err := s.db.WithContext(ctx).
		Model(application).
		Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("application service: update status: %w", err)
	}

	application.Status = status
	return application, nil
}

// Delete removes an application record.
func (s *ApplicationService) Delete(ctx context.Context, id string) error {
	application, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(application).Error; err != nil {
		return fmt.Errorf("application service: delete: %w", err)
	}
	return nil
}

func transitionAllowed(from, to string) bool {
	for _, allowed := range validStatusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
