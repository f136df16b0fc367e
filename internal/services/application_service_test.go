package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/canopyhq/canopy/internal/database/testutil"
	"github.com/canopyhq/canopy/internal/models"
)

func newTestApplicationService(t *testing.T) (*ApplicationService, *JobService, *gorm.DB) {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	jobs, err := NewJobService(db)
	require.NoError(t, err)

	svc, err := NewApplicationService(db, jobs)
	require.NoError(t, err)

	return svc, jobs, db
}

func createTestJob(t *testing.T, jobs *JobService, slug string) *models.JobPosting {
	t.Helper()
	job, err := jobs.Create(context.Background(), JobInput{
		Slug:       slug,
		Title:      "Backend Engineer",
		Department: "engineering",
		Type:       "full-time",
	})
	require.NoError(t, err)
	return job
}

func TestApplyCreatesNewApplication(t *testing.T) {
	svc, jobs, _ := newTestApplicationService(t)
	ctx := context.Background()

	job := createTestJob(t, jobs, "backend-engineer")

	application, err := svc.Apply(ctx, "backend-engineer", ApplicationInput{
		Name:  "Dana Reyes",
		Email: "Dana@Example.com",
	})
	require.NoError(t, err)
	require.Equal(t, job.ID, application.JobID)
	require.Equal(t, "dana@example.com", application.Email)
	require.Equal(t, models.ApplicationStatusNew, application.Status)
}

func TestApplyUnknownOrInactiveJob(t *testing.T) {
	svc, jobs, _ := newTestApplicationService(t)
	ctx := context.Background()

	_, err := svc.Apply(ctx, "nope", ApplicationInput{Name: "Dana", Email: "d@example.com"})
	require.Error(t, err)

	job := createTestJob(t, jobs, "closed-role")
	inactive := false
	_, err = jobs.Update(ctx, job.ID, JobInput{
		Slug:     job.Slug,
		Title:    job.Title,
		IsActive: &inactive,
	})
	require.NoError(t, err)

	_, err = svc.Apply(ctx, "closed-role", ApplicationInput{Name: "Dana", Email: "d@example.com"})
	require.Error(t, err)
}

func TestUpdateStatusFollowsWorkflow(t *testing.T) {
	svc, jobs, _ := newTestApplicationService(t)
	ctx := context.Background()

	createTestJob(t, jobs, "backend-engineer")
	application, err := svc.Apply(ctx, "backend-engineer", ApplicationInput{
		Name:  "Dana",
		Email: "dana@example.com",
	})
	require.NoError(t, err)

	// new -> hired skips the workflow and is rejected.
	_, err = svc.UpdateStatus(ctx, application.ID, models.ApplicationStatusHired)
	require.Error(t, err)

	for _, status := range []string{
		models.ApplicationStatusReviewing,
		models.ApplicationStatusInterview,
		models.ApplicationStatusHired,
	} {
		application, err = svc.UpdateStatus(ctx, application.ID, status)
		require.NoError(t, err)
		require.Equal(t, status, application.Status)
	}

	// Terminal states allow no further moves.
	_, err = svc.UpdateStatus(ctx, application.ID, models.ApplicationStatusReviewing)
	require.Error(t, err)
}

func TestListFiltersByJobAndStatus(t *testing.T) {
	svc, jobs, _ := newTestApplicationService(t)
	ctx := context.Background()

	backend := createTestJob(t, jobs, "backend-engineer")
	createTestJob(t, jobs, "designer")

	_, err := svc.Apply(ctx, "backend-engineer", ApplicationInput{Name: "A", Email: "a@example.com"})
	require.NoError(t, err)
	_, err = svc.Apply(ctx, "designer", ApplicationInput{Name: "B", Email: "b@example.com"})
	require.NoError(t, err)

	all, err := svc.List(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	filtered, err := svc.List(ctx, backend.ID, "")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	require.Equal(t, "a@example.com", filtered[0].Email)
	require.NotNil(t, filtered[0].Job)

	none, err := svc.List(ctx, "", models.ApplicationStatusHired)
	require.NoError(t, err)
	require.Empty(t, none)
}
