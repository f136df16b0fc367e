package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/canopyhq/canopy/internal/database/testutil"
	"github.com/canopyhq/canopy/internal/models"
	apperrors "github.com/canopyhq/canopy/pkg/errors"
)

func newTestLeaveService(t *testing.T) *LeaveService {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewLeaveService(db)
	require.NoError(t, err)
	return svc
}

func TestLeaveCreateAndStatus(t *testing.T) {
	svc := newTestLeaveService(t)
	ctx := context.Background()

	request, err := svc.Create(ctx, LeaveInput{
		EmployeeName:  "Dana Reyes",
		EmployeeEmail: "Dana@Example.com",
		StartDate:     "2025-07-01",
		EndDate:       "2025-07-05",
		Reason:        "summer break",
	})
	require.NoError(t, err)
	require.Equal(t, "dana@example.com", request.EmployeeEmail)
	require.Equal(t, models.LeaveTypeVacation, request.Type)
	require.Equal(t, models.LeaveStatusPending, request.Status)

	approved, err := svc.SetStatus(ctx, request.ID, models.LeaveStatusApproved)
	require.NoError(t, err)
	require.Equal(t, models.LeaveStatusApproved, approved.Status)

	_, err = svc.SetStatus(ctx, request.ID, "maybe")
	require.Error(t, err)
}

func TestLeaveCreateValidation(t *testing.T) {
	svc := newTestLeaveService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, LeaveInput{
		EmployeeName:  "Dana",
		EmployeeEmail: "dana@example.com",
		StartDate:     "2025-07-05",
		EndDate:       "2025-07-01",
	})
	require.Error(t, err)

	_, err = svc.Create(ctx, LeaveInput{
		EmployeeName:  "Dana",
		EmployeeEmail: "dana@example.com",
		StartDate:     "07/01/2025",
		EndDate:       "2025-07-05",
	})
	require.Error(t, err)

	_, err = svc.Create(ctx, LeaveInput{
		EmployeeName:  "Dana",
		EmployeeEmail: "dana@example.com",
		StartDate:     "2025-07-01",
		EndDate:       "2025-07-05",
		Type:          "sabbatical",
	})
	require.Error(t, err)
}

func TestLeaveCreateDuplicateConflicts(t *testing.T) {
	svc := newTestLeaveService(t)
	ctx := context.Background()

	input := LeaveInput{
		EmployeeName:  "Dana",
		EmployeeEmail: "dana@example.com",
		StartDate:     "2025-07-01",
		EndDate:       "2025-07-05",
	}

	_, err := svc.Create(ctx, input)
	require.NoError(t, err)

	_, err = svc.Create(ctx, input)
	require.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestImportCSVDeduplicates(t *testing.T) {
	svc := newTestLeaveService(t)
	ctx := context.Background()

	// Pre-existing request matching the first CSV row.
	_, err := svc.Create(ctx, LeaveInput{
		EmployeeName:  "Dana",
		EmployeeEmail: "dana@example.com",
		StartDate:     "2025-07-01",
		EndDate:       "2025-07-05",
	})
	require.NoError(t, err)

	csv := strings.Join([]string{
		"employee_name,employee_email,start_date,end_date,type,reason",
		"Dana,dana@example.com,2025-07-01,2025-07-05,vacation,already imported",
		"Lee,lee@example.com,2025-08-01,2025-08-03,sick,flu",
		"Lee,lee@example.com,2025-08-01,2025-08-03,sick,duplicate row",
		"Bad,not-a-date,oops,2025-08-03,sick,broken",
	}, "\n")

	result, err := svc.ImportCSV(ctx, strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, 1, result.Imported)
	require.Equal(t, 2, result.Skipped)
	require.Len(t, result.Errors, 1)

	requests, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, requests, 2)
}

func TestImportCSVRequiresHeader(t *testing.T) {
	svc := newTestLeaveService(t)
	ctx := context.Background()

	_, err := svc.ImportCSV(ctx, strings.NewReader(""))
	require.Error(t, err)

	_, err = svc.ImportCSV(ctx, strings.NewReader("name,email\nDana,dana@example.com"))
	require.Error(t, err)
}
