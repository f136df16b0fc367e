package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/canopyhq/canopy/internal/models"
	apperrors "github.com/canopyhq/canopy/pkg/errors"
	"github.com/canopyhq/canopy/pkg/logger"
	"go.uber.org/zap"
)

// LeaveInput carries admin-supplied leave request fields.
type LeaveInput struct {
	EmployeeName  string `json:"employee_name" validate:"required"`
	EmployeeEmail string `json:"employee_email" validate:"required,email"`
	StartDate     string `json:"start_date" validate:"required"`
	EndDate       string `json:"end_date" validate:"required"`
	Type          string `json:"type"`
	Reason        string `json:"reason"`
}

// LeaveImportResult summarises a CSV import run.
type LeaveImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// leaveDateLayout is the date format accepted in inputs and CSV imports.
const leaveDateLayout = "2006-01-02"

var leaveTypes = map[string]struct{}{
	models.LeaveTypeVacation: {},
	models.LeaveTypeSick:     {},
	models.LeaveTypeUnpaid:   {},
	models.LeaveTypeOther:    {},
}

var leaveStatuses = map[string]struct{}{
	models.LeaveStatusPending:  {},
	models.LeaveStatusApproved: {},
	models.LeaveStatusRejected: {},
}

// LeaveService manages employee leave requests, including bulk CSV import with
// duplicate suppression on (employee email, start date, end date).
type LeaveService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewLeaveService wires leave management over the shared database handle.
func NewLeaveService(db *gorm.DB) (*LeaveService, error) {
	if db == nil {
		return nil, errors.New("leave service: db is required")
	}
	return &LeaveService{
		db:  db,
		log: logger.WithModule("services.leave"),
	}, nil
}

// List returns leave requests, optionally filtered by status, newest first.
func (s *LeaveService) List(ctx context.Context, status string) ([]models.LeaveRequest, error) {
	query := s.db.WithContext(ctx)
	if status = strings.TrimSpace(status); status != "" {
		query = query.Where("status = ?", status)
	}

	var requests []models.LeaveRequest
	if err := query.Order("start_date desc").Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("leave service: list: %w", err)
	}
	return requests, nil
}

// Get fetches one leave request.
func (s *LeaveService) Get(ctx context.Context, id string) (*models.LeaveRequest, error) {
	var request models.LeaveRequest
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("leave request not found")
	}
	if err != nil {
		return nil, fmt.Errorf("leave service: get: %w", err)
	}
	return &request, nil
}

// Create stores a new leave request in pending state.
func (s *LeaveService) Create(ctx context.Context, input LeaveInput) (*models.LeaveRequest, error) {
	request, err := requestFromInput(input)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(request).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrConflict
		}
		return nil, fmt.Errorf("leave service: create: %w", err)
	}
	return request, nil
}

// Update replaces the editable fields of an existing request.
func (s *LeaveService) Update(ctx context.Context, id string, input LeaveInput) (*models.LeaveRequest, error) {
	request, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := requestFromInput(input)
	if err != nil {
		return nil, err
	}

	request.EmployeeName = updated.EmployeeName
	request.EmployeeEmail = updated.EmployeeEmail
	request.StartDate = updated.StartDate
	request.EndDate = updated.EndDate
	request.Type = updated.Type
	request.Reason = updated.Reason

	if err := s.db.WithContext(ctx).Save(request).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrConflict
		}
		return nil, fmt.Errorf("leave service: update: %w", err)
	}
	return request, nil
}

// SetStatus approves or rejects a request.
func (s *LeaveService) SetStatus(ctx context.Context, id, status string) (*models.LeaveRequest, error) {
	if _, ok := leaveStatuses[status]; !ok {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown leave status %q", status))
	}

	request, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(request).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("leave service: set status: %w", err)
	}

	request.Status = status
	return request, nil
}

// Delete removes a leave request.
func (s *LeaveService) Delete(ctx context.Context, id string) error {
	request, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(request).Error; err != nil {
		return fmt.Errorf("leave service: delete: %w", err)
	}
	return nil
}

// ImportCSV ingests leave requests from a spreadsheet export. Expected header:
// employee_name,employee_email,start_date,end_date,type,reason. Rows matching
// an existing (email, start, end) triple are counted as skipped, not errors.
func (s *LeaveService) ImportCSV(ctx context.Context, r io.Reader) (*LeaveImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.NewBadRequest("empty or unreadable CSV file")
	}

	columns, err := leaveCSVColumns(header)
	if err != nil {
		return nil, apperrors.NewBadRequest(err.Error())
	}

	result := &LeaveImportResult{}
	line := 1

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		input := LeaveInput{
			EmployeeName:  record[columns["employee_name"]],
			EmployeeEmail: record[columns["employee_email"]],
			StartDate:     record[columns["start_date"]],
			EndDate:       record[columns["end_date"]],
		}
		if idx, ok := columns["type"]; ok {
			input.Type = record[idx]
		}
		if idx, ok := columns["reason"]; ok {
			input.Reason = record[idx]
		}

		request, err := requestFromInput(input)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "employee_email"},
				{Name: "start_date"},
				{Name: "end_date"},
			},
			DoNothing: true,
		}).Create(request)
		if res.Error != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, res.Error))
			continue
		}

		if res.RowsAffected == 0 {
			result.Skipped++
		} else {
			result.Imported++
		}
	}

	s.log.Info("leave CSV import finished",
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

func leaveCSVColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"employee_name", "employee_email", "start_date", "end_date"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("missing required CSV column %q", required)
		}
	}
	return columns, nil
}

func requestFromInput(input LeaveInput) (*models.LeaveRequest, error) {
	name := strings.TrimSpace(input.EmployeeName)
	email := strings.ToLower(strings.TrimSpace(input.EmployeeEmail))
	if name == "" || email == "" {
		return nil, apperrors.NewBadRequest("employee name and email are required")
	}

	start, err := time.Parse(leaveDateLayout, strings.TrimSpace(input.StartDate))
	if err != nil {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("invalid start date %q", input.StartDate))
	}
	end, err := time.Parse(leaveDateLayout, strings.TrimSpace(input.EndDate))
	if err != nil {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("invalid end date %q", input.EndDate))
	}
	if end.Before(start) {
		return nil, apperrors.NewBadRequest("end date precedes start date")
	}

	leaveType := strings.ToLower(strings.TrimSpace(input.Type))
	if leaveType == "" {
		leaveType = models.LeaveTypeVacation
	}
	if _, ok := leaveTypes[leaveType]; !ok {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown leave type %q", input.Type))
	}

	return &models.LeaveRequest{
		EmployeeName:  name,
		EmployeeEmail: email,
		StartDate:     start,
		EndDate:       end,
		Type:          leaveType,
		Reason:        strings.TrimSpace(input.Reason),
		Status:        models.LeaveStatusPending,
	}, nil
}
