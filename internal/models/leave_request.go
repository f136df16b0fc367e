package models

import "time"

// Leave request status values.
const (
	LeaveStatusPending  = "pending"
	LeaveStatusApproved = "approved"
	LeaveStatusRejected = "rejected"
)

// Leave request type values.
const (
	LeaveTypeVacation = "vacation"
	LeaveTypeSick     = "sick"
	LeaveTypeUnpaid   = "unpaid"
	LeaveTypeOther    = "other"
)

// LeaveRequest tracks employee time-off requests managed through the back office.
// The composite unique index backs spreadsheet-import deduplication: the same
// employee cannot have two requests covering the identical date range.
type LeaveRequest struct {
	BaseModel

	EmployeeName  string    `gorm:"not null" json:"employee_name"`
	EmployeeEmail string    `gorm:"not null;index;uniqueIndex:idx_leave_dedup" json:"employee_email"`
	StartDate     time.Time `gorm:"not null;uniqueIndex:idx_leave_dedup" json:"start_date"`
	EndDate       time.Time `gorm:"not null;uniqueIndex:idx_leave_dedup" json:"end_date"`
	Type          string    `gorm:"default:vacation" json:"type"`
	Reason        string    `json:"reason"`
	Status        string    `gorm:"default:pending;index" json:"status"`
}
