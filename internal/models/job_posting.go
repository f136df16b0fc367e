package models

import (
	"time"

	"gorm.io/datatypes"
)

// JobPosting represents an open position advertised on the careers pages.
type JobPosting struct {
	BaseModel

	Slug         string         `gorm:"uniqueIndex;not null" json:"slug"`
	Title        string         `gorm:"not null" json:"title"`
	Department   string         `gorm:"index" json:"department"`
	Location     string         `json:"location"`
	Type         string         `gorm:"index" json:"type"` // full-time, part-time, contract
	Experience   string         `json:"experience"`
	Description  string         `json:"description"`
	Requirements datatypes.JSON `json:"requirements"`
	IsActive     bool           `gorm:"default:true;index" json:"is_active"`
	PostedAt     time.Time      `json:"posted_at"`

	Applications []JobApplication `gorm:"foreignKey:JobID" json:"applications,omitempty"`
}
