package models

// Application status values.
const (
	ApplicationStatusNew       = "new"
	ApplicationStatusReviewing = "reviewing"
	ApplicationStatusInterview = "interview"
	ApplicationStatusRejected  = "rejected"
	ApplicationStatusHired     = "hired"
)

// JobApplication records a candidate submission against a job posting.
type JobApplication struct {
	BaseModel

	JobID       string      `gorm:"type:uuid;not null;index" json:"job_id"`
	Job         *JobPosting `gorm:"foreignKey:JobID" json:"job,omitempty"`
	Name        string      `gorm:"not null" json:"name"`
	Email       string      `gorm:"not null;index" json:"email"`
	Phone       string      `json:"phone"`
	ResumeURL   string      `json:"resume_url"`
	CoverLetter string      `json:"cover_letter"`
	Status      string      `gorm:"default:new;index" json:"status"`
}
