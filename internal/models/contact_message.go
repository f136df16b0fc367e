package models

// ContactMessage stores a submission from the public contact form.
type ContactMessage struct {
	BaseModel

	Name    string `gorm:"not null" json:"name"`
	Email   string `gorm:"not null" json:"email"`
	Subject string `json:"subject"`
	Body    string `gorm:"not null" json:"body"`
	IsRead  bool   `gorm:"default:false;index" json:"is_read"`
}
