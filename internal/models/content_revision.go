package models

import "gorm.io/datatypes"

// ContentRevision snapshots a page's content each time it is updated through the
// admin API, giving operators a paper trail when a sync overwrites something.
type ContentRevision struct {
	BaseModel

	PageID   string         `gorm:"not null;index" json:"page_id"`
	Content  datatypes.JSON `json:"content"`
	EditorID string         `gorm:"type:uuid" json:"editor_id"`
}
