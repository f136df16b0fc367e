package models

import (
	"time"

	"gorm.io/datatypes"
)

// ContentDataPageID is the sentinel page identifier reserved for the shared
// site-wide content blob when it is mirrored into the database.
const ContentDataPageID = "content-data"

// Page holds the structured content and publication metadata for a single site page.
// Pages are keyed by a human-readable PageID ("home", "careers", ...) in addition
// to the surrogate UUID so that the JSON file mirror can use stable filenames.
type Page struct {
	BaseModel

	PageID       string         `gorm:"uniqueIndex;not null" json:"page_id"`
	Title        string         `gorm:"not null" json:"title"`
	Description  string         `json:"description"`
	Content      datatypes.JSON `json:"content"`
	IsPublished  bool           `gorm:"default:true;index" json:"is_published"`
	LastModified time.Time      `json:"last_modified"`
}

// IsContentData reports whether this row is the shared content blob mirror.
func (p *Page) IsContentData() bool {
	return p.PageID == ContentDataPageID
}
