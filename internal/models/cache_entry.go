package models

import (
	"time"
)

// CacheEntry represents a cached value stored in the database fallback.
// Used by the rate limiter; page content caching is in-memory only.
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;size:256"`
	Value     []byte    `gorm:"type:blob"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
