package models

import (
	"time"
)

// RateLimitBucket holds the sliding-window timestamps for one (prefix, identity)
// pair. Requests are epoch milliseconds; after any successful check the slice
// only contains timestamps inside the most recent window.
type RateLimitBucket struct {
	Key         string    `gorm:"primaryKey" json:"key"` // "{prefix}_{identity}"
	Requests    []int64   `gorm:"serializer:json" json:"requests"`
	IPAddress   string    `json:"ip_address,omitempty"` // raw IP, only set for IP-keyed buckets
	LastUpdated time.Time `gorm:"autoUpdateTime" json:"last_updated"`
	ExpiresAt   time.Time `gorm:"index" json:"expires_at"` // newest request + window; cleanup cutoff
}
