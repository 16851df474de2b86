package models

import "time"

// Write operations walk a fixed stage sequence; the journal records each
// transition so a half-applied write can be reconstructed afterwards.
const (
	StageValidated        = "validated"
	StageRowLocated       = "row_located"
	StageNotFound         = "not_found"
	StageInserted         = "inserted"
	StageUpdated          = "updated"
	StageDeleted          = "deleted"
	StageFormatApplied    = "formatting_applied"
	StageCacheInvalidated = "cache_invalidated"
	StageFailed           = "failed"
)

const (
	OpBookingCreate  = "booking_create"
	OpBookingUpdate  = "booking_update"
	OpBookingDelete  = "booking_delete"
	OpScheduleCreate = "schedule_create"
	OpScheduleUpdate = "schedule_update"
	OpScheduleDelete = "schedule_delete"
)

// Operation is one journaled write against the sheet.
type Operation struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	TargetID  string    `json:"target_id"`
	Stage     string    `json:"stage"`
	Detail    string    `json:"detail,omitempty"`
	Row       int       `json:"row,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
