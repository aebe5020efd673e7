package models

import (
	"encoding/json"
	"time"
)

// Audit actions
const (
	AuditActionCreated = "created"
	AuditActionUpdated = "updated"
	AuditActionDeleted = "deleted"
)

// AuditUserSentinel marks a mutation with no authenticated actor; it is
// persisted as a NULL user_id rather than a literal zero.
const AuditUserSentinel uint = 0

// AuditLog is one append-only entry describing a single applicant mutation.
// Entries are never updated or deleted and outlive both their subject
// applicant and their actor: user_id is nullable and detaches on user
// deletion rather than blocking it.
type AuditLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      *uint     `gorm:"index" json:"user_id"`
	ApplicantID uint      `gorm:"not null;index" json:"applicant_id"`
	Action      string    `gorm:"size:50;not null" json:"action"`
	OldData     *string   `gorm:"type:jsonb" json:"-"`
	NewData     *string   `gorm:"type:jsonb" json:"-"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`

	// Associations
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"user,omitempty"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "logs"
}

// AuditLogResponse is the JSON response format for audit entries, with the
// raw snapshot payloads surfaced as structured JSON.
type AuditLogResponse struct {
	ID          uint            `json:"id"`
	UserID      *uint           `json:"user_id"`
	ApplicantID uint            `json:"applicant_id"`
	Action      string          `json:"action"`
	OldData     json.RawMessage `json:"old_data"`
	NewData     json.RawMessage `json:"new_data"`
	CreatedAt   time.Time       `json:"created_at"`
	User        *UserResponse   `json:"user,omitempty"`
}

// ToResponse converts AuditLog to AuditLogResponse
func (l *AuditLog) ToResponse() AuditLogResponse {
	resp := AuditLogResponse{
		ID:          l.ID,
		UserID:      l.UserID,
		ApplicantID: l.ApplicantID,
		Action:      l.Action,
		CreatedAt:   l.CreatedAt,
	}
	if l.OldData != nil {
		resp.OldData = json.RawMessage(*l.OldData)
	}
	if l.NewData != nil {
		resp.NewData = json.RawMessage(*l.NewData)
	}
	if l.User != nil && l.User.ID != 0 {
		u := l.User.ToResponse()
		resp.User = &u
	}
	return resp
}
