package models

import (
	"strings"
	"time"
)

// Applicant clearance statuses
const (
	StatusCleared    = "Cleared"
	StatusPending    = "Pending"
	StatusNotCleared = "Not Cleared"
)

// ValidStatus reports whether s is one of the three clearance statuses.
func ValidStatus(s string) bool {
	return s == StatusCleared || s == StatusPending || s == StatusNotCleared
}

// Applicant represents a person under clearance review
type Applicant struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	FullName            string    `gorm:"not null" json:"full_name"`
	Age                 int       `gorm:"not null" json:"age"`
	Address             string    `gorm:"not null" json:"address"`
	DateOfBirth         time.Time `gorm:"type:date;not null" json:"date_of_birth"`
	BirthPlace          string    `gorm:"not null" json:"birth_place"`
	School              string    `gorm:"not null" json:"school"`
	Phone               string    `gorm:"size:20" json:"phone"`
	Status              string    `gorm:"default:Pending" json:"status"`
	PNPOfficerName      string    `gorm:"column:pnp_officer_name" json:"pnp_officer_name"`
	BarangayOfficerName string    `json:"barangay_officer_name"`
	SchoolOfficerName   string    `json:"school_officer_name"`
	RTCOfficerName      string    `gorm:"column:rtc_officer_name" json:"rtc_officer_name"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`

	// Associations
	Documents *Document `gorm:"foreignKey:ApplicantID;constraint:OnDelete:CASCADE" json:"documents,omitempty"`
}

// TableName specifies the table name for Applicant
func (Applicant) TableName() string {
	return "applicants"
}

// Snapshot returns the serialized form of the record used for audit
// payloads. Keys match the JSON field names of ApplicantResponse.
func (a *Applicant) Snapshot() map[string]any {
	return map[string]any{
		"id":                    a.ID,
		"full_name":             a.FullName,
		"age":                   a.Age,
		"address":               a.Address,
		"date_of_birth":         a.DateOfBirth.Format("2006-01-02"),
		"birth_place":           a.BirthPlace,
		"school":                a.School,
		"phone":                 a.Phone,
		"status":                a.Status,
		"pnp_officer_name":      a.PNPOfficerName,
		"barangay_officer_name": a.BarangayOfficerName,
		"school_officer_name":   a.SchoolOfficerName,
		"rtc_officer_name":      a.RTCOfficerName,
		"created_at":            a.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// ApplicantResponse is the JSON response format for applicants
type ApplicantResponse struct {
	ID                  uint      `json:"id"`
	FullName            string    `json:"full_name"`
	Age                 int       `json:"age"`
	Address             string    `json:"address"`
	DateOfBirth         string    `json:"date_of_birth"`
	BirthPlace          string    `json:"birth_place"`
	School              string    `json:"school"`
	Phone               string    `json:"phone"`
	Status              string    `json:"status"`
	PNPOfficerName      string    `json:"pnp_officer_name"`
	BarangayOfficerName string    `json:"barangay_officer_name"`
	SchoolOfficerName   string    `json:"school_officer_name"`
	RTCOfficerName      string    `json:"rtc_officer_name"`
	CreatedAt           string    `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// ToResponse converts Applicant to ApplicantResponse
func (a *Applicant) ToResponse() ApplicantResponse {
	return ApplicantResponse{
		ID:                  a.ID,
		FullName:            a.FullName,
		Age:                 a.Age,
		Address:             a.Address,
		DateOfBirth:         a.DateOfBirth.Format("2006-01-02"),
		BirthPlace:          a.BirthPlace,
		School:              a.School,
		Phone:               a.Phone,
		Status:              a.Status,
		PNPOfficerName:      a.PNPOfficerName,
		BarangayOfficerName: a.BarangayOfficerName,
		SchoolOfficerName:   a.SchoolOfficerName,
		RTCOfficerName:      a.RTCOfficerName,
		CreatedAt:           a.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt:           a.UpdatedAt,
	}
}

// JoinNameParts builds a display name from its components, dropping
// empty parts and joining the rest with single spaces.
func JoinNameParts(first, middle, last, suffix string) string {
	return joinNonEmpty(" ", first, middle, last, suffix)
}

// JoinAddressParts builds a single-line address from its components,
// dropping empty parts and joining the rest with commas.
func JoinAddressParts(street, barangay, city, province string) string {
	return joinNonEmpty(", ", street, barangay, city, province)
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
