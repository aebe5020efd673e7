package models

import (
	"time"
)

// Document slot names accepted as keys of the file[<slot>] upload set.
const (
	SlotBarangayCert      = "barangay_cert"
	SlotPNPClearance      = "pnp_clearance"
	SlotRTCClearance      = "rtc_clearance"
	SlotSchoolCert        = "school_cert"
	SlotDerogatoryRecords = "derogatory_records"
)

// DocumentSlots lists every valid slot in a stable order.
var DocumentSlots = []string{
	SlotBarangayCert,
	SlotPNPClearance,
	SlotRTCClearance,
	SlotSchoolCert,
	SlotDerogatoryRecords,
}

// ValidSlot reports whether slot names one of the five document slots.
func ValidSlot(slot string) bool {
	for _, s := range DocumentSlots {
		if s == slot {
			return true
		}
	}
	return false
}

// Document holds the certificate file references attached to one applicant
type Document struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	ApplicantID           uint      `gorm:"not null;uniqueIndex" json:"applicant_id"`
	BarangayCertPath      *string   `json:"barangay_cert_path"`
	PNPClearancePath      *string   `gorm:"column:pnp_clearance_path" json:"pnp_clearance_path"`
	RTCClearancePath      *string   `gorm:"column:rtc_clearance_path" json:"rtc_clearance_path"`
	SchoolCertPath        *string   `json:"school_cert_path"`
	DerogatoryRecordsPath *string   `json:"derogatory_records_path"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// TableName specifies the table name for Document
func (Document) TableName() string {
	return "documents"
}

// PathFor returns the stored path for a slot, nil when the slot is empty.
func (d *Document) PathFor(slot string) *string {
	switch slot {
	case SlotBarangayCert:
		return d.BarangayCertPath
	case SlotPNPClearance:
		return d.PNPClearancePath
	case SlotRTCClearance:
		return d.RTCClearancePath
	case SlotSchoolCert:
		return d.SchoolCertPath
	case SlotDerogatoryRecords:
		return d.DerogatoryRecordsPath
	}
	return nil
}

// SetPath stores a path into the named slot. Unknown slots are ignored;
// callers validate with ValidSlot first.
func (d *Document) SetPath(slot, path string) {
	switch slot {
	case SlotBarangayCert:
		d.BarangayCertPath = &path
	case SlotPNPClearance:
		d.PNPClearancePath = &path
	case SlotRTCClearance:
		d.RTCClearancePath = &path
	case SlotSchoolCert:
		d.SchoolCertPath = &path
	case SlotDerogatoryRecords:
		d.DerogatoryRecordsPath = &path
	}
}

// SlotURLs maps each slot name to its public URL under baseURL, nil for
// empty slots. Used by the show/update endpoints.
func (d *Document) SlotURLs(baseURL string) map[string]*string {
	urls := make(map[string]*string, len(DocumentSlots))
	for _, slot := range DocumentSlots {
		if p := d.PathFor(slot); p != nil {
			u := baseURL + "/" + *p
			urls[slot] = &u
		} else {
			urls[slot] = nil
		}
	}
	return urls
}
