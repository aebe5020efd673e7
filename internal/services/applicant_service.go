package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"regexp"
	"time"

	"gorm.io/gorm"

	"github.com/Kyazs/BI-Record-Tracking/internal/models"
	"github.com/Kyazs/BI-Record-Tracking/internal/repository"
	"github.com/Kyazs/BI-Record-Tracking/internal/statemachine"
	"github.com/Kyazs/BI-Record-Tracking/internal/storage"
	"github.com/Kyazs/BI-Record-Tracking/pkg/logger"
)

// certificateDir is the storage subdirectory for uploaded certificates.
const certificateDir = "certificates"

// phonePattern matches local mobile numbers (09 followed by 9 digits).
var phonePattern = regexp.MustCompile(`^09\d{9}$`)

// BlobStorage is the slice of storage the applicant flows consume: store
// an upload under a directory, discard a stored file.
type BlobStorage interface {
	Upload(file multipart.File, header *multipart.FileHeader, subDir string) (string, error)
	Delete(relativePath string) error
}

// ApplicantService owns the applicant record lifecycle: validation,
// persistence, document slots and the audit observer calls.
type ApplicantService struct {
	applicants repository.ApplicantRepository
	documents  repository.DocumentRepository
	audit      *AuditService
	storage    BlobStorage
}

// NewApplicantService creates a new applicant service
func NewApplicantService(
	applicants repository.ApplicantRepository,
	documents repository.DocumentRepository,
	audit *AuditService,
	blobs BlobStorage,
) *ApplicantService {
	return &ApplicantService{
		applicants: applicants,
		documents:  documents,
		audit:      audit,
		storage:    blobs,
	}
}

// CreateApplicantInput is the canonical create request shape: flat name
// and address components plus the certificate uploads keyed by slot.
type CreateApplicantInput struct {
	FirstName  string `form:"first_name"`
	MiddleName string `form:"middle_name"`
	LastName   string `form:"last_name"`
	Suffix     string `form:"suffix"`

	Age         int    `form:"age"`
	DateOfBirth string `form:"date_of_birth"`

	Street   string `form:"street"`
	Barangay string `form:"barangay"`
	City     string `form:"city"`
	Province string `form:"province"`

	Phone      string `form:"phone"`
	BirthPlace string `form:"birth_place"`
	School     string `form:"school"`
	Status     string `form:"status"`

	PNPOfficerName      string `form:"pnp_officer_name"`
	BarangayOfficerName string `form:"barangay_officer_name"`
	SchoolOfficerName   string `form:"school_officer_name"`
	RTCOfficerName      string `form:"rtc_officer_name"`

	// Certificate uploads keyed by document slot name
	Files map[string]*multipart.FileHeader `form:"-"`
}

// Create validates the input, persists the applicant and its document
// set, then fires the mutation observer. actorID is the authenticated
// user, models.AuditUserSentinel when none.
func (s *ApplicantService) Create(ctx context.Context, actorID uint, in *CreateApplicantInput) (*models.Applicant, *models.Document, error) {
	ve := NewValidationError()

	requireLength(ve, "first_name", in.FirstName, 2, 50)
	requireLength(ve, "middle_name", in.MiddleName, 2, 50)
	requireLength(ve, "last_name", in.LastName, 2, 50)
	if in.Suffix != "" {
		boundLength(ve, "suffix", in.Suffix, 1, 10)
	}
	requireLength(ve, "street", in.Street, 2, 50)
	requireLength(ve, "barangay", in.Barangay, 2, 50)
	requireLength(ve, "city", in.City, 2, 50)
	requireLength(ve, "province", in.Province, 2, 50)
	requireLength(ve, "birth_place", in.BirthPlace, 2, 50)
	requireLength(ve, "school", in.School, 2, 50)
	requireLength(ve, "pnp_officer_name", in.PNPOfficerName, 2, 50)
	requireLength(ve, "barangay_officer_name", in.BarangayOfficerName, 2, 50)
	requireLength(ve, "school_officer_name", in.SchoolOfficerName, 2, 50)
	requireLength(ve, "rtc_officer_name", in.RTCOfficerName, 2, 50)

	if in.Age < 18 || in.Age > 150 {
		ve.Add("age", "age must be between 18 and 150")
	}

	dob, err := time.Parse("2006-01-02", in.DateOfBirth)
	if err != nil {
		ve.Add("date_of_birth", "date of birth must be a valid date (YYYY-MM-DD)")
	} else if !dob.Before(today()) {
		ve.Add("date_of_birth", "date of birth must be before today")
	}

	if !phonePattern.MatchString(in.Phone) {
		ve.Add("phone", "phone must match the format 09XXXXXXXXX")
	}

	if !models.ValidStatus(in.Status) {
		ve.Add("status", "status must be one of Cleared, Pending, Not Cleared")
	}

	if len(in.Files) == 0 {
		ve.Add("file", "at least one document file is required")
	}
	validateFiles(ve, in.Files)

	if ve.Any() {
		return nil, nil, ve
	}

	applicant := &models.Applicant{
		FullName:            models.JoinNameParts(in.FirstName, in.MiddleName, in.LastName, in.Suffix),
		Age:                 in.Age,
		Address:             models.JoinAddressParts(in.Street, in.Barangay, in.City, in.Province),
		DateOfBirth:         dob,
		BirthPlace:          in.BirthPlace,
		School:              in.School,
		Phone:               in.Phone,
		Status:              in.Status,
		PNPOfficerName:      in.PNPOfficerName,
		BarangayOfficerName: in.BarangayOfficerName,
		SchoolOfficerName:   in.SchoolOfficerName,
		RTCOfficerName:      in.RTCOfficerName,
	}

	if err := s.applicants.Create(ctx, applicant); err != nil {
		return nil, nil, fmt.Errorf("creating applicant: %w", err)
	}

	doc := &models.Document{ApplicantID: applicant.ID}
	if err := s.storeUploads(doc, in.Files); err != nil {
		return nil, nil, err
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, nil, fmt.Errorf("creating document set: %w", err)
	}

	s.audit.RecordCreated(ctx, actorID, applicant)

	return applicant, doc, nil
}

// ApplicantPatch is an explicit partial update: nil means the field was
// absent from the request and must be left untouched.
type ApplicantPatch struct {
	FullName            *string `json:"full_name"`
	Age                 *int    `json:"age"`
	Address             *string `json:"address"`
	DateOfBirth         *string `json:"date_of_birth"`
	BirthPlace          *string `json:"birth_place"`
	School              *string `json:"school"`
	Phone               *string `json:"phone"`
	Status              *string `json:"status"`
	PNPOfficerName      *string `json:"pnp_officer_name"`
	BarangayOfficerName *string `json:"barangay_officer_name"`
	SchoolOfficerName   *string `json:"school_officer_name"`
	RTCOfficerName      *string `json:"rtc_officer_name"`
}

// Update applies the supplied fields and document replacements, then
// fires the mutation observer with the pre-update record and the changed
// field set. Fields absent from the patch are never written.
func (s *ApplicantService) Update(ctx context.Context, actorID uint, id uint, patch *ApplicantPatch, files map[string]*multipart.FileHeader) (*models.Applicant, *models.Document, error) {
	before, err := s.applicants.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("loading applicant %d: %w", id, err)
	}

	ve := NewValidationError()
	var dob time.Time
	if patch.DateOfBirth != nil {
		dob, err = time.Parse("2006-01-02", *patch.DateOfBirth)
		if err != nil {
			ve.Add("date_of_birth", "date of birth must be a valid date (YYYY-MM-DD)")
		}
	}
	if patch.Age != nil && (*patch.Age < 18 || *patch.Age > 150) {
		ve.Add("age", "age must be between 18 and 150")
	}
	if patch.Phone != nil && !phonePattern.MatchString(*patch.Phone) {
		ve.Add("phone", "phone must match the format 09XXXXXXXXX")
	}
	if patch.Status != nil && !models.ValidStatus(*patch.Status) {
		ve.Add("status", "status must be one of Cleared, Pending, Not Cleared")
	}
	validateFiles(ve, files)
	if ve.Any() {
		return nil, nil, ve
	}

	changes := make(map[string]any)
	setIfChanged := func(column string, supplied *string, current string) {
		if supplied != nil && *supplied != current {
			changes[column] = *supplied
		}
	}
	setIfChanged("full_name", patch.FullName, before.FullName)
	setIfChanged("address", patch.Address, before.Address)
	setIfChanged("birth_place", patch.BirthPlace, before.BirthPlace)
	setIfChanged("school", patch.School, before.School)
	setIfChanged("phone", patch.Phone, before.Phone)
	setIfChanged("pnp_officer_name", patch.PNPOfficerName, before.PNPOfficerName)
	setIfChanged("barangay_officer_name", patch.BarangayOfficerName, before.BarangayOfficerName)
	setIfChanged("school_officer_name", patch.SchoolOfficerName, before.SchoolOfficerName)
	setIfChanged("rtc_officer_name", patch.RTCOfficerName, before.RTCOfficerName)
	if patch.Age != nil && *patch.Age != before.Age {
		changes["age"] = *patch.Age
	}
	if patch.DateOfBirth != nil && !dob.Equal(before.DateOfBirth) {
		changes["date_of_birth"] = dob
	}
	if patch.Status != nil && *patch.Status != before.Status {
		// Status moves through the clearance state machine
		clone := *before
		machine := statemachine.NewClearanceFSM(&clone)
		if err := machine.TransitionTo(ctx, *patch.Status); err != nil {
			ve.Add("status", err.Error())
			return nil, nil, ve
		}
		changes["status"] = clone.Status
	}

	if len(changes) > 0 {
		if err := s.applicants.UpdateFields(ctx, id, changes); err != nil {
			return nil, nil, fmt.Errorf("updating applicant %d: %w", id, err)
		}
	}

	doc, err := s.replaceDocuments(ctx, id, files)
	if err != nil {
		return nil, nil, err
	}

	after, err := s.applicants.FindByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("reloading applicant %d: %w", id, err)
	}

	if len(changes) > 0 {
		s.audit.RecordUpdated(ctx, actorID, before, after)
	}

	return after, doc, nil
}

// Delete removes the applicant; the document row goes with it (cascade)
// and stored certificate files are discarded best-effort afterwards. The
// audit snapshot is captured before the row disappears.
func (s *ApplicantService) Delete(ctx context.Context, actorID uint, id uint) error {
	applicant, err := s.applicants.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("loading applicant %d: %w", id, err)
	}

	doc, err := s.documents.FindByApplicantID(ctx, id)
	if err != nil {
		return fmt.Errorf("loading documents for applicant %d: %w", id, err)
	}

	if err := s.applicants.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("deleting applicant %d: %w", id, err)
	}

	if doc != nil {
		for _, slot := range models.DocumentSlots {
			if path := doc.PathFor(slot); path != nil {
				if err := s.storage.Delete(*path); err != nil {
					logger.Warn("Failed to remove orphaned certificate file",
						"applicant_id", id, "slot", slot, "path", *path, "error", err)
				}
			}
		}
	}

	s.audit.RecordDeleted(ctx, actorID, applicant)

	return nil
}

// Get returns an applicant and its document set (nil when none exists)
func (s *ApplicantService) Get(ctx context.Context, id uint) (*models.Applicant, *models.Document, error) {
	applicant, err := s.applicants.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("loading applicant %d: %w", id, err)
	}
	doc, err := s.documents.FindByApplicantID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("loading documents for applicant %d: %w", id, err)
	}
	return applicant, doc, nil
}

// List returns a page of applicants with the total match count
func (s *ApplicantService) List(ctx context.Context, query *repository.ListQuery) ([]models.Applicant, int64, error) {
	return s.applicants.List(ctx, query)
}

// Count returns the total number of applicants
func (s *ApplicantService) Count(ctx context.Context) (int64, error) {
	return s.applicants.Count(ctx)
}

// FeedSnapshot is one change-feed frame payload
type FeedSnapshot struct {
	Applicants      []models.ApplicantResponse `json:"applicants"`
	TotalApplicants int64                      `json:"totalApplicants"`
	NewApplicant    *models.ApplicantResponse  `json:"newApplicant"`
}

// FeedTick re-reads the record store for one change-feed frame.
// NewApplicant is set only when the newest record's id exceeds
// lastSeenID; the returned id is the new high-water mark for the
// connection.
func (s *ApplicantService) FeedTick(ctx context.Context, lastSeenID uint) (*FeedSnapshot, uint, error) {
	latest, err := s.applicants.Latest(ctx, 10)
	if err != nil {
		return nil, lastSeenID, fmt.Errorf("reading latest applicants: %w", err)
	}
	total, err := s.applicants.Count(ctx)
	if err != nil {
		return nil, lastSeenID, fmt.Errorf("counting applicants: %w", err)
	}
	newest, err := s.applicants.Newest(ctx)
	if err != nil {
		return nil, lastSeenID, fmt.Errorf("reading newest applicant: %w", err)
	}

	snapshot := &FeedSnapshot{
		Applicants:      make([]models.ApplicantResponse, 0, len(latest)),
		TotalApplicants: total,
	}
	for i := range latest {
		snapshot.Applicants = append(snapshot.Applicants, latest[i].ToResponse())
	}

	if newest != nil && newest.ID > lastSeenID {
		resp := newest.ToResponse()
		snapshot.NewApplicant = &resp
		lastSeenID = newest.ID
	}

	return snapshot, lastSeenID, nil
}

// HighWaterMark returns the id of the newest applicant, 0 when empty.
// The change feed seeds each connection with it so only records created
// after the connection opened are announced.
func (s *ApplicantService) HighWaterMark(ctx context.Context) (uint, error) {
	newest, err := s.applicants.Newest(ctx)
	if err != nil {
		return 0, err
	}
	if newest == nil {
		return 0, nil
	}
	return newest.ID, nil
}

// storeUploads stores every upload and records its path in the document
// set. A failed upload discards the ones already stored.
func (s *ApplicantService) storeUploads(doc *models.Document, files map[string]*multipart.FileHeader) error {
	var stored []string
	for slot, header := range files {
		file, err := header.Open()
		if err != nil {
			s.discard(stored)
			return fmt.Errorf("opening upload for slot %s: %w", slot, err)
		}
		path, err := s.storage.Upload(file, header, certificateDir)
		file.Close()
		if err != nil {
			s.discard(stored)
			return fmt.Errorf("storing upload for slot %s: %w", slot, err)
		}
		stored = append(stored, path)
		doc.SetPath(slot, path)
	}
	return nil
}

// replaceDocuments creates the document row on first upload, otherwise
// replaces only the supplied slots and discards each replaced file.
// Returns the current document set (nil when none exists and nothing was
// uploaded).
func (s *ApplicantService) replaceDocuments(ctx context.Context, applicantID uint, files map[string]*multipart.FileHeader) (*models.Document, error) {
	doc, err := s.documents.FindByApplicantID(ctx, applicantID)
	if err != nil {
		return nil, fmt.Errorf("loading documents for applicant %d: %w", applicantID, err)
	}
	if len(files) == 0 {
		return doc, nil
	}

	if doc == nil {
		doc = &models.Document{ApplicantID: applicantID}
		if err := s.storeUploads(doc, files); err != nil {
			return nil, err
		}
		if err := s.documents.Create(ctx, doc); err != nil {
			return nil, fmt.Errorf("creating document set: %w", err)
		}
		return doc, nil
	}

	for slot, header := range files {
		old := doc.PathFor(slot)
		file, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("opening upload for slot %s: %w", slot, err)
		}
		path, err := s.storage.Upload(file, header, certificateDir)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("storing upload for slot %s: %w", slot, err)
		}
		doc.SetPath(slot, path)
		if old != nil {
			if err := s.storage.Delete(*old); err != nil {
				logger.Warn("Failed to remove replaced certificate file",
					"applicant_id", applicantID, "slot", slot, "path", *old, "error", err)
			}
		}
	}
	if err := s.documents.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("saving document set: %w", err)
	}
	return doc, nil
}

func (s *ApplicantService) discard(paths []string) {
	for _, p := range paths {
		if err := s.storage.Delete(p); err != nil {
			logger.Warn("Failed to discard stored file", "path", p, "error", err)
		}
	}
}

func validateFiles(ve *ValidationError, files map[string]*multipart.FileHeader) {
	for slot, header := range files {
		field := "file." + slot
		if !models.ValidSlot(slot) {
			ve.Add(field, "unknown document slot")
			continue
		}
		if header == nil {
			ve.Add(field, "file is required")
			continue
		}
		if header.Size > storage.MaxFileSize() {
			ve.Add(field, "file may not be larger than 5MB")
		}
		if ct := header.Header.Get("Content-Type"); ct != "" && !storage.IsValidContentType(ct) {
			ve.Add(field, "file must be a pdf, jpg, jpeg or png")
		}
	}
}

func requireLength(ve *ValidationError, field, value string, min, max int) {
	if value == "" {
		ve.Add(field, "field is required")
		return
	}
	boundLength(ve, field, value, min, max)
}

func boundLength(ve *ValidationError, field, value string, min, max int) {
	if len(value) < min || len(value) > max {
		ve.Add(field, fmt.Sprintf("must be between %d and %d characters", min, max))
	}
}

func today() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
