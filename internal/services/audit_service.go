package services

import (
	"context"
	"encoding/json"

	"github.com/getsentry/sentry-go"

	"github.com/Kyazs/BI-Record-Tracking/internal/models"
	"github.com/Kyazs/BI-Record-Tracking/internal/repository"
	"github.com/Kyazs/BI-Record-Tracking/pkg/logger"
)

// AuditService observes applicant mutations and appends one audit entry
// per successful create, update or delete. The actor is always passed in
// explicitly; models.AuditUserSentinel stands in when nobody is
// authenticated.
//
// Audit persistence is intentionally not atomic with the primary write
// (the window is accepted): a failed append leaves the mutation in place
// and is logged with full context and reported to Sentry instead of
// failing the request.
type AuditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new audit service
func NewAuditService(repo repository.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

// RecordCreated appends the entry for a newly created applicant:
// no before image, full record after.
func (s *AuditService) RecordCreated(ctx context.Context, actorID uint, applicant *models.Applicant) {
	s.append(ctx, actorID, applicant.ID, models.AuditActionCreated, nil, applicant.Snapshot())
}

// RecordUpdated appends the entry for an update. The before image is the
// full pre-update record ("what could I restore"); the after image holds
// only the fields that actually changed ("what changed").
func (s *AuditService) RecordUpdated(ctx context.Context, actorID uint, before, after *models.Applicant) {
	changes := DiffSnapshots(before.Snapshot(), after.Snapshot())
	s.append(ctx, actorID, before.ID, models.AuditActionUpdated, before.Snapshot(), changes)
}

// RecordDeleted appends the entry for a deletion: full record before, no
// after image. The snapshot must be taken before the row is removed; the
// entry outlives the applicant it references.
func (s *AuditService) RecordDeleted(ctx context.Context, actorID uint, applicant *models.Applicant) {
	s.append(ctx, actorID, applicant.ID, models.AuditActionDeleted, applicant.Snapshot(), nil)
}

// List retrieves audit entries newest-first with the actor preloaded
func (s *AuditService) List(ctx context.Context, query *repository.ListQuery) ([]models.AuditLog, int64, error) {
	return s.repo.List(ctx, query)
}

func (s *AuditService) append(ctx context.Context, actorID uint, applicantID uint, action string, before, after map[string]any) {
	// The sentinel actor is stored as NULL so the user foreign key holds.
	var userID *uint
	if actorID != models.AuditUserSentinel {
		userID = &actorID
	}

	entry := &models.AuditLog{
		UserID:      userID,
		ApplicantID: applicantID,
		Action:      action,
		OldData:     marshalSnapshot(before),
		NewData:     marshalSnapshot(after),
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		logger.Error("Failed to append audit entry",
			"action", action,
			"applicant_id", applicantID,
			"actor_id", actorID,
			"error", err,
		)
		sentry.CaptureException(err)
	}
}

func marshalSnapshot(snapshot map[string]any) *string {
	if snapshot == nil {
		return nil
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		logger.Error("Failed to marshal audit snapshot", "error", err)
		return nil
	}
	s := string(data)
	return &s
}

// DiffSnapshots returns the keys of after whose values differ from
// before, mapped to the after value. Identity and creation bookkeeping
// keys are skipped; they cannot change on an update.
func DiffSnapshots(before, after map[string]any) map[string]any {
	changes := make(map[string]any)
	for key, afterValue := range after {
		if key == "id" || key == "created_at" {
			continue
		}
		if beforeValue, ok := before[key]; !ok || beforeValue != afterValue {
			changes[key] = afterValue
		}
	}
	return changes
}
