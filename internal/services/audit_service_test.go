package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kyazs/BI-Record-Tracking/internal/models"
	"github.com/Kyazs/BI-Record-Tracking/internal/repository"
)

type mockAuditRepo struct {
	repository.AuditRepository
	entries []*models.AuditLog
	err     error
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *models.AuditLog) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func sampleApplicant() *models.Applicant {
	return &models.Applicant{
		ID:                  7,
		FullName:            "Juan Dela Cruz",
		Age:                 21,
		Address:             "Purok 4, Poblacion, Davao City, Davao del Sur",
		DateOfBirth:         time.Date(2004, 5, 12, 0, 0, 0, 0, time.UTC),
		BirthPlace:          "Davao City",
		School:              "Holy Cross College",
		Phone:               "09171234567",
		Status:              models.StatusPending,
		PNPOfficerName:      "PCpl Reyes",
		BarangayOfficerName: "Kag. Santos",
		SchoolOfficerName:   "Ms. Lim",
		RTCOfficerName:      "Atty. Cruz",
		CreatedAt:           time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC),
	}
}

func TestAuditService_RecordCreated(t *testing.T) {
	repo := &mockAuditRepo{}
	svc := NewAuditService(repo)

	svc.RecordCreated(context.Background(), 3, sampleApplicant())

	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	require.NotNil(t, entry.UserID)
	assert.Equal(t, uint(3), *entry.UserID)
	assert.Equal(t, uint(7), entry.ApplicantID)
	assert.Equal(t, models.AuditActionCreated, entry.Action)
	assert.Nil(t, entry.OldData)
	require.NotNil(t, entry.NewData)

	var after map[string]any
	require.NoError(t, json.Unmarshal([]byte(*entry.NewData), &after))
	assert.Equal(t, "Juan Dela Cruz", after["full_name"])
	assert.Equal(t, "2004-05-12", after["date_of_birth"])
	assert.Equal(t, "2026-01-15 09:30:00", after["created_at"])
}

func TestAuditService_RecordUpdated_ChangesOnly(t *testing.T) {
	repo := &mockAuditRepo{}
	svc := NewAuditService(repo)

	before := sampleApplicant()
	after := sampleApplicant()
	after.Status = models.StatusCleared

	svc.RecordUpdated(context.Background(), 3, before, after)

	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	assert.Equal(t, models.AuditActionUpdated, entry.Action)
	require.NotNil(t, entry.OldData)
	require.NotNil(t, entry.NewData)

	var full map[string]any
	require.NoError(t, json.Unmarshal([]byte(*entry.OldData), &full))
	assert.Equal(t, "Pending", full["status"])
	assert.Len(t, full, 14)

	var changes map[string]any
	require.NoError(t, json.Unmarshal([]byte(*entry.NewData), &changes))
	assert.Equal(t, map[string]any{"status": "Cleared"}, changes)
}

func TestAuditService_RecordDeleted(t *testing.T) {
	repo := &mockAuditRepo{}
	svc := NewAuditService(repo)

	svc.RecordDeleted(context.Background(), models.AuditUserSentinel, sampleApplicant())

	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	assert.Nil(t, entry.UserID)
	assert.Equal(t, models.AuditActionDeleted, entry.Action)
	require.NotNil(t, entry.OldData)
	assert.Nil(t, entry.NewData)
}

// The sentinel actor must never reach the database as a literal zero:
// logs.user_id references users and no user row has id 0.
func TestAuditService_SentinelActorStoredAsNull(t *testing.T) {
	repo := &mockAuditRepo{}
	svc := NewAuditService(repo)

	svc.RecordCreated(context.Background(), models.AuditUserSentinel, sampleApplicant())
	svc.RecordCreated(context.Background(), 5, sampleApplicant())

	require.Len(t, repo.entries, 2)
	assert.Nil(t, repo.entries[0].UserID)
	require.NotNil(t, repo.entries[1].UserID)
	assert.Equal(t, uint(5), *repo.entries[1].UserID)
}

func TestAuditService_AppendFailureDoesNotPanic(t *testing.T) {
	repo := &mockAuditRepo{err: assert.AnError}
	svc := NewAuditService(repo)

	assert.NotPanics(t, func() {
		svc.RecordCreated(context.Background(), 1, sampleApplicant())
	})
	assert.Empty(t, repo.entries)
}

func TestDiffSnapshots(t *testing.T) {
	tests := []struct {
		name     string
		before   map[string]any
		after    map[string]any
		expected map[string]any
	}{
		{
			name:     "No Changes",
			before:   map[string]any{"status": "Pending", "age": 21},
			after:    map[string]any{"status": "Pending", "age": 21},
			expected: map[string]any{},
		},
		{
			name:     "Single Field Changed",
			before:   map[string]any{"status": "Pending", "age": 21},
			after:    map[string]any{"status": "Cleared", "age": 21},
			expected: map[string]any{"status": "Cleared"},
		},
		{
			name:     "Multiple Fields Changed",
			before:   map[string]any{"status": "Pending", "age": 21, "school": "A"},
			after:    map[string]any{"status": "Cleared", "age": 22, "school": "A"},
			expected: map[string]any{"status": "Cleared", "age": 22},
		},
		{
			name:     "Identity Keys Skipped",
			before:   map[string]any{"id": 1, "created_at": "x", "status": "Pending"},
			after:    map[string]any{"id": 2, "created_at": "y", "status": "Pending"},
			expected: map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DiffSnapshots(tt.before, tt.after))
		})
	}
}
