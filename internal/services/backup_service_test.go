package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kyazs/BI-Record-Tracking/internal/cache"
	"github.com/Kyazs/BI-Record-Tracking/internal/jobs"
	"github.com/Kyazs/BI-Record-Tracking/internal/models"
	"github.com/Kyazs/BI-Record-Tracking/internal/ratelimit"
	"github.com/Kyazs/BI-Record-Tracking/internal/repository"
)

type stubExportRepo struct {
	repository.ApplicantRepository
}

func (s *stubExportRepo) FindAll(ctx context.Context) ([]models.Applicant, error) {
	return []models.Applicant{*sampleApplicant()}, nil
}

type mockArtifactStorage struct {
	written []string
	err     error
}

func (m *mockArtifactStorage) WriteFile(data []byte, filename string, subDir string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	path := subDir + "/" + filename
	m.written = append(m.written, path)
	return path, nil
}

func newTestBackupService(store *mockArtifactStorage, worker *jobs.Worker) (*BackupService, cache.Cache) {
	statusCache := cache.NewMemoryCache()
	return NewBackupService(
		NewExportService(&stubExportRepo{}),
		store,
		worker,
		ratelimit.NewMemoryLimiter(),
		statusCache,
	), statusCache
}

func waitForStatus(t *testing.T, svc *BackupService, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if svc.Status(context.Background()) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("backup status never reached %q, last was %q", want, svc.Status(context.Background()))
}

func TestBackupService_Trigger(t *testing.T) {
	worker := jobs.NewWorker(1)
	defer worker.Shutdown()

	store := &mockArtifactStorage{}
	svc, _ := newTestBackupService(store, worker)

	require.NoError(t, svc.Trigger(context.Background(), 3))
	waitForStatus(t, svc, BackupCompleted)

	require.Len(t, store.written, 1)
	assert.Contains(t, store.written[0], "backups/")
}

func TestBackupService_Trigger_RateLimited(t *testing.T) {
	worker := jobs.NewWorker(1)
	defer worker.Shutdown()

	svc, _ := newTestBackupService(&mockArtifactStorage{}, worker)
	ctx := context.Background()

	require.NoError(t, svc.Trigger(ctx, 3))

	err := svc.Trigger(ctx, 3)
	assert.ErrorIs(t, err, ErrRateLimited)

	// A different actor has their own window
	assert.NoError(t, svc.Trigger(ctx, 4))
}

func TestBackupService_RunFailureRecorded(t *testing.T) {
	worker := jobs.NewWorker(1)
	defer worker.Shutdown()

	store := &mockArtifactStorage{err: assert.AnError}
	svc, _ := newTestBackupService(store, worker)

	err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, BackupFailed, svc.Status(context.Background()))
}

func TestBackupService_StatusDefault(t *testing.T) {
	worker := jobs.NewWorker(1)
	defer worker.Shutdown()

	svc, _ := newTestBackupService(&mockArtifactStorage{}, worker)
	assert.Equal(t, BackupNotStarted, svc.Status(context.Background()))
}
