package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Kyazs/BI-Record-Tracking/internal/cache"
	"github.com/Kyazs/BI-Record-Tracking/internal/jobs"
	"github.com/Kyazs/BI-Record-Tracking/internal/ratelimit"
	"github.com/Kyazs/BI-Record-Tracking/pkg/logger"
)

const (
	backupStatusKey = "backup_status"
	backupStatusTTL = 30 * time.Minute

	backupWindow = 5 * time.Minute
	backupLimit  = 1
)

// Backup status values exposed through Status
const (
	BackupNotStarted = "not_started"
	BackupInProgress = "in_progress"
	BackupCompleted  = "completed"
	BackupFailed     = "failed"
)

// ArtifactStorage persists finished backup files
type ArtifactStorage interface {
	WriteFile(data []byte, filename string, subDir string) (string, error)
}

// BackupService runs rate-limited snapshots of the applicant register
type BackupService struct {
	export  *ExportService
	storage ArtifactStorage
	worker  *jobs.Worker
	limiter ratelimit.Limiter
	cache   cache.Cache
}

// NewBackupService creates a new backup service
func NewBackupService(
	export *ExportService,
	storage ArtifactStorage,
	worker *jobs.Worker,
	limiter ratelimit.Limiter,
	c cache.Cache,
) *BackupService {
	return &BackupService{
		export:  export,
		storage: storage,
		worker:  worker,
		limiter: limiter,
		cache:   c,
	}
}

// Trigger enqueues a backup run for the given actor. At most one run per
// actor is accepted within the rate-limit window; excess requests get
// ErrRateLimited without touching the queue.
func (s *BackupService) Trigger(ctx context.Context, actorID uint) error {
	key := fmt.Sprintf("backup-run-%d", actorID)
	allowed, err := s.limiter.Allow(ctx, key, backupLimit, backupWindow)
	if err != nil {
		return fmt.Errorf("checking backup rate limit: %w", err)
	}
	if !allowed {
		return ErrRateLimited
	}

	s.setStatus(ctx, BackupInProgress)
	s.worker.Enqueue(func(jobCtx context.Context) error {
		return s.run(jobCtx)
	})
	return nil
}

// Run executes a backup immediately, bypassing the rate limit. The
// scheduler uses it for the nightly run.
func (s *BackupService) Run(ctx context.Context) error {
	s.setStatus(ctx, BackupInProgress)
	return s.run(ctx)
}

// Status reports the outcome of the most recent backup run
func (s *BackupService) Status(ctx context.Context) string {
	status, err := s.cache.Get(ctx, backupStatusKey)
	if err != nil {
		logger.Warn("Failed to read backup status", "error", err)
		return BackupNotStarted
	}
	if status == "" {
		return BackupNotStarted
	}
	return status
}

func (s *BackupService) run(ctx context.Context) error {
	data, _, err := s.export.ApplicantsXLSX(ctx)
	if err != nil {
		s.setStatus(ctx, BackupFailed)
		return fmt.Errorf("exporting applicants for backup: %w", err)
	}

	filename := fmt.Sprintf("applicants_backup_%s.xlsx", time.Now().Format("20060102_150405"))
	path, err := s.storage.WriteFile(data, filename, "backups")
	if err != nil {
		s.setStatus(ctx, BackupFailed)
		return fmt.Errorf("writing backup file: %w", err)
	}

	s.setStatus(ctx, BackupCompleted)
	logger.Info("Backup completed", "path", path, "bytes", len(data))
	return nil
}

func (s *BackupService) setStatus(ctx context.Context, status string) {
	if err := s.cache.Set(ctx, backupStatusKey, status, backupStatusTTL); err != nil {
		logger.Warn("Failed to record backup status", "status", status, "error", err)
	}
}
