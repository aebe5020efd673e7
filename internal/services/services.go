package services

import (
	"github.com/Kyazs/BI-Record-Tracking/internal/cache"
	"github.com/Kyazs/BI-Record-Tracking/internal/config"
	"github.com/Kyazs/BI-Record-Tracking/internal/jobs"
	"github.com/Kyazs/BI-Record-Tracking/internal/ratelimit"
	"github.com/Kyazs/BI-Record-Tracking/internal/repository"
	"github.com/Kyazs/BI-Record-Tracking/internal/storage"
)

// Services holds all service instances
type Services struct {
	Auth      *AuthService
	User      *UserService
	Applicant *ApplicantService
	Audit     *AuditService
	Export    *ExportService
	Report    *ReportService
	Backup    *BackupService
}

// NewServices creates all service instances
func NewServices(
	repos *repository.Repositories,
	worker *jobs.Worker,
	blobs *storage.LocalStorage,
	limiter ratelimit.Limiter,
	c cache.Cache,
	cfg *config.Config,
) *Services {
	auditSvc := NewAuditService(repos.Audit)
	exportSvc := NewExportService(repos.Applicant)

	return &Services{
		Auth:      NewAuthService(repos.User, repos.RefreshToken, cfg),
		User:      NewUserService(repos.User, repos.RefreshToken),
		Applicant: NewApplicantService(repos.Applicant, repos.Document, auditSvc, blobs),
		Audit:     auditSvc,
		Export:    exportSvc,
		Report:    NewReportService(repos.Applicant, repos.Document),
		Backup:    NewBackupService(exportSvc, blobs, worker, limiter, c),
	}
}
