package handlers

import (
	"github.com/Kyazs/BI-Record-Tracking/internal/config"
	"github.com/Kyazs/BI-Record-Tracking/internal/services"
)

// Handlers holds all handler instances
type Handlers struct {
	Health    *HealthHandler
	Auth      *AuthHandler
	User      *UserHandler
	Applicant *ApplicantHandler
	Audit     *AuditHandler
	Backup    *BackupHandler
	Dashboard *DashboardHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services, cfg *config.Config) *Handlers {
	return &Handlers{
		Health: NewHealthHandler(),
		Auth:   NewAuthHandler(svcs.Auth),
		User:   NewUserHandler(svcs.User),
		Applicant: NewApplicantHandler(
			svcs.Applicant,
			svcs.Report,
			svcs.Export,
			cfg.StorageBaseURL,
			cfg.FeedInterval,
		),
		Audit:     NewAuditHandler(svcs.Audit),
		Backup:    NewBackupHandler(svcs.Backup),
		Dashboard: NewDashboardHandler(svcs.Applicant, svcs.User),
	}
}
