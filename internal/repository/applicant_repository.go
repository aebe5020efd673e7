package repository

import (
	"context"
	"errors"

	"github.com/Kyazs/BI-Record-Tracking/internal/models"
	"gorm.io/gorm"
)

// ApplicantRepository defines the interface for applicant data access
type ApplicantRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Applicant, error)
	Create(ctx context.Context, applicant *models.Applicant) error
	UpdateFields(ctx context.Context, id uint, changes map[string]any) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, query *ListQuery) ([]models.Applicant, int64, error)
	Latest(ctx context.Context, limit int) ([]models.Applicant, error)
	Newest(ctx context.Context) (*models.Applicant, error)
	Count(ctx context.Context) (int64, error)
	FindAll(ctx context.Context) ([]models.Applicant, error)
}

type applicantRepository struct {
	db *gorm.DB
}

// NewApplicantRepository creates a new applicant repository
func NewApplicantRepository(db *gorm.DB) ApplicantRepository {
	return &applicantRepository{db: db}
}

func (r *applicantRepository) FindByID(ctx context.Context, id uint) (*models.Applicant, error) {
	var applicant models.Applicant
	err := r.db.WithContext(ctx).First(&applicant, id).Error
	if err != nil {
		return nil, err
	}
	return &applicant, nil
}

func (r *applicantRepository) Create(ctx context.Context, applicant *models.Applicant) error {
	return r.db.WithContext(ctx).Create(applicant).Error
}

// UpdateFields writes only the supplied columns. Callers pass the changed
// column set so untouched fields are never overwritten.
func (r *applicantRepository) UpdateFields(ctx context.Context, id uint, changes map[string]any) error {
	if len(changes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Applicant{}).
		Where("id = ?", id).
		Updates(changes).Error
}

func (r *applicantRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Applicant{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *applicantRepository) List(ctx context.Context, query *ListQuery) ([]models.Applicant, int64, error) {
	var applicants []models.Applicant
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Applicant{})

	// Free-text search across the displayed fields; the date column is
	// cast so substring matches work on its textual form.
	if query.Search != "" {
		search := "%" + query.Search + "%"
		db = db.Where(
			"full_name ILIKE ? OR phone ILIKE ? OR school ILIKE ? OR status ILIKE ? OR date_of_birth::text ILIKE ?",
			search, search, search, search, search,
		)
	}

	if query.Filters["status"] != "" {
		db = db.Where("status = ?", query.Filters["status"])
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "created_at DESC"
	if query.SortDir == "asc" {
		order = "created_at ASC"
	}
	db = db.Order(order)

	if query.PerPage > 0 {
		db = db.Offset(query.Offset()).Limit(query.PerPage)
	}

	err := db.Find(&applicants).Error
	return applicants, total, err
}

func (r *applicantRepository) Latest(ctx context.Context, limit int) ([]models.Applicant, error) {
	var applicants []models.Applicant
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&applicants).Error
	return applicants, err
}

// Newest returns the most recently inserted applicant, nil when the table
// is empty.
func (r *applicantRepository) Newest(ctx context.Context) (*models.Applicant, error) {
	var applicant models.Applicant
	err := r.db.WithContext(ctx).Order("id DESC").First(&applicant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &applicant, nil
}

func (r *applicantRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Applicant{}).Count(&count).Error
	return count, err
}

func (r *applicantRepository) FindAll(ctx context.Context) ([]models.Applicant, error) {
	var applicants []models.Applicant
	err := r.db.WithContext(ctx).Order("id ASC").Find(&applicants).Error
	return applicants, err
}
