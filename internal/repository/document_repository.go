package repository

import (
	"context"
	"errors"

	"github.com/Kyazs/BI-Record-Tracking/internal/models"
	"gorm.io/gorm"
)

// DocumentRepository defines the interface for document-set data access
type DocumentRepository interface {
	FindByApplicantID(ctx context.Context, applicantID uint) (*models.Document, error)
	Create(ctx context.Context, doc *models.Document) error
	Save(ctx context.Context, doc *models.Document) error
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// FindByApplicantID returns the document set for an applicant, nil when
// none has been created yet.
func (r *documentRepository) FindByApplicantID(ctx context.Context, applicantID uint) (*models.Document, error) {
	var doc models.Document
	err := r.db.WithContext(ctx).Where("applicant_id = ?", applicantID).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) Create(ctx context.Context, doc *models.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *documentRepository) Save(ctx context.Context, doc *models.Document) error {
	return r.db.WithContext(ctx).Save(doc).Error
}
