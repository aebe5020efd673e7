package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"os"
	"time"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/jung-kurt/gofpdf"
	"gorm.io/gorm"

	"github.com/Kyazs/BI-Record-Tracking/internal/models"
	"github.com/Kyazs/BI-Record-Tracking/internal/repository"
)

// ReportService renders per-applicant PDF documents
type ReportService struct {
	applicants repository.ApplicantRepository
	documents  repository.DocumentRepository
}

// NewReportService creates a new report service
func NewReportService(applicants repository.ApplicantRepository, documents repository.DocumentRepository) *ReportService {
	return &ReportService{applicants: applicants, documents: documents}
}

// ApplicantRecordPDF renders a single applicant's record sheet
func (s *ReportService) ApplicantRecordPDF(ctx context.Context, id uint) (*bytes.Buffer, string, error) {
	applicant, err := s.applicants.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	doc, err := s.documents.FindByApplicantID(ctx, id)
	if err != nil {
		return nil, "", err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Applicant Record")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(40, 8, fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02 15:04")))
	pdf.Ln(12)

	rows := [][2]string{
		{"Record ID", fmt.Sprintf("%d", applicant.ID)},
		{"Full Name", applicant.FullName},
		{"Age", fmt.Sprintf("%d", applicant.Age)},
		{"Date of Birth", applicant.DateOfBirth.Format("2006-01-02")},
		{"Birth Place", applicant.BirthPlace},
		{"Address", applicant.Address},
		{"Phone", applicant.Phone},
		{"School", applicant.School},
		{"Status", applicant.Status},
		{"PNP Officer", applicant.PNPOfficerName},
		{"Barangay Officer", applicant.BarangayOfficerName},
		{"School Officer", applicant.SchoolOfficerName},
		{"RTC Officer", applicant.RTCOfficerName},
	}

	pdf.SetFont("Arial", "", 11)
	for _, row := range rows {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(60, 8, row[0], "1", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(120, 8, row[1], "1", 1, "L", false, 0, "")
	}

	pdf.Ln(8)
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 10, "Submitted Documents")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 11)
	for _, slot := range models.DocumentSlots {
		status := "Missing"
		if doc != nil && doc.PathFor(slot) != nil {
			status = "Submitted"
		}
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(60, 8, slotLabel(slot), "1", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(120, 8, status, "1", 1, "L", false, 0, "")
	}

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		return nil, "", fmt.Errorf("rendering record pdf: %w", err)
	}

	filename := fmt.Sprintf("applicant_%d_record.pdf", applicant.ID)
	return buf, filename, nil
}

// ErrNotCleared is returned when a certificate is requested for an
// applicant whose clearance is not yet granted.
var ErrNotCleared = errors.New("applicant is not cleared")

// ClearanceCertificatePDF renders the clearance certificate for a
// cleared applicant.
func (s *ReportService) ClearanceCertificatePDF(ctx context.Context, id uint) (*bytes.Buffer, string, error) {
	applicant, err := s.applicants.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	if applicant.Status != models.StatusCleared {
		return nil, "", ErrNotCleared
	}

	data := map[string]any{
		"FullName":    applicant.FullName,
		"Age":         applicant.Age,
		"Address":     applicant.Address,
		"DateOfBirth": applicant.DateOfBirth.Format("January 2, 2006"),
		"BirthPlace":  applicant.BirthPlace,
		"School":      applicant.School,
		"IssuedAt":    time.Now().Format("January 2, 2006"),
		"PNPOfficer":  applicant.PNPOfficerName,
		"RTCOfficer":  applicant.RTCOfficerName,
	}

	buf, err := s.generatePDF("clearance_certificate.html", data)
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("applicant_%d_clearance.pdf", applicant.ID)
	return buf, filename, nil
}

// generatePDF renders an HTML template and converts it with wkhtmltopdf
func (s *ReportService) generatePDF(templateName string, data interface{}) (*bytes.Buffer, error) {
	tmplPath := fmt.Sprintf("internal/services/templates/reports/%s", templateName)
	if _, err := os.Stat(tmplPath); os.IsNotExist(err) {
		tmplPath = fmt.Sprintf("templates/reports/%s", templateName)
	}

	tmpl, err := template.ParseFiles(tmplPath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", templateName, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create pdf generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.Grayscale.Set(false)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader(buf.Bytes()))
	page.EnableLocalFileAccess.Set(true)
	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create pdf: %w", err)
	}

	return pdfg.Buffer(), nil
}

func slotLabel(slot string) string {
	switch slot {
	case models.SlotBarangayCert:
		return "Barangay Certificate"
	case models.SlotPNPClearance:
		return "PNP Clearance"
	case models.SlotRTCClearance:
		return "RTC Clearance"
	case models.SlotSchoolCert:
		return "School Certificate"
	case models.SlotDerogatoryRecords:
		return "Derogatory Records"
	default:
		return slot
	}
}
