package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Kyazs/BI-Record-Tracking/internal/models"
	"github.com/Kyazs/BI-Record-Tracking/internal/repository"
)

// ExportService renders the applicant register as downloadable files
type ExportService struct {
	applicants repository.ApplicantRepository
}

// NewExportService creates a new export service
func NewExportService(applicants repository.ApplicantRepository) *ExportService {
	return &ExportService{applicants: applicants}
}

var exportHeader = []string{
	"ID", "Full Name", "Age", "Date of Birth", "Birth Place", "Address",
	"Phone", "School", "Status", "PNP Officer", "Barangay Officer",
	"School Officer", "RTC Officer", "Created At",
}

func exportRow(a *models.Applicant) []string {
	return []string{
		fmt.Sprintf("%d", a.ID),
		a.FullName,
		fmt.Sprintf("%d", a.Age),
		a.DateOfBirth.Format("2006-01-02"),
		a.BirthPlace,
		a.Address,
		a.Phone,
		a.School,
		a.Status,
		a.PNPOfficerName,
		a.BarangayOfficerName,
		a.SchoolOfficerName,
		a.RTCOfficerName,
		a.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// ApplicantsCSV renders the full applicant register as CSV
func (s *ExportService) ApplicantsCSV(ctx context.Context) ([]byte, string, error) {
	applicants, err := s.applicants.FindAll(ctx)
	if err != nil {
		return nil, "", err
	}

	buf := new(bytes.Buffer)
	writer := csv.NewWriter(buf)

	if err := writer.Write(exportHeader); err != nil {
		return nil, "", err
	}
	for i := range applicants {
		if err := writer.Write(exportRow(&applicants[i])); err != nil {
			return nil, "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("applicants_%s.csv", time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

// ApplicantsXLSX renders the full applicant register as a spreadsheet
func (s *ExportService) ApplicantsXLSX(ctx context.Context) ([]byte, string, error) {
	applicants, err := s.applicants.FindAll(ctx)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Applicants"
	_ = f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	for i, title := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, title)
		_ = f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for row := range applicants {
		for col, value := range exportRow(&applicants[row]) {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			_ = f.SetCellValue(sheet, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("applicants_%s.xlsx", time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}
