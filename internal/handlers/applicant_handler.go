package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Kyazs/BI-Record-Tracking/internal/middleware"
	"github.com/Kyazs/BI-Record-Tracking/internal/models"
	"github.com/Kyazs/BI-Record-Tracking/internal/repository"
	"github.com/Kyazs/BI-Record-Tracking/internal/services"
	"github.com/Kyazs/BI-Record-Tracking/pkg/logger"
)

type ApplicantHandler struct {
	applicantService *services.ApplicantService
	reportService    *services.ReportService
	exportService    *services.ExportService
	storageBaseURL   string
	feedInterval     time.Duration
}

func NewApplicantHandler(
	applicantService *services.ApplicantService,
	reportService *services.ReportService,
	exportService *services.ExportService,
	storageBaseURL string,
	feedInterval time.Duration,
) *ApplicantHandler {
	return &ApplicantHandler{
		applicantService: applicantService,
		reportService:    reportService,
		exportService:    exportService,
		storageBaseURL:   storageBaseURL,
		feedInterval:     feedInterval,
	}
}

// @Summary List Applicants
// @Description Get a paginated list of applicant records
// @Tags Applicants
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param search query string false "Search by name, phone, school, status or birth date"
// @Param status query string false "Filter by clearance status"
// @Param sort query string false "Sort by created_at: asc or desc" default(desc)
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]string
// @Security BearerAuth
// @Router /applicants [get]
func (h *ApplicantHandler) Index(c *gin.Context) {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if query.Page < 1 {
		query.Page = 1
	}
	query.Search = c.Query("search")
	query.SortDir = c.DefaultQuery("sort", "desc")
	if status := c.Query("status"); status != "" {
		query.Filters["status"] = status
	}

	applicants, total, err := h.applicantService.List(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	responses := make([]models.ApplicantResponse, 0, len(applicants))
	for i := range applicants {
		responses = append(responses, applicants[i].ToResponse())
	}

	lastPage := int((total + int64(query.PerPage) - 1) / int64(query.PerPage))
	if lastPage < 1 {
		lastPage = 1
	}

	c.JSON(http.StatusOK, gin.H{
		"data":          responses,
		"current_page":  query.Page,
		"last_page":     lastPage,
		"next_page_url": pageURL(c, query.Page+1, query.Page < lastPage),
		"prev_page_url": pageURL(c, query.Page-1, query.Page > 1),
	})
}

// pageURL rebuilds the request URL with the page param swapped, nil when
// the page does not exist.
func pageURL(c *gin.Context, page int, exists bool) *string {
	if !exists {
		return nil
	}
	values := url.Values{}
	for k, v := range c.Request.URL.Query() {
		values[k] = v
	}
	values.Set("page", strconv.Itoa(page))
	u := c.Request.URL.Path + "?" + values.Encode()
	return &u
}

// @Summary Get Applicant
// @Description Get an applicant record with its document URLs
// @Tags Applicants
// @Produce json
// @Param id path int true "Applicant ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /applicants/{id} [get]
func (h *ApplicantHandler) Show(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid applicant id"})
		return
	}

	applicant, doc, err := h.applicantService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Applicant not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var documents map[string]*string
	if doc != nil {
		documents = doc.SlotURLs(h.storageBaseURL)
	}

	c.JSON(http.StatusOK, gin.H{
		"applicant": applicant.ToResponse(),
		"documents": documents,
	})
}

// @Summary Create Applicant
// @Description Create an applicant record with its certificate uploads
// @Tags Applicants
// @Accept multipart/form-data
// @Produce json
// @Success 201 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /applicants [post]
func (h *ApplicantHandler) Create(c *gin.Context) {
	var in services.CreateApplicantInput
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid form data"})
		return
	}
	in.Files = collectSlotFiles(c)

	applicant, doc, err := h.applicantService.Create(c.Request.Context(), middleware.GetUserID(c), &in)
	if err != nil {
		if ve, ok := services.AsValidationError(err); ok {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"message": "The given data was invalid.",
				"errors":  ve.Fields,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Failed to create applicant",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Applicant created successfully",
		"applicant": applicant.ToResponse(),
		"documents": doc.SlotURLs(h.storageBaseURL),
	})
}

// @Summary Update Applicant
// @Description Partially update an applicant record and replace documents
// @Tags Applicants
// @Accept json
// @Produce json
// @Param id path int true "Applicant ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /applicants/{id} [patch]
func (h *ApplicantHandler) Update(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid applicant id"})
		return
	}

	var patch services.ApplicantPatch
	var files map[string]*multipart.FileHeader

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid form data"})
			return
		}
		bindFormPatch(c, &patch)
		files = collectSlotFiles(c)
	} else {
		if err := BindNestedOrFlat(c, "applicant", &patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	applicant, doc, err := h.applicantService.Update(c.Request.Context(), middleware.GetUserID(c), id, &patch, files)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Applicant not found"})
			return
		}
		if ve, ok := services.AsValidationError(err); ok {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"message": "The given data was invalid.",
				"errors":  ve.Fields,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Failed to update applicant",
			"error":   err.Error(),
		})
		return
	}

	var documents map[string]*string
	if doc != nil {
		documents = doc.SlotURLs(h.storageBaseURL)
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Applicant updated successfully",
		"applicant": applicant.ToResponse(),
		"documents": documents,
	})
}

// @Summary Delete Applicant
// @Description Delete an applicant record and its documents
// @Tags Applicants
// @Produce json
// @Param id path int true "Applicant ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /applicants/{id} [delete]
func (h *ApplicantHandler) Delete(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid applicant id"})
		return
	}

	if err := h.applicantService.Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Applicant not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Applicant deleted successfully"})
}

// @Summary Applicant Change Feed
// @Description Server-sent event stream of applicant changes
// @Tags Applicants
// @Produce text/event-stream
// @Security BearerAuth
// @Router /applicants/stream [get]
func (h *ApplicantHandler) Stream(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()

	// Records existing before the connection opened are never announced
	lastSeenID, err := h.applicantService.HighWaterMark(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming unsupported"})
		return
	}

	ticker := time.NewTicker(h.feedInterval)
	defer ticker.Stop()

	send := func() bool {
		snapshot, next, err := h.applicantService.FeedTick(ctx, lastSeenID)
		if err != nil {
			logger.Warn("Change feed tick failed", "error", err)
			return true
		}
		lastSeenID = next
		if err := writeSSEFrame(c, snapshot); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	// First frame goes out immediately
	if !send() {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !send() {
				return
			}
		}
	}
}

func writeSSEFrame(c *gin.Context, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.Writer, "data: %s\n\n", data)
	return err
}

// @Summary Export Applicants
// @Description Download the applicant register as a spreadsheet or CSV
// @Tags Applicants
// @Produce application/octet-stream
// @Param format query string false "xlsx or csv" default(xlsx)
// @Security BearerAuth
// @Router /applicants/export [get]
func (h *ApplicantHandler) Export(c *gin.Context) {
	var (
		data     []byte
		filename string
		err      error
	)
	switch c.DefaultQuery("format", "xlsx") {
	case "csv":
		data, filename, err = h.exportService.ApplicantsCSV(c.Request.Context())
	default:
		data, filename, err = h.exportService.ApplicantsXLSX(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/octet-stream", data)
}

// @Summary Applicant Record PDF
// @Description Download a single applicant's record sheet
// @Tags Applicants
// @Produce application/pdf
// @Param id path int true "Applicant ID"
// @Security BearerAuth
// @Router /applicants/{id}/record_pdf [get]
func (h *ApplicantHandler) RecordPDF(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid applicant id"})
		return
	}

	buf, filename, err := h.reportService.ApplicantRecordPDF(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Applicant not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// @Summary Clearance Certificate
// @Description Download the clearance certificate for a cleared applicant
// @Tags Applicants
// @Produce application/pdf
// @Param id path int true "Applicant ID"
// @Security BearerAuth
// @Router /applicants/{id}/certificate [get]
func (h *ApplicantHandler) Certificate(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid applicant id"})
		return
	}

	buf, filename, err := h.reportService.ClearanceCertificatePDF(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Applicant not found"})
		case errors.Is(err, services.ErrNotCleared):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Applicant is not cleared"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

// collectSlotFiles gathers multipart uploads sent as file[<slot>]
func collectSlotFiles(c *gin.Context) map[string]*multipart.FileHeader {
	form := c.Request.MultipartForm
	if form == nil {
		return nil
	}
	files := make(map[string]*multipart.FileHeader)
	for key, headers := range form.File {
		if len(headers) == 0 {
			continue
		}
		slot := key
		if strings.HasPrefix(key, "file[") && strings.HasSuffix(key, "]") {
			slot = key[len("file[") : len(key)-1]
		}
		files[slot] = headers[0]
	}
	if len(files) == 0 {
		return nil
	}
	return files
}

// bindFormPatch maps supplied multipart form values onto the patch;
// absent fields stay nil.
func bindFormPatch(c *gin.Context, patch *services.ApplicantPatch) {
	form := c.Request.MultipartForm
	if form == nil {
		return
	}
	str := func(key string) *string {
		if vals, ok := form.Value[key]; ok && len(vals) > 0 {
			v := vals[0]
			return &v
		}
		return nil
	}
	patch.FullName = str("full_name")
	patch.Address = str("address")
	patch.DateOfBirth = str("date_of_birth")
	patch.BirthPlace = str("birth_place")
	patch.School = str("school")
	patch.Phone = str("phone")
	patch.Status = str("status")
	patch.PNPOfficerName = str("pnp_officer_name")
	patch.BarangayOfficerName = str("barangay_officer_name")
	patch.SchoolOfficerName = str("school_officer_name")
	patch.RTCOfficerName = str("rtc_officer_name")
	if vals, ok := form.Value["age"]; ok && len(vals) > 0 {
		if age, err := strconv.Atoi(vals[0]); err == nil {
			patch.Age = &age
		}
	}
}
