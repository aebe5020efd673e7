package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kyazs/BI-Record-Tracking/internal/models"
	"github.com/Kyazs/BI-Record-Tracking/internal/repository"
	"github.com/Kyazs/BI-Record-Tracking/internal/services"
)

type stubApplicantRepo struct {
	repository.ApplicantRepository
	applicants []models.Applicant
	total      int64
	updated    map[string]any
}

func (s *stubApplicantRepo) List(ctx context.Context, query *repository.ListQuery) ([]models.Applicant, int64, error) {
	return s.applicants, s.total, nil
}

func (s *stubApplicantRepo) Latest(ctx context.Context, limit int) ([]models.Applicant, error) {
	return s.applicants, nil
}

func (s *stubApplicantRepo) Newest(ctx context.Context) (*models.Applicant, error) {
	if len(s.applicants) == 0 {
		return nil, nil
	}
	newest := s.applicants[0]
	return &newest, nil
}

func (s *stubApplicantRepo) Count(ctx context.Context) (int64, error) {
	return s.total, nil
}

func (s *stubApplicantRepo) FindByID(ctx context.Context, id uint) (*models.Applicant, error) {
	clone := s.applicants[0]
	if s.updated != nil {
		if phone, ok := s.updated["phone"].(string); ok {
			clone.Phone = phone
		}
	}
	return &clone, nil
}

func (s *stubApplicantRepo) UpdateFields(ctx context.Context, id uint, changes map[string]any) error {
	s.updated = changes
	return nil
}

type stubDocumentRepo struct {
	repository.DocumentRepository
}

func (s *stubDocumentRepo) FindByApplicantID(ctx context.Context, applicantID uint) (*models.Document, error) {
	return nil, nil
}

func newTestHandler(repo *stubApplicantRepo, interval time.Duration) *ApplicantHandler {
	svc := services.NewApplicantService(repo, &stubDocumentRepo{}, services.NewAuditService(&stubAuditRepo{}), nil)
	return NewApplicantHandler(svc, nil, nil, "/storage", interval)
}

type stubAuditRepo struct {
	repository.AuditRepository
}

func (s *stubAuditRepo) Create(ctx context.Context, entry *models.AuditLog) error {
	return nil
}

func testApplicants() []models.Applicant {
	return []models.Applicant{
		{
			ID:          12,
			FullName:    "Juan Dela Cruz",
			Age:         21,
			DateOfBirth: time.Date(2004, 5, 12, 0, 0, 0, 0, time.UTC),
			Status:      models.StatusPending,
		},
	}
}

func TestApplicantHandler_Index_ResponseShape(t *testing.T) {
	gin.SetMode(gin.TestMode)

	repo := &stubApplicantRepo{applicants: testApplicants(), total: 25}
	h := newTestHandler(repo, time.Second)

	router := gin.New()
	router.GET("/api/v1/applicants", h.Index)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/applicants?page=2&search=juan", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data        []models.ApplicantResponse `json:"data"`
		CurrentPage int                        `json:"current_page"`
		LastPage    int                        `json:"last_page"`
		NextPageURL *string                    `json:"next_page_url"`
		PrevPageURL *string                    `json:"prev_page_url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.Len(t, body.Data, 1)
	assert.Equal(t, "Juan Dela Cruz", body.Data[0].FullName)
	assert.Equal(t, 2, body.CurrentPage)
	assert.Equal(t, 3, body.LastPage) // 25 records, 10 per page

	require.NotNil(t, body.NextPageURL)
	assert.Contains(t, *body.NextPageURL, "page=3")
	assert.Contains(t, *body.NextPageURL, "search=juan")
	require.NotNil(t, body.PrevPageURL)
	assert.Contains(t, *body.PrevPageURL, "page=1")
}

func TestApplicantHandler_Index_FirstAndLastPage(t *testing.T) {
	gin.SetMode(gin.TestMode)

	repo := &stubApplicantRepo{applicants: testApplicants(), total: 5}
	h := newTestHandler(repo, time.Second)

	router := gin.New()
	router.GET("/api/v1/applicants", h.Index)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/applicants", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["current_page"])
	assert.Equal(t, float64(1), body["last_page"])
	assert.Nil(t, body["next_page_url"])
	assert.Nil(t, body["prev_page_url"])
}

func TestApplicantHandler_Update_ResponseShape(t *testing.T) {
	gin.SetMode(gin.TestMode)

	repo := &stubApplicantRepo{applicants: testApplicants(), total: 1}
	h := newTestHandler(repo, time.Second)

	router := gin.New()
	router.PATCH("/api/v1/applicants/:id", h.Update)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PATCH", "/api/v1/applicants/12",
		strings.NewReader(`{"applicant": {"phone": "09998887766"}}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Message   string                   `json:"message"`
		Applicant models.ApplicantResponse `json:"applicant"`
		Documents map[string]*string       `json:"documents"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.NotEmpty(t, body.Message)
	assert.Equal(t, "09998887766", body.Applicant.Phone)
	assert.Equal(t, map[string]any{"phone": "09998887766"}, repo.updated)
}

func TestApplicantHandler_Update_ValidationShape(t *testing.T) {
	gin.SetMode(gin.TestMode)

	repo := &stubApplicantRepo{applicants: testApplicants(), total: 1}
	h := newTestHandler(repo, time.Second)

	router := gin.New()
	router.PATCH("/api/v1/applicants/:id", h.Update)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PATCH", "/api/v1/applicants/12",
		strings.NewReader(`{"phone": "12345"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body struct {
		Message string              `json:"message"`
		Errors  map[string][]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Message)
	assert.Contains(t, body.Errors, "phone")
}

func TestApplicantHandler_Stream_Framing(t *testing.T) {
	gin.SetMode(gin.TestMode)

	repo := &stubApplicantRepo{applicants: testApplicants(), total: 1}
	h := newTestHandler(repo, 5*time.Millisecond)

	router := gin.New()
	router.GET("/api/v1/applicants/stream", h.Stream)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/applicants/stream", nil).WithContext(ctx)
	router.ServeHTTP(w, req)

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	frames := strings.Split(strings.TrimSpace(w.Body.String()), "\n\n")
	require.NotEmpty(t, frames)

	for _, frame := range frames {
		require.True(t, strings.HasPrefix(frame, "data: "), "frame %q missing data prefix", frame)

		var payload struct {
			Applicants      []models.ApplicantResponse `json:"applicants"`
			TotalApplicants int64                      `json:"totalApplicants"`
			NewApplicant    *models.ApplicantResponse  `json:"newApplicant"`
		}
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frame, "data: ")), &payload))
		assert.Equal(t, int64(1), payload.TotalApplicants)
		assert.Len(t, payload.Applicants, 1)
		// The record existed before the connection opened
		assert.Nil(t, payload.NewApplicant)
	}
}
