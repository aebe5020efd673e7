package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Kyazs/BI-Record-Tracking/internal/models"
	"github.com/Kyazs/BI-Record-Tracking/internal/repository"
	"github.com/Kyazs/BI-Record-Tracking/internal/services"
)

type stubUserRepo struct {
	repository.UserRepository
	users   []models.User
	created *models.User
	deleted []uint
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uint) (*models.User, error) {
	for i := range s.users {
		if s.users[i].ID == id {
			clone := s.users[i]
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) Create(ctx context.Context, user *models.User) error {
	for i := range s.users {
		if s.users[i].Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	user.ID = uint(len(s.users) + 1)
	s.created = user
	return nil
}

func (s *stubUserRepo) Update(ctx context.Context, user *models.User) error {
	for i := range s.users {
		if s.users[i].ID == user.ID {
			s.users[i] = *user
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *stubUserRepo) Delete(ctx context.Context, id uint) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubUserRepo) List(ctx context.Context, query *repository.ListQuery) ([]models.User, int64, error) {
	return s.users, int64(len(s.users)), nil
}

type stubRefreshTokenRepo struct {
	repository.RefreshTokenRepository
	revokedUsers []uint
}

func (s *stubRefreshTokenRepo) DeleteByUser(ctx context.Context, userID uint) error {
	s.revokedUsers = append(s.revokedUsers, userID)
	return nil
}

func newUserTestRouter(repo *stubUserRepo) (*gin.Engine, *stubRefreshTokenRepo) {
	gin.SetMode(gin.TestMode)
	refresh := &stubRefreshTokenRepo{}
	h := NewUserHandler(services.NewUserService(repo, refresh))

	router := gin.New()
	router.GET("/api/v1/users", h.Index)
	router.GET("/api/v1/users/:id", h.Show)
	router.POST("/api/v1/users", h.Create)
	router.PATCH("/api/v1/users/:id", h.Update)
	router.DELETE("/api/v1/users/:id", h.Delete)
	return router, refresh
}

func testUsers() []models.User {
	return []models.User{
		{ID: 1, Name: "Maria Santos", Email: "maria@example.com", Role: models.RoleAdmin},
		{ID: 2, Name: "Pedro Reyes", Email: "pedro@example.com", Role: models.RoleOfficer},
	}
}

func TestUserHandler_Index(t *testing.T) {
	router, _ := newUserTestRouter(&stubUserRepo{users: testUsers()})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/users", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Users      []models.UserResponse `json:"users"`
		Pagination struct {
			Page       int   `json:"page"`
			PerPage    int   `json:"per_page"`
			Total      int64 `json:"total"`
			TotalPages int64 `json:"total_pages"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.Len(t, body.Users, 2)
	assert.Equal(t, 1, body.Pagination.Page)
	assert.Equal(t, int64(2), body.Pagination.Total)
	assert.Equal(t, int64(1), body.Pagination.TotalPages)
	assert.NotContains(t, w.Body.String(), "encrypted_password")
}

func TestUserHandler_Create(t *testing.T) {
	repo := &stubUserRepo{users: testUsers()}
	router, _ := newUserTestRouter(repo)

	payload := `{"user":{"name":"Ana Lim","email":"Ana@example.com","password":"secret","role":"officer"}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/users", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, repo.created)
	assert.Equal(t, "ana@example.com", repo.created.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.created.EncryptedPassword), []byte("secret")))

	var body struct {
		Message string              `json:"message"`
		User    models.UserResponse `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "User created successfully", body.Message)
	assert.Equal(t, "Ana Lim", body.User.Name)
}

func TestUserHandler_Create_Validation(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		field   string
	}{
		{"missing name", `{"email":"x@example.com","password":"secret"}`, "name"},
		{"bad email", `{"name":"Ana Lim","email":"not-an-email","password":"secret"}`, "email"},
		{"short password", `{"name":"Ana Lim","email":"x@example.com","password":"abc"}`, "password"},
		{"unknown role", `{"name":"Ana Lim","email":"x@example.com","password":"secret","role":"superuser"}`, "role"},
		{"duplicate email", `{"name":"Ana Lim","email":"maria@example.com","password":"secret"}`, "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newUserTestRouter(&stubUserRepo{users: testUsers()})

			w := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/api/v1/users", strings.NewReader(tt.payload))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			require.Equal(t, http.StatusUnprocessableEntity, w.Code)

			var body struct {
				Message string              `json:"message"`
				Errors  map[string][]string `json:"errors"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "The given data was invalid.", body.Message)
			assert.Contains(t, body.Errors, tt.field)
		})
	}
}

func TestUserHandler_Update(t *testing.T) {
	repo := &stubUserRepo{users: testUsers()}
	router, _ := newUserTestRouter(repo)

	payload := `{"user":{"role":"admin"}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("PATCH", "/api/v1/users/2", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RoleAdmin, repo.users[1].Role)
	// untouched fields keep their values
	assert.Equal(t, "Pedro Reyes", repo.users[1].Name)
}

func TestUserHandler_Update_NotFound(t *testing.T) {
	router, _ := newUserTestRouter(&stubUserRepo{users: testUsers()})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PATCH", "/api/v1/users/99", strings.NewReader(`{"name":"Nobody"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUserHandler_Delete_RevokesRefreshTokens(t *testing.T) {
	repo := &stubUserRepo{users: testUsers()}
	router, refresh := newUserTestRouter(repo)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/v1/users/2", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []uint{2}, repo.deleted)
	assert.Equal(t, []uint{2}, refresh.revokedUsers)
}

func TestUserHandler_Show_NotFound(t *testing.T) {
	router, _ := newUserTestRouter(&stubUserRepo{users: testUsers()})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/users/42", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
