package storage

import (
	"bytes"
	"mime/multipart"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadTestFile(t *testing.T, s *LocalStorage, filename string, content []byte) string {
	t.Helper()

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(32 << 20)
	require.NoError(t, err)
	header := form.File["file"][0]

	file, err := header.Open()
	require.NoError(t, err)
	defer file.Close()

	path, err := s.Upload(file, header, "certificates")
	require.NoError(t, err)
	return path
}

func TestLocalStorage_UploadAndDelete(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	path := uploadTestFile(t, s, "barangay.pdf", []byte("%PDF-1.4 test"))

	assert.True(t, strings.HasPrefix(path, "certificates"+string(filepath.Separator)))
	assert.Equal(t, ".pdf", filepath.Ext(path))
	assert.True(t, s.Exists(path))

	// Same source name must not collide
	other := uploadTestFile(t, s, "barangay.pdf", []byte("%PDF-1.4 other"))
	assert.NotEqual(t, path, other)

	require.NoError(t, s.Delete(path))
	assert.False(t, s.Exists(path))
	assert.True(t, s.Exists(other))
}

func TestLocalStorage_WriteFile(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	path, err := s.WriteFile([]byte("workbook"), "applicants_backup.xlsx", "backups")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("backups", "applicants_backup.xlsx"), path)
	assert.True(t, s.Exists(path))
}

func TestContentTypeAndSizeLimits(t *testing.T) {
	assert.True(t, IsValidContentType("application/pdf"))
	assert.True(t, IsValidContentType("image/png"))
	assert.False(t, IsValidContentType("text/plain"))
	assert.False(t, IsValidContentType(""))

	assert.Equal(t, int64(5*1024*1024), MaxFileSize())
}
