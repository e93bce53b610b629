package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/dto"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	appErrors "github.com/VipuDevAI/Prashnakosh-sub002/pkg/errors"
	"github.com/VipuDevAI/Prashnakosh-sub002/pkg/storage"
)

type referenceRepoStub struct {
	materials map[string]*models.ReferenceMaterial
	nextID    int
	failNext  bool
}

func newReferenceRepoStub() *referenceRepoStub {
	return &referenceRepoStub{materials: make(map[string]*models.ReferenceMaterial)}
}

func (s *referenceRepoStub) Create(_ context.Context, material *models.ReferenceMaterial) error {
	if s.failNext {
		s.failNext = false
		return fmt.Errorf("insert failed")
	}
	s.nextID++
	material.ID = fmt.Sprintf("material-%d", s.nextID)
	clone := *material
	s.materials[material.ID] = &clone
	return nil
}

func (s *referenceRepoStub) FindByID(_ context.Context, id string) (*models.ReferenceMaterial, error) {
	material, ok := s.materials[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *material
	return &clone, nil
}

func (s *referenceRepoStub) List(_ context.Context, filter models.ReferenceMaterialFilter) ([]models.ReferenceMaterial, int, error) {
	var out []models.ReferenceMaterial
	for _, material := range s.materials {
		if material.TenantID != filter.TenantID {
			continue
		}
		if filter.Subject != "" && material.Subject != filter.Subject {
			continue
		}
		out = append(out, *material)
	}
	return out, len(out), nil
}

func (s *referenceRepoStub) TotalSizeBytes(_ context.Context, tenantID string) (int64, error) {
	var total int64
	for _, material := range s.materials {
		if material.TenantID == tenantID {
			total += material.SizeBytes
		}
	}
	return total, nil
}

func (s *referenceRepoStub) Delete(_ context.Context, id string) error {
	delete(s.materials, id)
	return nil
}

type quotaStoreStub struct {
	configs map[string]*models.StorageConfig
}

func (s *quotaStoreStub) GetStorageConfig(_ context.Context, tenantID string) (*models.StorageConfig, error) {
	cfg, ok := s.configs[tenantID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *cfg
	return &clone, nil
}

func newReferenceFixture(t *testing.T, quotaBytes int64) (*referenceRepoStub, *ReferenceService) {
	t.Helper()
	repo := newReferenceRepoStub()
	quotas := &quotaStoreStub{configs: map[string]*models.StorageConfig{
		"tenant-1": {TenantID: "tenant-1", BucketName: "exam-files", FolderPath: "gvs01", MaxStorageBytes: quotaBytes},
	}}
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return repo, NewReferenceService(repo, quotas, files, nil)
}

func pdfUpload() (dto.CreateReferenceMaterialRequest, string, string) {
	req := dto.CreateReferenceMaterialRequest{
		Title:   "Algebra formula sheet",
		Grade:   "10",
		Subject: "Mathematics",
	}
	return req, "formulas.pdf", "application/pdf"
}

func TestReferenceServiceUploadAndDownload(t *testing.T) {
	_, svc := newReferenceFixture(t, 1<<20)
	teacher := claimsFor("teacher-1", models.RoleTeacher)

	req, name, contentType := pdfUpload()
	body := "pdf-bytes"
	material, err := svc.Upload(context.Background(), "tenant-1", req, name, contentType, int64(len(body)), strings.NewReader(body), teacher)
	require.NoError(t, err)

	assert.Equal(t, "mathematics", material.Subject)
	assert.Equal(t, "formulas.pdf", material.FileName)
	assert.Equal(t, "teacher-1", material.UploadedBy)
	assert.Contains(t, material.FilePath, "reference")
	assert.True(t, strings.HasSuffix(material.FilePath, ".pdf"))

	loaded, file, err := svc.Download(context.Background(), "tenant-1", material.ID)
	require.NoError(t, err)
	defer file.Close()
	stored, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, body, string(stored))
	assert.Equal(t, material.ID, loaded.ID)
}

func TestReferenceServiceQuotaEnforced(t *testing.T) {
	repo, svc := newReferenceFixture(t, 100)
	teacher := claimsFor("teacher-1", models.RoleTeacher)

	req, name, contentType := pdfUpload()
	first := strings.Repeat("a", 80)
	_, err := svc.Upload(context.Background(), "tenant-1", req, name, contentType, int64(len(first)), strings.NewReader(first), teacher)
	require.NoError(t, err)

	second := strings.Repeat("b", 40)
	_, err = svc.Upload(context.Background(), "tenant-1", req, name, contentType, int64(len(second)), strings.NewReader(second), teacher)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "20 bytes remaining")
	assert.Len(t, repo.materials, 1)
}

func TestReferenceServiceQuotaFreedOnDelete(t *testing.T) {
	_, svc := newReferenceFixture(t, 100)
	teacher := claimsFor("teacher-1", models.RoleTeacher)

	req, name, contentType := pdfUpload()
	body := strings.Repeat("a", 80)
	material, err := svc.Upload(context.Background(), "tenant-1", req, name, contentType, int64(len(body)), strings.NewReader(body), teacher)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "tenant-1", material.ID, teacher))

	_, err = svc.Upload(context.Background(), "tenant-1", req, name, contentType, int64(len(body)), strings.NewReader(body), teacher)
	require.NoError(t, err)
}

func TestReferenceServiceUnconfiguredStorage(t *testing.T) {
	repo := newReferenceRepoStub()
	quotas := &quotaStoreStub{configs: map[string]*models.StorageConfig{}}
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	svc := NewReferenceService(repo, quotas, files, nil)

	req, name, contentType := pdfUpload()
	_, err = svc.Upload(context.Background(), "tenant-1", req, name, contentType, 10, strings.NewReader("0123456789"), claimsFor("teacher-1", models.RoleTeacher))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "not configured")
}

func TestReferenceServiceUploadValidation(t *testing.T) {
	_, svc := newReferenceFixture(t, 1<<20)
	teacher := claimsFor("teacher-1", models.RoleTeacher)

	req, name, _ := pdfUpload()
	_, err := svc.Upload(context.Background(), "tenant-1", req, name, "application/zip", 10, strings.NewReader("0123456789"), teacher)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "unsupported file type")

	_, err = svc.Upload(context.Background(), "tenant-1", req, name, "application/pdf", 0, strings.NewReader(""), teacher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Upload(context.Background(), "tenant-1", req, name, "application/pdf", maxReferenceFileBytes+1, strings.NewReader("x"), teacher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	req.Title = "ab"
	_, err = svc.Upload(context.Background(), "tenant-1", req, name, "application/pdf", 10, strings.NewReader("0123456789"), teacher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReferenceServiceUploadRoleRestricted(t *testing.T) {
	_, svc := newReferenceFixture(t, 1<<20)

	req, name, contentType := pdfUpload()
	for _, role := range []models.UserRole{models.RoleStudent, models.RoleParent} {
		_, err := svc.Upload(context.Background(), "tenant-1", req, name, contentType, 10, strings.NewReader("0123456789"), claimsFor("user-1", role))
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	}
}

func TestReferenceServiceOrphanCleanupOnInsertFailure(t *testing.T) {
	repo, svc := newReferenceFixture(t, 1<<20)
	repo.failNext = true
	teacher := claimsFor("teacher-1", models.RoleTeacher)

	req, name, contentType := pdfUpload()
	_, err := svc.Upload(context.Background(), "tenant-1", req, name, contentType, 10, strings.NewReader("0123456789"), teacher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.materials)
}

func TestReferenceServiceDeleteOwnership(t *testing.T) {
	repo, svc := newReferenceFixture(t, 1<<20)
	teacher := claimsFor("teacher-1", models.RoleTeacher)

	req, name, contentType := pdfUpload()
	material, err := svc.Upload(context.Background(), "tenant-1", req, name, contentType, 10, strings.NewReader("0123456789"), teacher)
	require.NoError(t, err)

	other := claimsFor("teacher-2", models.RoleTeacher)
	err = svc.Delete(context.Background(), "tenant-1", material.ID, other)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(context.Background(), "tenant-1", material.ID, claimsFor("hod-1", models.RoleHOD)))
	assert.Empty(t, repo.materials)
}

func TestReferenceServiceTenantScope(t *testing.T) {
	repo, svc := newReferenceFixture(t, 1<<20)
	repo.materials["material-9"] = &models.ReferenceMaterial{ID: "material-9", TenantID: "tenant-2", Title: "Foreign"}

	_, err := svc.Get(context.Background(), "tenant-1", "material-9")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
