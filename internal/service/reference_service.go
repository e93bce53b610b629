package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/dto"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	appErrors "github.com/VipuDevAI/Prashnakosh-sub002/pkg/errors"
)

type referenceStore interface {
	Create(ctx context.Context, material *models.ReferenceMaterial) error
	FindByID(ctx context.Context, id string) (*models.ReferenceMaterial, error)
	List(ctx context.Context, filter models.ReferenceMaterialFilter) ([]models.ReferenceMaterial, int, error)
	TotalSizeBytes(ctx context.Context, tenantID string) (int64, error)
	Delete(ctx context.Context, id string) error
}

type referenceQuotaStore interface {
	GetStorageConfig(ctx context.Context, tenantID string) (*models.StorageConfig, error)
}

type referenceFileStore interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

// maxReferenceFileBytes caps a single upload regardless of remaining quota.
const maxReferenceFileBytes = 25 << 20

var allowedReferenceTypes = map[string]bool{
	"application/pdf":    true,
	"image/png":          true,
	"image/jpeg":         true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// ReferenceService manages the study material library. Every upload counts
// against the school's byte quota from its storage config.
type ReferenceService struct {
	materials referenceStore
	quotas    referenceQuotaStore
	files     referenceFileStore
	logger    *zap.Logger
}

// NewReferenceService constructs the service.
func NewReferenceService(materials referenceStore, quotas referenceQuotaStore, files referenceFileStore, logger *zap.Logger) *ReferenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReferenceService{materials: materials, quotas: quotas, files: files, logger: logger}
}

// Upload stores a file and registers it in the library. The quota check uses
// the declared size; the handler enforces the same limit on the request body.
func (s *ReferenceService) Upload(ctx context.Context, tenantID string, req dto.CreateReferenceMaterialRequest, fileName, contentType string, size int64, file io.Reader, actor *models.JWTClaims) (*models.ReferenceMaterial, error) {
	if err := requireUploader(actor); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if len(title) < 3 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title must be at least 3 characters")
	}
	if strings.TrimSpace(req.Grade) == "" || strings.TrimSpace(req.Subject) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grade and subject are required")
	}
	fileName = path.Base(strings.TrimSpace(fileName))
	if fileName == "" || fileName == "." || fileName == "/" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a file name is required")
	}
	if !allowedReferenceTypes[contentType] {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported file type %q", contentType))
	}
	if size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is empty")
	}
	if size > maxReferenceFileBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d MB upload limit", maxReferenceFileBytes>>20))
	}

	cfg, err := s.quotas.GetStorageConfig(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "storage is not configured for this school")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load storage config")
	}
	used, err := s.materials.TotalSizeBytes(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute storage usage")
	}
	if used+size > cfg.MaxStorageBytes {
		remaining := cfg.MaxStorageBytes - used
		if remaining < 0 {
			remaining = 0
		}
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("storage quota exceeded, %d bytes remaining", remaining))
	}

	relPath := filepath.Join(cfg.FolderPath, "reference", uuid.NewString()+strings.ToLower(filepath.Ext(fileName)))
	if _, err := s.files.SaveStream(relPath, file); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	material := &models.ReferenceMaterial{
		TenantID:    tenantID,
		Title:       title,
		Description: optionalString(req.Description),
		Grade:       strings.TrimSpace(req.Grade),
		Subject:     strings.ToLower(strings.TrimSpace(req.Subject)),
		FilePath:    relPath,
		FileName:    fileName,
		ContentType: contentType,
		SizeBytes:   size,
		UploadedBy:  actor.UserID,
	}
	if err := s.materials.Create(ctx, material); err != nil {
		if cleanupErr := s.files.Delete(relPath); cleanupErr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("path", relPath), zap.Error(cleanupErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register material")
	}
	return material, nil
}

// Get loads material metadata.
func (s *ReferenceService) Get(ctx context.Context, tenantID, id string) (*models.ReferenceMaterial, error) {
	return s.loadMaterial(ctx, tenantID, id)
}

// List returns library entries matching the query.
func (s *ReferenceService) List(ctx context.Context, tenantID string, query dto.ReferenceMaterialQuery) ([]models.ReferenceMaterial, int, error) {
	filter := models.ReferenceMaterialFilter{
		TenantID: tenantID,
		Grade:    query.Grade,
		Subject:  strings.ToLower(query.Subject),
		Search:   query.Search,
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	materials, total, err := s.materials.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list materials")
	}
	return materials, total, nil
}

// Download opens the stored file for streaming. The caller must close it.
func (s *ReferenceService) Download(ctx context.Context, tenantID, id string) (*models.ReferenceMaterial, io.ReadCloser, error) {
	material, err := s.loadMaterial(ctx, tenantID, id)
	if err != nil {
		return nil, nil, err
	}
	file, err := s.files.Open(material.FilePath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open stored file")
	}
	return material, file, nil
}

// Delete removes a material and its stored file. Only the uploader or an
// admin-level role may delete; the freed bytes return to the quota.
func (s *ReferenceService) Delete(ctx context.Context, tenantID, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	material, err := s.loadMaterial(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if !canDeleteMaterial(actor, material) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the uploader or an admin can delete materials")
	}
	if err := s.materials.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete material")
	}
	if err := s.files.Delete(material.FilePath); err != nil {
		s.logger.Warn("failed to remove stored file", zap.String("path", material.FilePath), zap.Error(err))
	}
	return nil
}

func (s *ReferenceService) loadMaterial(ctx context.Context, tenantID, id string) (*models.ReferenceMaterial, error) {
	material, err := s.materials.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "material not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load material")
	}
	if material.TenantID != tenantID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "material not found")
	}
	return material, nil
}

func requireUploader(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleTeacher, models.RoleHOD, models.RolePrincipal, models.RoleExamCommittee, models.RoleAdmin, models.RoleSuperAdmin:
		return nil
	default:
		return appErrors.Clone(appErrors.ErrForbidden, "students and parents cannot upload materials")
	}
}

func canDeleteMaterial(actor *models.JWTClaims, material *models.ReferenceMaterial) bool {
	switch actor.Role {
	case models.RoleAdmin, models.RoleSuperAdmin, models.RoleHOD:
		return true
	case models.RoleTeacher, models.RolePrincipal, models.RoleExamCommittee:
		return material.UploadedBy == actor.UserID
	default:
		return false
	}
}
