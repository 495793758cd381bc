package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"homecare/portal/internal/audit"
	"homecare/portal/internal/ids"
	"homecare/portal/internal/models"
	"homecare/portal/internal/repository"
)

// UploadPresigner is satisfied by *storage.ObjectStore.
type UploadPresigner interface {
	PresignDocumentUpload(ctx context.Context, objectKey string, ttl time.Duration) (string, error)
}

type UploadInitInput struct {
	OwnerID  string `json:"ownerId"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
}

type UploadInitResult struct {
	UploadURL  string `json:"uploadUrl"`
	DocumentID string `json:"documentId"`
}

func allowedDocumentType(mimeType string) bool {
	switch mimeType {
	case "application/pdf", "image/jpeg", "image/png", "text/plain",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return true
	}
	return false
}

type DocumentService struct {
	presigner UploadPresigner
	store     repository.PortalStore
	ttl       time.Duration
	audit     audit.Recorder
	log       zerolog.Logger
	now       func() time.Time
}

// NewDocumentService accepts a nil presigner; uploads then fail with
// ErrStorageDisabled.
func NewDocumentService(presigner UploadPresigner, store repository.PortalStore, ttl time.Duration, recorder audit.Recorder, log zerolog.Logger) *DocumentService {
	return &DocumentService{
		presigner: presigner,
		store:     store,
		ttl:       ttl,
		audit:     recorder,
		log:       log,
		now:       time.Now,
	}
}

func (s *DocumentService) InitUpload(ctx context.Context, input UploadInitInput) (UploadInitResult, error) {
	if s.presigner == nil {
		return UploadInitResult{}, ErrStorageDisabled
	}
	filename := path.Base(strings.TrimSpace(input.Filename))
	if input.OwnerID == "" || filename == "" || filename == "." || filename == "/" {
		return UploadInitResult{}, fmt.Errorf("%w: ownerId and filename required", ErrInvalidInput)
	}
	mimeType := strings.ToLower(strings.TrimSpace(input.MimeType))
	if !allowedDocumentType(mimeType) {
		return UploadInitResult{}, fmt.Errorf("%w: unsupported mime type %q", ErrInvalidInput, input.MimeType)
	}

	doc := models.Document{
		ID:        ids.New(),
		OwnerID:   input.OwnerID,
		Filename:  filename,
		MimeType:  mimeType,
		CreatedAt: s.now().UTC(),
	}
	doc.ObjectKey = path.Join(doc.OwnerID, doc.ID, doc.Filename)

	uploadURL, err := s.presigner.PresignDocumentUpload(ctx, doc.ObjectKey, s.ttl)
	if err != nil {
		return UploadInitResult{}, err
	}
	if err := s.store.SaveDocument(ctx, doc); err != nil {
		return UploadInitResult{}, err
	}

	s.log.Info().Str("document_id", doc.ID).Str("owner_id", doc.OwnerID).Msg("document upload initialised")
	audit.TrackUserAction(ctx, s.audit, "document_upload_init", doc.OwnerID, map[string]any{
		"document_id": doc.ID,
		"mime_type":   mimeType,
	})
	return UploadInitResult{UploadURL: uploadURL, DocumentID: doc.ID}, nil
}
