package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"catastro-backend/models"
	"catastro-backend/repository"
	"catastro-backend/service"
	"catastro-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DocumentHandler handles HTTP requests for petition attachments
type DocumentHandler struct {
	documentRepo     *repository.DocumentRepository
	petitionService  *service.PetitionService
	storage          storage.Storage
	maxFileSize      int64
	allowedMimeTypes map[string]bool
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documentRepo *repository.DocumentRepository, petitionService *service.PetitionService, storage storage.Storage) *DocumentHandler {
	return &DocumentHandler{
		documentRepo:    documentRepo,
		petitionService: petitionService,
		storage:         storage,
		maxFileSize:     20 * 1024 * 1024, // 20MB
		allowedMimeTypes: map[string]bool{
			"application/pdf":    true,
			"image/jpeg":         true,
			"image/png":          true,
			"application/zip":    true, // GDB and shapefile bundles arrive zipped
			"application/msword": true,
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
		},
	}
}

func inferMimeType(filename string) string {
	switch {
	case strings.HasSuffix(strings.ToLower(filename), ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(strings.ToLower(filename), ".jpg"), strings.HasSuffix(strings.ToLower(filename), ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(strings.ToLower(filename), ".png"):
		return "image/png"
	case strings.HasSuffix(strings.ToLower(filename), ".zip"):
		return "application/zip"
	case strings.HasSuffix(strings.ToLower(filename), ".doc"):
		return "application/msword"
	case strings.HasSuffix(strings.ToLower(filename), ".docx"):
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}

// Upload handles POST /api/petitions/:id/documents
func (h *DocumentHandler) Upload(c *gin.Context) {
	petitionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "INVALID_ID", "Invalid petition ID format")
		return
	}

	actor := currentActor(c)

	// Visibility doubles as upload authorization: whoever can read the
	// petition may attach to it.
	if _, err := h.petitionService.GetPetition(c.Request.Context(), actor, petitionID); err != nil {
		respondError(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondBadRequest(c, "MISSING_FILE", "File is required")
		return
	}
	if fileHeader.Size > h.maxFileSize {
		respondBadRequest(c, "FILE_TOO_LARGE", fmt.Sprintf("File size exceeds maximum of %d bytes", h.maxFileSize))
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = inferMimeType(fileHeader.Filename)
	}
	if !h.allowedMimeTypes[mimeType] && !strings.HasPrefix(mimeType, "text/") {
		respondBadRequest(c, "INVALID_FILE_TYPE", "File type not allowed. Allowed types: PDF, JPG, PNG, ZIP, DOC, DOCX")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Close()

	documentID := uuid.New()
	storagePath, err := h.storage.Upload(c.Request.Context(), documentID, fileHeader.Filename, file)
	if err != nil {
		respondError(c, fmt.Errorf("failed to upload file: %w", err))
		return
	}

	document := &models.Document{
		ID:           documentID,
		PetitionID:   petitionID,
		UploaderID:   actor.UserID,
		UploaderName: actor.Name,
		UploaderRole: actor.Role,
		Filename:     fileHeader.Filename,
		MimeType:     mimeType,
		Size:         fileHeader.Size,
		StoragePath:  storagePath,
	}

	if err := h.documentRepo.Create(c.Request.Context(), document); err != nil {
		// The record failed, don't leave the blob orphaned.
		h.storage.Delete(c.Request.Context(), storagePath)
		respondError(c, err)
		return
	}

	respondCreated(c, gin.H{
		"id":         document.ID,
		"filename":   document.Filename,
		"mime_type":  document.MimeType,
		"size":       document.Size,
		"created_at": document.CreatedAt,
	})
}

// List handles GET /api/petitions/:id/documents
func (h *DocumentHandler) List(c *gin.Context) {
	petitionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "INVALID_ID", "Invalid petition ID format")
		return
	}

	if _, err := h.petitionService.GetPetition(c.Request.Context(), currentActor(c), petitionID); err != nil {
		respondError(c, err)
		return
	}

	documents, err := h.documentRepo.ListByPetitionID(c.Request.Context(), petitionID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, documents)
}

// Download handles GET /api/documents/:id
func (h *DocumentHandler) Download(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "INVALID_ID", "Invalid document ID format")
		return
	}

	document, err := h.documentRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, service.ErrNotFound)
		return
	}

	if _, err := h.petitionService.GetPetition(c.Request.Context(), currentActor(c), document.PetitionID); err != nil {
		respondError(c, err)
		return
	}

	reader, err := h.storage.Download(c.Request.Context(), document.StoragePath)
	if err != nil {
		respondError(c, fmt.Errorf("failed to download file: %w", err))
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", document.Filename))
	c.DataFromReader(http.StatusOK, document.Size, document.MimeType, reader, nil)
}
