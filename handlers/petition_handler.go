package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"catastro-backend/models"
	"catastro-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PetitionHandler handles HTTP requests for petitions
type PetitionHandler struct {
	petitionService *service.PetitionService
	exportService   *service.ExportService
}

// NewPetitionHandler creates a new petition handler
func NewPetitionHandler(petitionService *service.PetitionService, exportService *service.ExportService) *PetitionHandler {
	return &PetitionHandler{
		petitionService: petitionService,
		exportService:   exportService,
	}
}

// CreatePetitionRequest represents the request body for filing a petition
type CreatePetitionRequest struct {
	RequestType  string `json:"request_type" binding:"required"`
	Municipality string `json:"municipality" binding:"required"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
	Notes        string `json:"notes"`
}

// CreatePetition handles POST /api/petitions
func (h *PetitionHandler) CreatePetition(c *gin.Context) {
	var req CreatePetitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	petition, err := h.petitionService.CreatePetition(c.Request.Context(), currentActor(c), service.CreatePetitionRequest{
		RequestType:  models.RequestType(req.RequestType),
		Municipality: req.Municipality,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Notes:        req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondCreated(c, petition)
}

// GetPetition handles GET /api/petitions/:id
func (h *PetitionHandler) GetPetition(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "INVALID_ID", "Invalid petition ID format")
		return
	}

	petition, err := h.petitionService.GetPetition(c.Request.Context(), currentActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, petition)
}

// ListPetitions handles GET /api/petitions
func (h *PetitionHandler) ListPetitions(c *gin.Context) {
	req := service.ListPetitionsRequest{}

	if raw := c.Query("state"); raw != "" {
		state := models.PetitionState(raw)
		if !state.IsValid() {
			respondBadRequest(c, "INVALID_STATE", fmt.Sprintf("Unknown state %q", raw))
			return
		}
		req.State = &state
	}
	if raw := c.Query("municipality"); raw != "" {
		municipality := raw
		req.Municipality = &municipality
	}
	req.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	req.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	petitions, err := h.petitionService.ListPetitions(c.Request.Context(), currentActor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, petitions)
}

// UpdatePetitionRequest represents the request body for a partial update.
// Absent fields are left untouched.
type UpdatePetitionRequest struct {
	State              *string `json:"state"`
	Notes              *string `json:"notes"`
	ContactEmail       *string `json:"contact_email"`
	ContactPhone       *string `json:"contact_phone"`
	RequestType        *string `json:"request_type"`
	Municipality       *string `json:"municipality"`
	ReturnObservations *string `json:"return_observations"`
	Note               string  `json:"note"`
}

// UpdatePetition handles PUT /api/petitions/:id
func (h *PetitionHandler) UpdatePetition(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "INVALID_ID", "Invalid petition ID format")
		return
	}

	var req UpdatePetitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	serviceReq := service.UpdatePetitionRequest{
		PetitionID:         id,
		Notes:              req.Notes,
		ContactEmail:       req.ContactEmail,
		ContactPhone:       req.ContactPhone,
		Municipality:       req.Municipality,
		ReturnObservations: req.ReturnObservations,
		Note:               req.Note,
	}
	if req.State != nil {
		state := models.PetitionState(*req.State)
		serviceReq.State = &state
	}
	if req.RequestType != nil {
		requestType := models.RequestType(*req.RequestType)
		serviceReq.RequestType = &requestType
	}

	petition, err := h.petitionService.UpdatePetition(c.Request.Context(), currentActor(c), serviceReq)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, petition)
}

// SelfAssign handles POST /api/petitions/:id/self-assign
func (h *PetitionHandler) SelfAssign(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "INVALID_ID", "Invalid petition ID format")
		return
	}

	petition, err := h.petitionService.SelfAssign(c.Request.Context(), currentActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, petition)
}

// AssignManagerRequest represents the request body for assigning a manager
type AssignManagerRequest struct {
	ManagerID string `json:"manager_id" binding:"required"`
	Auxiliary bool   `json:"auxiliary"`
}

// AssignManager handles POST /api/petitions/:id/assign
func (h *PetitionHandler) AssignManager(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "INVALID_ID", "Invalid petition ID format")
		return
	}

	var req AssignManagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", err.Error())
		return
	}
	managerID, err := uuid.Parse(req.ManagerID)
	if err != nil {
		respondBadRequest(c, "INVALID_MANAGER_ID", "Invalid manager_id format")
		return
	}

	petition, err := h.petitionService.AssignManager(c.Request.Context(), currentActor(c), service.AssignManagerRequest{
		PetitionID: id,
		ManagerID:  managerID,
		Auxiliary:  req.Auxiliary,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, petition)
}

// Resend handles POST /api/petitions/:id/resend
func (h *PetitionHandler) Resend(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "INVALID_ID", "Invalid petition ID format")
		return
	}

	petition, err := h.petitionService.Resend(c.Request.Context(), currentActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, petition)
}

// GetHistory handles GET /api/petitions/:id/history
func (h *PetitionHandler) GetHistory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "INVALID_ID", "Invalid petition ID format")
		return
	}

	records, err := h.petitionService.GetHistory(c.Request.Context(), currentActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, records)
}

// DashboardStats handles GET /api/petitions/stats
func (h *PetitionHandler) DashboardStats(c *gin.Context) {
	stats, err := h.petitionService.DashboardStats(c.Request.Context(), currentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, stats)
}

// ExportPetitions handles GET /api/petitions/export
func (h *PetitionHandler) ExportPetitions(c *gin.Context) {
	var state *models.PetitionState
	if raw := c.Query("state"); raw != "" {
		s := models.PetitionState(raw)
		if !s.IsValid() {
			respondBadRequest(c, "INVALID_STATE", fmt.Sprintf("Unknown state %q", raw))
			return
		}
		state = &s
	}
	var municipality *string
	if raw := c.Query("municipality"); raw != "" {
		municipality = &raw
	}

	workbook, err := h.exportService.ExportPetitions(c.Request.Context(), currentActor(c), state, municipality, nil)
	if err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("peticiones-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", workbook)
}
