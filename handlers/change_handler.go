package handlers

import (
	"catastro-backend/models"
	"catastro-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ChangeHandler handles HTTP requests for parcel change proposals
type ChangeHandler struct {
	changeService *service.ChangeService
}

// NewChangeHandler creates a new change handler
func NewChangeHandler(changeService *service.ChangeService) *ChangeHandler {
	return &ChangeHandler{changeService: changeService}
}

// ProposeChangeRequest represents the request body for proposing a change
type ProposeChangeRequest struct {
	ParcelID      *string                `json:"parcel_id"`
	Kind          string                 `json:"kind" binding:"required"`
	Payload       map[string]interface{} `json:"payload"`
	Justification string                 `json:"justification"`
}

// ProposeChange handles POST /api/changes
func (h *ChangeHandler) ProposeChange(c *gin.Context) {
	var req ProposeChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	serviceReq := service.ProposeChangeRequest{
		Kind:          models.ChangeKind(req.Kind),
		Payload:       models.FieldPayload(req.Payload),
		Justification: req.Justification,
	}
	if req.ParcelID != nil {
		parcelID, err := uuid.Parse(*req.ParcelID)
		if err != nil {
			respondBadRequest(c, "INVALID_PARCEL_ID", "Invalid parcel_id format")
			return
		}
		serviceReq.ParcelID = &parcelID
	}

	proposal, err := h.changeService.ProposeChange(c.Request.Context(), currentActor(c), serviceReq)
	if err != nil {
		respondError(c, err)
		return
	}

	respondCreated(c, proposal)
}

// ListPending handles GET /api/changes/pending
func (h *ChangeHandler) ListPending(c *gin.Context) {
	proposals, err := h.changeService.ListPending(c.Request.Context(), currentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, proposals)
}

// Stats handles GET /api/changes/stats
func (h *ChangeHandler) Stats(c *gin.Context) {
	stats, err := h.changeService.Stats(c.Request.Context(), currentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, stats)
}

// ReviewChangeRequest represents the request body for reviewing a proposal
type ReviewChangeRequest struct {
	Approve bool   `json:"approve"`
	Comment string `json:"comment"`
}

// ReviewChange handles POST /api/changes/:id/review
func (h *ChangeHandler) ReviewChange(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "INVALID_ID", "Invalid proposal ID format")
		return
	}

	var req ReviewChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	proposal, err := h.changeService.ReviewChange(c.Request.Context(), currentActor(c), service.ReviewChangeRequest{
		ChangeID: id,
		Approve:  req.Approve,
		Comment:  req.Comment,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, proposal)
}

// GetParcel handles GET /api/parcels/:id
func (h *ChangeHandler) GetParcel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "INVALID_ID", "Invalid parcel ID format")
		return
	}

	parcel, err := h.changeService.GetParcel(c.Request.Context(), currentActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, parcel)
}

// CapabilityRequest represents the request body for capability grants
type CapabilityRequest struct {
	Capability string `json:"capability" binding:"required"`
}

// GrantCapability handles POST /api/users/:id/capabilities
func (h *ChangeHandler) GrantCapability(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "INVALID_ID", "Invalid user ID format")
		return
	}

	var req CapabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	if err := h.changeService.GrantCapability(c.Request.Context(), currentActor(c), userID, models.Capability(req.Capability)); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"granted": req.Capability})
}

// RevokeCapability handles DELETE /api/users/:id/capabilities/:capability
func (h *ChangeHandler) RevokeCapability(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "INVALID_ID", "Invalid user ID format")
		return
	}

	capability := models.Capability(c.Param("capability"))
	if err := h.changeService.RevokeCapability(c.Request.Context(), currentActor(c), userID, capability); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"revoked": string(capability)})
}
