package api

import (
	"net/http"

	"lead-chat/internal/service"

	"github.com/gin-gonic/gin"
)

type LeadHandler struct {
	leadService *service.LeadService
}

func NewLeadHandler(leadService *service.LeadService) *LeadHandler {
	return &LeadHandler{leadService: leadService}
}

func (h *LeadHandler) CreateLead(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	var req service.CreateLeadRequest
	if !bindJSON(c, "create lead", &req) {
		return
	}
	lead, err := h.leadService.Create(userID, req)
	if err != nil {
		respondError(c, "create lead", err)
		return
	}
	c.JSON(http.StatusCreated, lead)
}

func (h *LeadHandler) ListLeads(c *gin.Context) {
	limit, offset := getPaginationParams(c)
	leads, err := h.leadService.List(limit, offset)
	if err != nil {
		respondError(c, "list leads", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leads": leads})
}

func (h *LeadHandler) GetLead(c *gin.Context) {
	leadID, ok := getLeadIDFromParam(c)
	if !ok {
		return
	}
	lead, err := h.leadService.Get(leadID)
	if err != nil {
		respondError(c, "get lead", err)
		return
	}
	c.JSON(http.StatusOK, lead)
}
