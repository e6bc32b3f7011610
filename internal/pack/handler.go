package pack

import (
	"net/http"

	"larpcore/internal/common"
	"larpcore/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/groups/:id/pack", h.GetGroupPack)
	rg.POST("/groups/:id/pack/generate", h.GenerateGroupPack)
	rg.PUT("/groups/:id/pack/completion", h.SetCompletion)
}

// GetGroupPack GET /api/v1/groups/:id/pack
func (h *Handler) GetGroupPack(c *gin.Context) {
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return
	}

	group, err := h.service.GetGroup(groupID)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pack":        group.Pack,
		"is_complete": group.Pack.IsComplete(),
	})
}

// GenerateGroupPack POST /api/v1/groups/:id/pack/generate
func (h *Handler) GenerateGroupPack(c *gin.Context) {
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return
	}

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	resp, err := h.service.GenerateGroupPack(c.Request.Context(), middleware.ActorID(c), groupID, req.EnergyCredits)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SetCompletion PUT /api/v1/groups/:id/pack/completion
func (h *Handler) SetCompletion(c *gin.Context) {
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return
	}

	var req CompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	p, err := h.service.SetCompletion(middleware.ActorID(c), groupID, req.Section, req.Done)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"pack":        p,
		"is_complete": p.IsComplete(),
	})
}
