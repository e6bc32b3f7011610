package catalog

import (
	"net/http"

	"larpcore/internal/common"

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
	rg.GET("/catalog", h.GetSnapshot)
	rg.GET("/catalog/factions", h.GetFactions)
	rg.GET("/catalog/characters/:id", h.GetCharacter)
	rg.POST("/catalog/invalidate", h.Invalidate)
}

// GetSnapshot GET /api/v1/catalog?purchasable=true
func (h *Handler) GetSnapshot(c *gin.Context) {
	snap, err := h.service.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	if c.Query("purchasable") == "true" {
		c.JSON(http.StatusOK, gin.H{"blueprints": snap.Purchasable()})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// GetFactions GET /api/v1/catalog/factions
func (h *Handler) GetFactions(c *gin.Context) {
	factions, err := h.service.Factions(c.Request.Context())
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"factions": factions, "count": len(factions)})
}

// GetCharacter GET /api/v1/catalog/characters/:id
func (h *Handler) GetCharacter(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid character id"})
		return
	}

	character, err := h.service.Character(c.Request.Context(), id)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, character)
}

// Invalidate POST /api/v1/catalog/invalidate
func (h *Handler) Invalidate(c *gin.Context) {
	if err := h.service.Invalidate(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
