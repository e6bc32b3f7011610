package condition

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

// RegisterRoutes mounts the condition endpoints
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/conditions", h.ApplyCondition)
	rg.POST("/conditions/:id/progress", h.ProgressCondition)
	rg.DELETE("/conditions/:id", h.RemoveCondition)
	rg.GET("/characters/:id/conditions", h.ListCharacterConditions)
	rg.POST("/characters/:id/conditions/progress", h.ProgressCharacterConditions)
	rg.PUT("/condition-definitions/:id/stages", h.ReplaceConditionStages)
}

// ApplyCondition applies a condition to a character
// POST /api/v1/conditions
func (h *Handler) ApplyCondition(c *gin.Context) {
	var req ApplyConditionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	inst, err := h.service.ApplyCondition(middleware.ActorID(c), &req)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": "failed to apply condition: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"condition": inst,
	})
}

// ProgressCondition advances one condition instance by one event
// POST /api/v1/conditions/:id/progress
func (h *Handler) ProgressCondition(c *gin.Context) {
	instanceID, ok := parseID(c)
	if !ok {
		return
	}

	resp, err := h.service.ProgressCondition(middleware.ActorID(c), instanceID)
	if err != nil {
		body := gin.H{"success": false, "error": err.Error()}
		if resp != nil {
			body["result"] = resp.Result
		}
		c.JSON(common.HTTPStatus(err), body)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RemoveCondition removes a condition from a character
// DELETE /api/v1/conditions/:id
func (h *Handler) RemoveCondition(c *gin.Context) {
	instanceID, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.RemoveCondition(middleware.ActorID(c), instanceID); err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": "failed to remove condition: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListCharacterConditions lists all conditions of a character
// GET /api/v1/characters/:id/conditions
func (h *Handler) ListCharacterConditions(c *gin.Context) {
	characterID, ok := parseID(c)
	if !ok {
		return
	}

	list, err := h.service.ListCharacterConditions(characterID)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conditions": list,
		"count":      len(list),
	})
}

// ProgressCharacterConditions ticks every running condition of a character
// POST /api/v1/characters/:id/conditions/progress
func (h *Handler) ProgressCharacterConditions(c *gin.Context) {
	characterID, ok := parseID(c)
	if !ok {
		return
	}

	outcomes, err := h.service.ProgressCharacterConditions(middleware.ActorID(c), characterID)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"outcomes": outcomes,
	})
}

// ReplaceConditionStages swaps a condition's stage set
// PUT /api/v1/condition-definitions/:id/stages
func (h *Handler) ReplaceConditionStages(c *gin.Context) {
	conditionID, ok := parseID(c)
	if !ok {
		return
	}

	var req ReplaceStagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	cond, err := h.service.ReplaceConditionStages(middleware.ActorID(c), conditionID, req.Stages)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": "failed to replace stages: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"condition": cond,
	})
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}
