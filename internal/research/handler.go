package research

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

// RegisterRoutes mounts the research endpoints
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/research/:id/assign", h.AssignResearch)
	rg.POST("/research/:id/teach", h.TeachResearch)
	rg.GET("/research/:id/teach-check", h.CheckTeaching)
	rg.GET("/research-instances/:id", h.GetInstance)
	rg.POST("/research-instances/:id/advance", h.AdvanceResearch)
	rg.POST("/research-instances/:id/regress", h.RegressResearch)
	rg.PUT("/research-instances/:id/requirements/:requirement_id", h.UpdateRequirementProgress)
	rg.PUT("/research-stages/:id/requirements", h.ReplaceStageRequirements)
	rg.GET("/characters/:id/research", h.ListCharacterResearch)
}

// AssignResearch starts a character on a research project
// POST /api/v1/research/:id/assign
func (h *Handler) AssignResearch(c *gin.Context) {
	researchID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req AssignResearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	inst, err := h.service.AssignResearch(middleware.ActorID(c), researchID, req.CharacterID)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": "failed to assign research: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"research": inst,
	})
}

// AdvanceResearch POST /api/v1/research-instances/:id/advance
func (h *Handler) AdvanceResearch(c *gin.Context) {
	h.transition(c, h.service.AdvanceResearch)
}

// RegressResearch POST /api/v1/research-instances/:id/regress
func (h *Handler) RegressResearch(c *gin.Context) {
	h.transition(c, h.service.RegressResearch)
}

func (h *Handler) transition(c *gin.Context, op func(uuid.UUID, uuid.UUID) (*TransitionResponse, error)) {
	instanceID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	resp, err := op(middleware.ActorID(c), instanceID)
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

// UpdateRequirementProgress PUT /api/v1/research-instances/:id/requirements/:requirement_id
func (h *Handler) UpdateRequirementProgress(c *gin.Context) {
	instanceID, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	requirementID, ok := parseUUID(c, "requirement_id")
	if !ok {
		return
	}

	var req UpdateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	stored, err := h.service.UpdateRequirementProgress(middleware.ActorID(c), instanceID, requirementID, *req.Progress)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": "failed to update progress: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"requested": *req.Progress,
		"progress":  stored,
	})
}

// ReplaceStageRequirements PUT /api/v1/research-stages/:id/requirements
func (h *Handler) ReplaceStageRequirements(c *gin.Context) {
	stageID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req ReplaceRequirementsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	stage, err := h.service.ReplaceStageRequirements(middleware.ActorID(c), stageID, req.Requirements)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": "failed to replace requirements: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stage":   stage,
	})
}

// TeachResearch POST /api/v1/research/:id/teach
func (h *Handler) TeachResearch(c *gin.Context) {
	researchID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req TeachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	resp, err := h.service.TeachResearch(middleware.ActorID(c), researchID, &req)
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

// CheckTeaching GET /api/v1/research/:id/teach-check?teacher_id=...&learner_id=...
func (h *Handler) CheckTeaching(c *gin.Context) {
	researchID, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	teacherID, err := uuid.Parse(c.Query("teacher_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid teacher_id"})
		return
	}
	learnerID, err := uuid.Parse(c.Query("learner_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid learner_id"})
		return
	}

	check, err := h.service.CheckTeaching(researchID, teacherID, learnerID)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, check)
}

// GetInstance GET /api/v1/research-instances/:id
func (h *Handler) GetInstance(c *gin.Context) {
	instanceID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	inst, err := h.service.GetInstance(instanceID)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, inst)
}

// ListCharacterResearch GET /api/v1/characters/:id/research
func (h *Handler) ListCharacterResearch(c *gin.Context) {
	characterID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	list, err := h.service.ListCharacterResearch(characterID)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"research": list,
		"count":    len(list),
	})
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
		return uuid.Nil, false
	}
	return id, true
}
