package downtime

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

// RegisterRoutes mounts the downtime endpoints
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	periods := rg.Group("/downtime/periods")
	{
		periods.POST("", h.OpenPeriod)
		periods.GET("/:id", h.GetPeriod)
		periods.POST("/:id/close", h.ClosePeriod)
		periods.DELETE("/:id", h.DeletePeriod)
		periods.POST("/:id/packs", h.AdmitCharacter)
		periods.GET("/:id/packs", h.ListPeriodPacks)
	}

	packs := rg.Group("/downtime/packs")
	{
		packs.GET("/:id", h.GetPack)
		packs.POST("/:id/contents", h.SubmitPackContents)
		packs.POST("/:id/activities", h.SubmitDowntimeActivities)
		packs.POST("/:id/review", h.SubmitManualReview)
	}
}

// OpenPeriod POST /api/v1/downtime/periods
func (h *Handler) OpenPeriod(c *gin.Context) {
	var req OpenPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	period, err := h.service.OpenPeriod(middleware.ActorID(c), &req)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": "failed to open period: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "period": period})
}

// GetPeriod GET /api/v1/downtime/periods/:id
func (h *Handler) GetPeriod(c *gin.Context) {
	periodID, ok := parseID(c)
	if !ok {
		return
	}

	period, err := h.service.GetPeriod(periodID)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, period)
}

// ClosePeriod POST /api/v1/downtime/periods/:id/close
func (h *Handler) ClosePeriod(c *gin.Context) {
	periodID, ok := parseID(c)
	if !ok {
		return
	}

	period, err := h.service.ClosePeriod(c.Request.Context(), middleware.ActorID(c), periodID)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": "failed to close period: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "period": period})
}

// DeletePeriod DELETE /api/v1/downtime/periods/:id
func (h *Handler) DeletePeriod(c *gin.Context) {
	periodID, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.DeletePeriod(middleware.ActorID(c), periodID); err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": "failed to delete period: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AdmitCharacter POST /api/v1/downtime/periods/:id/packs
func (h *Handler) AdmitCharacter(c *gin.Context) {
	periodID, ok := parseID(c)
	if !ok {
		return
	}

	var req AdmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	pack, err := h.service.AdmitCharacter(middleware.ActorID(c), periodID, req.CharacterID)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": "failed to admit character: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "pack": pack})
}

// ListPeriodPacks GET /api/v1/downtime/periods/:id/packs?status=manual_review
func (h *Handler) ListPeriodPacks(c *gin.Context) {
	periodID, ok := parseID(c)
	if !ok {
		return
	}

	var filter []PackStatus
	if status := c.Query("status"); status != "" {
		if _, known := packTransitions[PackStatus(status)]; !known {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		filter = append(filter, PackStatus(status))
	}

	packs, err := h.service.ListPeriodPacks(periodID, filter...)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"packs": packs, "count": len(packs)})
}

// GetPack GET /api/v1/downtime/packs/:id
func (h *Handler) GetPack(c *gin.Context) {
	packID, ok := parseID(c)
	if !ok {
		return
	}

	pack, err := h.service.GetPack(packID)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, pack)
}

// SubmitPackContents POST /api/v1/downtime/packs/:id/contents
func (h *Handler) SubmitPackContents(c *gin.Context) {
	var req SubmitPackRequest
	h.handleSubmit(c, &req, func(actorID, packID uuid.UUID) (*SubmitResponse, error) {
		return h.service.SubmitPackContents(actorID, packID, &req)
	})
}

// SubmitDowntimeActivities POST /api/v1/downtime/packs/:id/activities
func (h *Handler) SubmitDowntimeActivities(c *gin.Context) {
	var req SubmitActivitiesRequest
	h.handleSubmit(c, &req, func(actorID, packID uuid.UUID) (*SubmitResponse, error) {
		return h.service.SubmitDowntimeActivities(actorID, packID, &req)
	})
}

// SubmitManualReview POST /api/v1/downtime/packs/:id/review
func (h *Handler) SubmitManualReview(c *gin.Context) {
	var req SubmitReviewRequest
	h.handleSubmit(c, &req, func(actorID, packID uuid.UUID) (*SubmitResponse, error) {
		return h.service.SubmitManualReview(actorID, packID, &req)
	})
}

func (h *Handler) handleSubmit(c *gin.Context, req interface{}, op func(actorID, packID uuid.UUID) (*SubmitResponse, error)) {
	packID, ok := parseID(c)
	if !ok {
		return
	}
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	resp, err := op(middleware.ActorID(c), packID)
	if err != nil {
		c.JSON(common.HTTPStatus(err), gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}
