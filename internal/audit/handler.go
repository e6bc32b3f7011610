package audit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

var subjectTypes = map[string]bool{
	SubjectCondition:     true,
	SubjectConditionDef:  true,
	SubjectResearch:      true,
	SubjectResearchStage: true,
	SubjectDowntimePack:  true,
	SubjectPeriod:        true,
	SubjectGroupPack:     true,
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/audit/:subject_type/:id", h.ListEntries)
}

// ListEntries GET /api/v1/audit/:subject_type/:id?limit=50
func (h *Handler) ListEntries(c *gin.Context) {
	subjectType := c.Param("subject_type")
	if !subjectTypes[subjectType] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown subject type"})
		return
	}
	subjectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	entries, err := List(h.db, subjectType, subjectID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}
