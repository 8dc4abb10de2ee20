package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"digistore-backend/internal/domains/audit/repository"
	"digistore-backend/internal/shared/response"
)

type AuditHandler struct {
	repo repository.RepositoryInterface
}

func NewAuditHandler(repo repository.RepositoryInterface) *AuditHandler {
	return &AuditHandler{repo: repo}
}

// List returns audit entries for the admin back office.
// GET /api/v1/admin/audit?action=&entity_type=&actor_id=&from=&to=&page=&limit=
func (h *AuditHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	filter := repository.ListFilter{
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
		ActorID:    c.Query("actor_id"),
	}

	if from := c.Query("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filter.From = &t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filter.To = &t
		}
	}

	entries, total, err := h.repo.List(c.Request.Context(), filter, page, limit)
	if err != nil {
		response.InternalServerError(c, "Failed to list audit entries")
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, entries, &response.Meta{
		Page:  page,
		Limit: limit,
		Total: total,
	})
}
