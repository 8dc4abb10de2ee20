package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"digistore-backend/internal/domains/affiliate/model"
	"digistore-backend/internal/domains/affiliate/service"
	"digistore-backend/internal/shared/response"
)

type AffiliateHandler struct {
	service service.ServiceInterface
}

func NewAffiliateHandler(svc service.ServiceInterface) *AffiliateHandler {
	return &AffiliateHandler{service: svc}
}

// POST /api/v1/admin/affiliates
func (h *AffiliateHandler) Create(c *gin.Context) {
	var req model.CreateAffiliateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid affiliate", err)
		return
	}

	affiliate, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.InternalServerError(c, "Failed to create affiliate")
		return
	}
	response.Success(c, http.StatusCreated, affiliate)
}

// PATCH /api/v1/admin/affiliates/:id
func (h *AffiliateHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid affiliate id")
		return
	}

	var req model.UpdateAffiliateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid affiliate update", err)
		return
	}

	affiliate, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, affiliate)
}

// GET /api/v1/admin/affiliates/:id
func (h *AffiliateHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid affiliate id")
		return
	}

	detail, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, detail)
}

// GET /api/v1/admin/affiliates?page=&limit=
func (h *AffiliateHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	affiliates, total, err := h.service.List(c.Request.Context(), page, limit)
	if err != nil {
		response.InternalServerError(c, "Failed to list affiliates")
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, affiliates, &response.Meta{
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

// Recompute rebuilds one affiliate's stats from usage records.
// POST /api/v1/admin/affiliates/:id/recompute
func (h *AffiliateHandler) Recompute(c *gin.Context) {
	adminID := c.MustGet("userID").(uuid.UUID)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid affiliate id")
		return
	}

	result, err := h.service.Recompute(c.Request.Context(), &adminID, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

func (h *AffiliateHandler) respondError(c *gin.Context, err error) {
	var affErr *model.AffiliateError
	if errors.As(err, &affErr) {
		status := http.StatusBadRequest
		if affErr.Code == model.ErrCodeAffiliateNotFound {
			status = http.StatusNotFound
		}
		response.ErrorResponse(c, status, affErr.Code, affErr.Message)
		return
	}
	response.InternalServerError(c, "Affiliate operation failed")
}
