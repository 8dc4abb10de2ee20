package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	catalogModel "digistore-backend/internal/domains/catalog/model"
	"digistore-backend/internal/domains/discount/model"
	"digistore-backend/internal/domains/discount/service"
	"digistore-backend/internal/shared/response"
)

type DiscountHandler struct {
	service service.ServiceInterface
}

func NewDiscountHandler(svc service.ServiceInterface) *DiscountHandler {
	return &DiscountHandler{service: svc}
}

// Preview prices a cart with a coupon without consuming it.
// POST /api/v1/discounts/preview
func (h *DiscountHandler) Preview(c *gin.Context) {
	var req model.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid preview request", err)
		return
	}

	quote, err := h.service.Preview(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, quote)
}

// CreateCoupon creates a coupon, optionally affiliate-linked.
// POST /api/v1/admin/coupons
func (h *DiscountHandler) CreateCoupon(c *gin.Context) {
	adminID := c.MustGet("userID").(uuid.UUID)

	var req model.CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid coupon", err)
		return
	}

	coupon, err := h.service.CreateCoupon(c.Request.Context(), adminID, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, coupon)
}

// UpdateCoupon applies a partial coupon update.
// PATCH /api/v1/admin/coupons/:id
func (h *DiscountHandler) UpdateCoupon(c *gin.Context) {
	adminID := c.MustGet("userID").(uuid.UUID)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid coupon id")
		return
	}

	var req model.UpdateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	coupon, err := h.service.UpdateCoupon(c.Request.Context(), adminID, id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, coupon)
}

// ListCoupons returns coupons with their consumption stats.
// GET /api/v1/admin/coupons?page=&limit=
func (h *DiscountHandler) ListCoupons(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	stats, total, err := h.service.ListCoupons(c.Request.Context(), page, limit)
	if err != nil {
		response.InternalServerError(c, "Failed to list coupons")
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, stats, &response.Meta{
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *DiscountHandler) respondError(c *gin.Context, err error) {
	var disErr *model.DiscountError
	if errors.As(err, &disErr) {
		status := http.StatusUnprocessableEntity
		switch disErr.Code {
		case model.ErrCodeCouponNotFound:
			status = http.StatusNotFound
		case model.ErrCodeCouponExists:
			status = http.StatusConflict
		}
		response.ErrorResponse(c, status, disErr.Code, disErr.Message)
		return
	}

	var catErr *catalogModel.CatalogError
	if errors.As(err, &catErr) {
		response.ErrorResponse(c, http.StatusUnprocessableEntity, catErr.Code, catErr.Message)
		return
	}
	if errors.Is(err, catalogModel.ErrProductNotFound) || errors.Is(err, catalogModel.ErrVariantNotFound) {
		response.NotFound(c, err.Error())
		return
	}

	response.InternalServerError(c, "Discount operation failed")
}
