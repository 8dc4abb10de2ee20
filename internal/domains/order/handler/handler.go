package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	catalogModel "digistore-backend/internal/domains/catalog/model"
	discountModel "digistore-backend/internal/domains/discount/model"
	"digistore-backend/internal/domains/order/model"
	"digistore-backend/internal/domains/order/service"
	walletModel "digistore-backend/internal/domains/wallet/model"
	"digistore-backend/internal/shared/response"
)

type OrderHandler struct {
	service service.ServiceInterface
}

func NewOrderHandler(svc service.ServiceInterface) *OrderHandler {
	return &OrderHandler{service: svc}
}

// =====================================================
// CUSTOMER ENDPOINTS
// =====================================================

// CreateOrder runs the whole checkout: snapshot, reserve, discount, debit.
// POST /api/v1/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	var req model.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid order request", err)
		return
	}

	order, err := h.service.CreateOrder(c.Request.Context(), userID, req)
	if err != nil {
		respondOrderError(c, err, "Failed to create order")
		return
	}
	response.Success(c, http.StatusCreated, order)
}

// ListOrders returns the caller's orders, newest first.
// GET /api/v1/orders?page=&limit=
func (h *OrderHandler) ListOrders(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	orders, total, err := h.service.ListOrders(c.Request.Context(), userID, page, limit)
	if err != nil {
		response.InternalServerError(c, "Failed to list orders")
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, orders, &response.Meta{
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

// GetOrder returns one order with items and status history. Customers can
// only see their own; admins can see any.
// GET /api/v1/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)
	isAdmin := c.GetString("role") == "admin"

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid order id")
		return
	}

	order, err := h.service.GetOrder(c.Request.Context(), userID, isAdmin, orderID)
	if err != nil {
		respondOrderError(c, err, "Failed to get order")
		return
	}
	response.Success(c, http.StatusOK, order)
}

// RevealCodes hands over the purchased codes. Safe to call twice; the second
// call returns the same codes.
// POST /api/v1/orders/:id/reveal
func (h *OrderHandler) RevealCodes(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid order id")
		return
	}

	result, err := h.service.RevealCodes(c.Request.Context(), userID, orderID)
	if err != nil {
		respondOrderError(c, err, "Failed to reveal codes")
		return
	}
	response.Success(c, http.StatusOK, result)
}

// OpenDispute flags a delivered or revealed order for admin review.
// POST /api/v1/orders/:id/dispute
func (h *OrderHandler) OpenDispute(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid order id")
		return
	}

	var req model.OpenDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid dispute request", err)
		return
	}

	order, err := h.service.OpenDispute(c.Request.Context(), userID, orderID, req)
	if err != nil {
		respondOrderError(c, err, "Failed to open dispute")
		return
	}
	response.Success(c, http.StatusOK, order)
}

// =====================================================
// ADMIN ENDPOINTS
// =====================================================

// SearchOrders filters across all orders.
// GET /api/v1/admin/orders?status=&user_id=&kind=&from=&to=&page=&limit=
func (h *OrderHandler) SearchOrders(c *gin.Context) {
	var query model.SearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "Invalid search query")
		return
	}

	orders, total, err := h.service.SearchOrders(c.Request.Context(), query)
	if err != nil {
		response.InternalServerError(c, "Failed to search orders")
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, orders, &response.Meta{
		Page:  query.Page,
		Limit: query.Limit,
		Total: total,
	})
}

// UpdateStatus moves an order along the state machine. Reveal, delivery and
// dispute moves have their own endpoints and are rejected here.
// PATCH /api/v1/admin/orders/:id/status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	adminID := c.MustGet("userID").(uuid.UUID)

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid order id")
		return
	}

	var req model.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid status request", err)
		return
	}

	order, err := h.service.UpdateStatus(c.Request.Context(), adminID, orderID, req)
	if err != nil {
		respondOrderError(c, err, "Failed to update status")
		return
	}
	response.Success(c, http.StatusOK, order)
}

// Deliver attaches account credentials to an awaiting order.
// POST /api/v1/admin/orders/:id/deliver
func (h *OrderHandler) Deliver(c *gin.Context) {
	adminID := c.MustGet("userID").(uuid.UUID)

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid order id")
		return
	}

	var req model.DeliverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid delivery request", err)
		return
	}

	order, err := h.service.Deliver(c.Request.Context(), adminID, orderID, req)
	if err != nil {
		respondOrderError(c, err, "Failed to deliver order")
		return
	}
	response.Success(c, http.StatusOK, order)
}

// ResolveDispute closes a dispute with refund, redeliver or reject.
// POST /api/v1/admin/orders/:id/resolve
func (h *OrderHandler) ResolveDispute(c *gin.Context) {
	adminID := c.MustGet("userID").(uuid.UUID)

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid order id")
		return
	}

	var req model.ResolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid resolve request", err)
		return
	}

	order, err := h.service.ResolveDispute(c.Request.Context(), adminID, orderID, req)
	if err != nil {
		respondOrderError(c, err, "Failed to resolve dispute")
		return
	}
	response.Success(c, http.StatusOK, order)
}

// respondOrderError maps domain errors from the whole checkout pipeline to
// HTTP statuses. Catalog, discount and wallet errors all surface here because
// CreateOrder crosses those domains.
func respondOrderError(c *gin.Context, err error, fallback string) {
	var orderErr *model.OrderError
	if errors.As(err, &orderErr) {
		status := http.StatusUnprocessableEntity
		switch orderErr.Code {
		case model.ErrCodeOrderNotFound:
			status = http.StatusNotFound
		case model.ErrCodeNotOwner:
			status = http.StatusForbidden
		case model.ErrCodeIllegalTransition,
			model.ErrCodeRevealNotAllowed,
			model.ErrCodeDisputeNotAllowed,
			model.ErrCodeNoOpenDispute,
			model.ErrCodeConcurrencyConflict:
			status = http.StatusConflict
		}
		response.ErrorResponse(c, status, orderErr.Code, orderErr.Message)
		return
	}

	var catalogErr *catalogModel.CatalogError
	if errors.As(err, &catalogErr) {
		status := http.StatusUnprocessableEntity
		switch catalogErr.Code {
		case catalogModel.ErrCodeProductNotFound, catalogModel.ErrCodeVariantNotFound:
			status = http.StatusNotFound
		case catalogModel.ErrCodeInsufficientStock:
			status = http.StatusConflict
		}
		response.ErrorResponse(c, status, catalogErr.Code, catalogErr.Message)
		return
	}
	if errors.Is(err, catalogModel.ErrProductNotFound) || errors.Is(err, catalogModel.ErrVariantNotFound) {
		response.ErrorResponse(c, http.StatusNotFound, catalogModel.ErrCodeProductNotFound, "Product not found")
		return
	}
	if errors.Is(err, catalogModel.ErrInsufficientStock) {
		response.ErrorResponse(c, http.StatusConflict, catalogModel.ErrCodeInsufficientStock, "Insufficient stock")
		return
	}

	var discountErr *discountModel.DiscountError
	if errors.As(err, &discountErr) {
		status := http.StatusUnprocessableEntity
		if discountErr.Code == discountModel.ErrCodeCouponNotFound {
			status = http.StatusNotFound
		}
		response.ErrorResponse(c, status, discountErr.Code, discountErr.Message)
		return
	}

	var walletErr *walletModel.WalletError
	if errors.As(err, &walletErr) {
		response.ErrorResponse(c, http.StatusUnprocessableEntity, walletErr.Code, walletErr.Message)
		return
	}

	response.InternalServerError(c, fallback)
}
