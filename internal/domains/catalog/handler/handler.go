package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"digistore-backend/internal/domains/catalog/model"
	"digistore-backend/internal/domains/catalog/service"
	"digistore-backend/internal/shared/response"
)

type CatalogHandler struct {
	service service.ServiceInterface
}

func NewCatalogHandler(svc service.ServiceInterface) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// ============================================================================
// STOREFRONT
// ============================================================================

// ListProducts is the public listing.
// GET /api/v1/products?kind=&search=&page=&limit=
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	filter := model.ListFilter{
		Kind:       c.Query("kind"),
		Search:     c.Query("search"),
		OnlyActive: true,
	}

	products, total, err := h.service.ListProducts(c.Request.Context(), filter, page, limit)
	if err != nil {
		response.InternalServerError(c, "Failed to list products")
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, products, &response.Meta{
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

// GetProduct serves the cached public detail view.
// GET /api/v1/products/:slug
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	detail, err := h.service.GetProduct(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, detail)
}

// ============================================================================
// ADMIN
// ============================================================================

// CreateProduct creates a product with both currency quotes.
// POST /api/v1/admin/products
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req model.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid product", err)
		return
	}

	product, err := h.service.CreateProduct(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, product)
}

// UpdateProduct applies a partial update.
// PATCH /api/v1/admin/products/:id
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid product id")
		return
	}

	var req model.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid product update", err)
		return
	}

	product, err := h.service.UpdateProduct(c.Request.Context(), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, product)
}

// CreateVariant adds a denomination to a product.
// POST /api/v1/admin/products/:id/variants
func (h *CatalogHandler) CreateVariant(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid product id")
		return
	}

	var req model.CreateVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid variant", err)
		return
	}

	variant, err := h.service.CreateVariant(c.Request.Context(), productID, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, variant)
}

// AddCodes bulk-uploads pool codes as a JSON list of strings.
// POST /api/v1/admin/products/:id/codes
func (h *CatalogHandler) AddCodes(c *gin.Context) {
	adminID := c.MustGet("userID").(uuid.UUID)

	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid product id")
		return
	}

	var req model.AddCodesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid code upload", err)
		return
	}

	result, err := h.service.AddCodes(c.Request.Context(), adminID, productID, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, result)
}

// ReconcileStock recounts the code pool on demand.
// POST /api/v1/admin/catalog/reconcile-stock
func (h *CatalogHandler) ReconcileStock(c *gin.Context) {
	adminID := c.MustGet("userID").(uuid.UUID)

	result, err := h.service.ReconcileStock(c.Request.Context(), &adminID)
	if err != nil {
		response.InternalServerError(c, "Failed to reconcile stock")
		return
	}
	response.Success(c, http.StatusOK, result)
}

// ============================================================================
// HELPERS
// ============================================================================

func (h *CatalogHandler) respondError(c *gin.Context, err error) {
	var catErr *model.CatalogError
	if errors.As(err, &catErr) {
		status := http.StatusBadRequest
		switch catErr.Code {
		case model.ErrCodeProductNotFound, model.ErrCodeVariantNotFound:
			status = http.StatusNotFound
		case model.ErrCodeSlugExists, model.ErrCodeSKUExists:
			status = http.StatusConflict
		case model.ErrCodeInsufficientStock:
			status = http.StatusUnprocessableEntity
		}
		response.ErrorResponse(c, status, catErr.Code, catErr.Message)
		return
	}
	response.InternalServerError(c, "Catalog operation failed")
}
