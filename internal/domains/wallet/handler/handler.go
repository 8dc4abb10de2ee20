package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"digistore-backend/internal/domains/wallet/model"
	"digistore-backend/internal/domains/wallet/service"
	"digistore-backend/internal/shared/response"
)

type WalletHandler struct {
	service service.ServiceInterface
}

func NewWalletHandler(svc service.ServiceInterface) *WalletHandler {
	return &WalletHandler{service: svc}
}

// GetBalance returns the caller's balance for one currency.
// GET /api/v1/wallet/balance?currency=JOD
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)
	currency := c.DefaultQuery("currency", model.CurrencyJOD)

	balance, err := h.service.GetBalance(c.Request.Context(), userID, currency)
	if err != nil {
		var walletErr *model.WalletError
		if errors.As(err, &walletErr) {
			response.ErrorResponse(c, http.StatusBadRequest, walletErr.Code, walletErr.Message)
			return
		}
		response.InternalServerError(c, "Failed to get balance")
		return
	}

	response.Success(c, http.StatusOK, model.BalanceResponse{
		UserID:   userID,
		Currency: currency,
		Balance:  balance,
	})
}

// ListTransactions returns the caller's ledger history, newest first.
// GET /api/v1/wallet/transactions?currency=&page=&limit=
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)
	currency := c.Query("currency")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	transactions, total, err := h.service.ListTransactions(c.Request.Context(), userID, currency, page, limit)
	if err != nil {
		response.InternalServerError(c, "Failed to list transactions")
		return
	}

	items := make([]model.TransactionResponse, 0, len(transactions))
	for i := range transactions {
		items = append(items, model.ToTransactionResponse(&transactions[i]))
	}

	response.SuccessWithMeta(c, http.StatusOK, items, &response.Meta{
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

// AdminCredit tops up a customer's wallet. The credit and its audit entry
// commit atomically inside the service.
// POST /api/v1/admin/wallet/:userId/credit
func (h *WalletHandler) AdminCredit(c *gin.Context) {
	adminID := c.MustGet("userID").(uuid.UUID)

	targetID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "Invalid user id")
		return
	}

	var req model.AdminCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid credit request", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.BadRequest(c, "Invalid amount")
		return
	}

	transaction, err := h.service.AdminCredit(c.Request.Context(), adminID, targetID, req.Currency, amount, req.Reason)
	if err != nil {
		var walletErr *model.WalletError
		if errors.As(err, &walletErr) {
			response.ErrorResponse(c, http.StatusUnprocessableEntity, walletErr.Code, walletErr.Message)
			return
		}
		response.InternalServerError(c, "Failed to credit wallet")
		return
	}

	response.Success(c, http.StatusCreated, model.ToTransactionResponse(transaction))
}
