package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"digistore-backend/internal/infrastructure/notification"
	"digistore-backend/internal/shared"
	"digistore-backend/pkg/logger"
)

// ============================================
// Order Created Handler
// ============================================

type OrderCreatedHandler struct {
	notifier notification.Notifier
}

func NewOrderCreatedHandler(notifier notification.Notifier) *OrderCreatedHandler {
	return &OrderCreatedHandler{notifier: notifier}
}

func (h *OrderCreatedHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload shared.OrderCreatedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := h.notifier.OrderCreated(ctx, payload); err != nil {
		logger.Error("Failed to send order created notification", err)
		return err
	}
	return nil
}

// ============================================
// Codes Revealed Handler
// ============================================

type CodesRevealedHandler struct {
	notifier notification.Notifier
}

func NewCodesRevealedHandler(notifier notification.Notifier) *CodesRevealedHandler {
	return &CodesRevealedHandler{notifier: notifier}
}

func (h *CodesRevealedHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload shared.CodesRevealedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := h.notifier.CodesRevealed(ctx, payload); err != nil {
		logger.Error("Failed to send codes revealed notification", err)
		return err
	}
	return nil
}

// ============================================
// Dispute Opened Handler
// ============================================

type DisputeOpenedHandler struct {
	notifier notification.Notifier
}

func NewDisputeOpenedHandler(notifier notification.Notifier) *DisputeOpenedHandler {
	return &DisputeOpenedHandler{notifier: notifier}
}

func (h *DisputeOpenedHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload shared.DisputeOpenedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := h.notifier.DisputeOpened(ctx, payload); err != nil {
		logger.Error("Failed to send dispute opened notification", err)
		return err
	}
	return nil
}

// ============================================
// Low Stock Handler
// ============================================

type LowStockHandler struct {
	notifier notification.Notifier
}

func NewLowStockHandler(notifier notification.Notifier) *LowStockHandler {
	return &LowStockHandler{notifier: notifier}
}

func (h *LowStockHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload shared.LowStockPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := h.notifier.LowStock(ctx, payload); err != nil {
		logger.Error("Failed to send low stock notification", err)
		return err
	}
	return nil
}
