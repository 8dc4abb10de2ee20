package job

import (
	"context"

	"github.com/hibiken/asynq"

	"digistore-backend/internal/domains/catalog/service"
	"digistore-backend/pkg/logger"
)

// StockReconcileHandler runs the scheduled recount of the code pool against
// the denormalized stock counters.
type StockReconcileHandler struct {
	service service.ServiceInterface
}

func NewStockReconcileHandler(svc service.ServiceInterface) *StockReconcileHandler {
	return &StockReconcileHandler{service: svc}
}

func (h *StockReconcileHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	// nil actor records the run as the system scheduler.
	result, err := h.service.ReconcileStock(ctx, nil)
	if err != nil {
		logger.Error("Scheduled stock reconciliation failed", err)
		return err
	}

	logger.Info("Stock reconciliation finished", map[string]interface{}{
		"checked": result.Checked,
		"drifts":  len(result.Drifts),
	})
	return nil
}
