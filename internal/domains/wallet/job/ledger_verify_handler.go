package job

import (
	"context"

	"github.com/hibiken/asynq"

	"digistore-backend/internal/domains/wallet/service"
	"digistore-backend/pkg/logger"
)

// LedgerVerifyHandler replays every wallet's transaction chain and reports
// drift. Detection only; nothing here mutates balances.
type LedgerVerifyHandler struct {
	service service.ServiceInterface
}

func NewLedgerVerifyHandler(svc service.ServiceInterface) *LedgerVerifyHandler {
	return &LedgerVerifyHandler{service: svc}
}

func (h *LedgerVerifyHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	drifts, err := h.service.VerifyLedgers(ctx)
	if err != nil {
		logger.Error("Scheduled ledger verification failed", err)
		return err
	}

	if len(drifts) > 0 {
		for _, d := range drifts {
			logger.Warn("Ledger drift detected", map[string]interface{}{
				"user_id":  d.UserID.String(),
				"currency": d.Currency,
				"seq":      d.Seq,
				"expected": d.Expected.String(),
				"actual":   d.Actual.String(),
			})
		}
	} else {
		logger.Info("Ledger verification finished", map[string]interface{}{"drifts": 0})
	}
	return nil
}
