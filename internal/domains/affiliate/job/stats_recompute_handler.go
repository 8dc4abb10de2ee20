package job

import (
	"context"

	"github.com/hibiken/asynq"

	"digistore-backend/internal/domains/affiliate/service"
	"digistore-backend/pkg/logger"
)

// StatsRecomputeHandler rebuilds every active affiliate's rollups from the
// usage rows on the scheduled cadence.
type StatsRecomputeHandler struct {
	service service.ServiceInterface
}

func NewStatsRecomputeHandler(svc service.ServiceInterface) *StatsRecomputeHandler {
	return &StatsRecomputeHandler{service: svc}
}

func (h *StatsRecomputeHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	if err := h.service.RecomputeAll(ctx); err != nil {
		logger.Error("Scheduled affiliate recompute failed", err)
		return err
	}
	logger.Info("Affiliate stats recompute finished", nil)
	return nil
}
