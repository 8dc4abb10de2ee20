package queue

import (
	"fmt"

	"github.com/hibiken/asynq"

	"digistore-backend/internal/config"
	"digistore-backend/internal/shared"
	"digistore-backend/pkg/logger"
)

// Scheduler owns the cron registrations for the reconciliation jobs. The
// tasks it emits are consumed by the same worker process.
type Scheduler struct {
	scheduler *asynq.Scheduler
	jobs      config.JobConfig
}

func NewScheduler(redisOpt asynq.RedisClientOpt, jobs config.JobConfig) *Scheduler {
	return &Scheduler{
		scheduler: asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
			EnqueueErrorHandler: func(task *asynq.Task, opts []asynq.Option, err error) {
				logger.Error("Failed to enqueue scheduled task "+task.Type(), err)
			},
		}),
		jobs: jobs,
	}
}

// RegisterReconciliationJobs wires the three periodic self-checks: stock
// recount, wallet ledger replay and affiliate stats rebuild.
func (s *Scheduler) RegisterReconciliationJobs() error {
	entries := []struct {
		spec     string
		taskType string
	}{
		{s.jobs.StockReconcileSpec, shared.TypeReconcileStockCounts},
		{s.jobs.LedgerVerifySpec, shared.TypeVerifyWalletLedgers},
		{s.jobs.AffiliateStatsSpec, shared.TypeReconcileAffiliates},
	}

	for _, e := range entries {
		task := asynq.NewTask(e.taskType, nil)
		if _, err := s.scheduler.Register(e.spec, task, asynq.Queue(shared.QueueDefault)); err != nil {
			return fmt.Errorf("register %s: %w", e.taskType, err)
		}
		logger.Info("Registered scheduled job", map[string]interface{}{
			"task": e.taskType,
			"spec": e.spec,
		})
	}
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Start()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
