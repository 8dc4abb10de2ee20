package main

import (
	"github.com/hibiken/asynq"

	affiliateJob "digistore-backend/internal/domains/affiliate/job"
	catalogJob "digistore-backend/internal/domains/catalog/job"
	walletJob "digistore-backend/internal/domains/wallet/job"
	"digistore-backend/internal/infrastructure/notification"
	notifyJob "digistore-backend/internal/infrastructure/notification/job"
	"digistore-backend/internal/shared"
	"digistore-backend/pkg/container"
)

// HandlerRegistry holds all task handlers with their dependencies.
type HandlerRegistry struct {
	orderCreated  *notifyJob.OrderCreatedHandler
	codesRevealed *notifyJob.CodesRevealedHandler
	disputeOpened *notifyJob.DisputeOpenedHandler
	lowStock      *notifyJob.LowStockHandler

	stockReconcile *catalogJob.StockReconcileHandler
	ledgerVerify   *walletJob.LedgerVerifyHandler
	statsRecompute *affiliateJob.StatsRecomputeHandler
}

func initializeHandlers(c *container.Container) *HandlerRegistry {
	var notifier notification.Notifier
	if c.Config.SMTP.Host != "" {
		notifier = notification.NewSMTPNotifier(
			c.Config.SMTP.Host,
			c.Config.SMTP.Port,
			c.Config.SMTP.From,
			c.Config.SMTP.AdminEmail,
		)
	} else {
		notifier = notification.NewLogNotifier()
	}

	return &HandlerRegistry{
		orderCreated:  notifyJob.NewOrderCreatedHandler(notifier),
		codesRevealed: notifyJob.NewCodesRevealedHandler(notifier),
		disputeOpened: notifyJob.NewDisputeOpenedHandler(notifier),
		lowStock:      notifyJob.NewLowStockHandler(notifier),

		stockReconcile: catalogJob.NewStockReconcileHandler(c.CatalogService),
		ledgerVerify:   walletJob.NewLedgerVerifyHandler(c.WalletService),
		statsRecompute: affiliateJob.NewStatsRecomputeHandler(c.AffiliateService),
	}
}

func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	// Notification tasks
	mux.HandleFunc(shared.TypeNotifyOrderCreated, h.orderCreated.ProcessTask)
	mux.HandleFunc(shared.TypeNotifyCodesRevealed, h.codesRevealed.ProcessTask)
	mux.HandleFunc(shared.TypeNotifyDisputeOpened, h.disputeOpened.ProcessTask)
	mux.HandleFunc(shared.TypeNotifyLowStock, h.lowStock.ProcessTask)

	// Reconciliation tasks
	mux.HandleFunc(shared.TypeReconcileStockCounts, h.stockReconcile.ProcessTask)
	mux.HandleFunc(shared.TypeVerifyWalletLedgers, h.ledgerVerify.ProcessTask)
	mux.HandleFunc(shared.TypeReconcileAffiliates, h.statsRecompute.ProcessTask)
}
