package shared

// Asynq queue names. Financial events go to the critical queue so a backlog
// of marketing noise never delays them.
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueEvents   = "events"
)

// Task type names registered with the worker.
const (
	TypeNotifyOrderCreated   = "notify:order_created"
	TypeNotifyCodesRevealed  = "notify:codes_revealed"
	TypeNotifyDisputeOpened  = "notify:dispute_opened"
	TypeNotifyLowStock       = "notify:low_stock"
	TypeReconcileStockCounts = "catalog:reconcile_stock"
	TypeVerifyWalletLedgers  = "wallet:verify_ledgers"
	TypeReconcileAffiliates  = "affiliate:reconcile_stats"
)

// OrderCreatedPayload is emitted after the order transaction commits.
type OrderCreatedPayload struct {
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	UserID      string `json:"userId"`
	Total       string `json:"total"`
	Currency    string `json:"currency"`
}

// CodesRevealedPayload is emitted after a successful reveal.
type CodesRevealedPayload struct {
	OrderID   string `json:"orderId"`
	UserID    string `json:"userId"`
	CodeCount int    `json:"codeCount"`
	IPAddress string `json:"ipAddress"`
}

// DisputeOpenedPayload is emitted when a customer opens a dispute.
type DisputeOpenedPayload struct {
	OrderID string `json:"orderId"`
	UserID  string `json:"userId"`
	Reason  string `json:"reason"`
}

// LowStockPayload is emitted when a reservation drains a product's code pool
// below its threshold.
type LowStockPayload struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Remaining int    `json:"remaining"`
}
