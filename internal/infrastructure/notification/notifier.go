package notification

import (
	"context"
	"fmt"
	"net/smtp"

	"digistore-backend/internal/shared"
	"digistore-backend/pkg/logger"
)

// Notifier fans operational events out to whoever needs to hear about them.
// Delivery is best effort; the worker retries failed tasks, never the caller.
type Notifier interface {
	OrderCreated(ctx context.Context, payload shared.OrderCreatedPayload) error
	CodesRevealed(ctx context.Context, payload shared.CodesRevealedPayload) error
	DisputeOpened(ctx context.Context, payload shared.DisputeOpenedPayload) error
	LowStock(ctx context.Context, payload shared.LowStockPayload) error
}

type smtpNotifier struct {
	smtpAddr   string
	from       string
	adminEmail string
}

// NewSMTPNotifier sends operational mail through a plain SMTP relay.
func NewSMTPNotifier(host, port, from, adminEmail string) Notifier {
	return &smtpNotifier{
		smtpAddr:   host + ":" + port,
		from:       from,
		adminEmail: adminEmail,
	}
}

func (n *smtpNotifier) OrderCreated(ctx context.Context, payload shared.OrderCreatedPayload) error {
	subject := "New order " + payload.OrderNumber
	body := fmt.Sprintf(`Order %s was placed.

Order ID: %s
Customer: %s
Total:    %s %s`,
		payload.OrderNumber, payload.OrderID, payload.UserID, payload.Total, payload.Currency)
	return n.send(subject, body)
}

func (n *smtpNotifier) CodesRevealed(ctx context.Context, payload shared.CodesRevealedPayload) error {
	subject := "Codes revealed for order " + payload.OrderID
	body := fmt.Sprintf(`Customer %s revealed %d code(s) on order %s.

Reveal IP: %s`,
		payload.UserID, payload.CodeCount, payload.OrderID, payload.IPAddress)
	return n.send(subject, body)
}

func (n *smtpNotifier) DisputeOpened(ctx context.Context, payload shared.DisputeOpenedPayload) error {
	subject := "Dispute opened on order " + payload.OrderID
	body := fmt.Sprintf(`Customer %s opened a dispute on order %s.

Reason:
%s`,
		payload.UserID, payload.OrderID, payload.Reason)
	return n.send(subject, body)
}

func (n *smtpNotifier) LowStock(ctx context.Context, payload shared.LowStockPayload) error {
	subject := "Low stock: product " + payload.ProductID
	body := fmt.Sprintf(`Code pool is running low.

Product: %s
Variant: %s
Remaining: %d`,
		payload.ProductID, payload.VariantID, payload.Remaining)
	return n.send(subject, body)
}

func (n *smtpNotifier) send(subject, body string) error {
	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		n.from, n.adminEmail, subject, body))
	if err := smtp.SendMail(n.smtpAddr, nil, n.from, []string{n.adminEmail}, msg); err != nil {
		return fmt.Errorf("send notification email: %w", err)
	}
	return nil
}

// logNotifier is the development fallback when no SMTP relay is configured.
type logNotifier struct{}

func NewLogNotifier() Notifier {
	return &logNotifier{}
}

func (logNotifier) OrderCreated(ctx context.Context, payload shared.OrderCreatedPayload) error {
	logger.Info("notification: order created", map[string]interface{}{
		"order_id":     payload.OrderID,
		"order_number": payload.OrderNumber,
		"total":        payload.Total,
		"currency":     payload.Currency,
	})
	return nil
}

func (logNotifier) CodesRevealed(ctx context.Context, payload shared.CodesRevealedPayload) error {
	logger.Info("notification: codes revealed", map[string]interface{}{
		"order_id":   payload.OrderID,
		"code_count": payload.CodeCount,
		"ip":         payload.IPAddress,
	})
	return nil
}

func (logNotifier) DisputeOpened(ctx context.Context, payload shared.DisputeOpenedPayload) error {
	logger.Info("notification: dispute opened", map[string]interface{}{
		"order_id": payload.OrderID,
		"reason":   payload.Reason,
	})
	return nil
}

func (logNotifier) LowStock(ctx context.Context, payload shared.LowStockPayload) error {
	logger.Warn("notification: low stock", map[string]interface{}{
		"product_id": payload.ProductID,
		"variant_id": payload.VariantID,
		"remaining":  payload.Remaining,
	})
	return nil
}
