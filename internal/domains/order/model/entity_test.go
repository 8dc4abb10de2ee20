package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{"pending to processing", StatusPendingPayment, StatusProcessing, true},
		{"pending to cancelled", StatusPendingPayment, StatusCancelled, true},
		{"pending straight to completed", StatusPendingPayment, StatusCompleted, false},
		{"processing to completed", StatusProcessing, StatusCompleted, true},
		{"processing to awaiting admin", StatusProcessing, StatusAwaitingAdmin, true},
		{"processing to payment failed", StatusProcessing, StatusPaymentFailed, true},
		{"completed to revealed", StatusCompleted, StatusRevealed, true},
		{"completed to disputed", StatusCompleted, StatusDisputed, true},
		{"revealed to disputed", StatusRevealed, StatusDisputed, true},
		{"revealed back to completed", StatusRevealed, StatusCompleted, false},
		{"revealed to refunded directly", StatusRevealed, StatusRefunded, false},
		{"awaiting admin to delivered", StatusAwaitingAdmin, StatusDelivered, true},
		{"delivered to disputed", StatusDelivered, StatusDisputed, true},
		{"delivered back to awaiting", StatusDelivered, StatusAwaitingAdmin, false},
		{"disputed to refunded", StatusDisputed, StatusRefunded, true},
		{"disputed restored to revealed", StatusDisputed, StatusRevealed, true},
		{"disputed restored to delivered", StatusDisputed, StatusDelivered, true},
		{"payment failed retried", StatusPaymentFailed, StatusProcessing, true},
		{"cancelled is terminal", StatusCancelled, StatusProcessing, false},
		{"refunded is terminal", StatusRefunded, StatusDisputed, false},
		{"unknown from status", OrderStatus("bogus"), StatusProcessing, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusRefunded.IsTerminal())

	for _, s := range []OrderStatus{
		StatusPendingPayment, StatusProcessing, StatusCompleted, StatusRevealed,
		StatusAwaitingAdmin, StatusDelivered, StatusPaymentFailed, StatusDisputed,
	} {
		assert.False(t, s.IsTerminal(), "%s should not be terminal", s)
	}
}

func TestOrderStatusIsValid(t *testing.T) {
	assert.True(t, StatusProcessing.IsValid())
	assert.True(t, StatusDisputed.IsValid())
	assert.False(t, OrderStatus("shipped").IsValid())
	assert.False(t, OrderStatus("").IsValid())
}

func TestDisputeDecisionIsValid(t *testing.T) {
	assert.True(t, DecisionRefund.IsValid())
	assert.True(t, DecisionRedeliver.IsValid())
	assert.True(t, DecisionReject.IsValid())
	assert.False(t, DisputeDecision("escalate").IsValid())
}

func TestDeliveryDataRoundTrip(t *testing.T) {
	data := DeliveryData{
		"username": "buyer@example.com",
		"password": "s3cret",
	}

	value, err := data.Value()
	require.NoError(t, err)

	var scanned DeliveryData
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, "buyer@example.com", scanned["username"])
	assert.Equal(t, "s3cret", scanned["password"])
}

func TestDeliveryDataScanNil(t *testing.T) {
	var scanned DeliveryData
	require.NoError(t, scanned.Scan(nil))
	assert.Nil(t, scanned)
}

func TestDeliveryDataScanRejectsNonBytes(t *testing.T) {
	var scanned DeliveryData
	assert.ErrorIs(t, scanned.Scan(42), ErrInvalidDeliveryData)
}
