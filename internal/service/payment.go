package service

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-booking-engine/internal/model"
)

// ErrPaymentDeclined is returned by Checkout when the processor gives no
// transaction id.  It matches model.ErrValidation.
var ErrPaymentDeclined error = &model.Error{Kind: model.KindValidation, Reason: "payment was declined"}

// PaymentMethods lists the methods accepted by the simulated gateway.
var PaymentMethods = []string{"UPI", "Credit Card", "Debit Card", "PayPal", "Net Banking"}

// SimulatedGateway stands in for the external payment and refund
// providers.  Charges succeed for known methods and return a random
// transaction id; refunds always succeed.
type SimulatedGateway struct{}

// NewSimulatedGateway returns a gateway usable as both PaymentProcessor
// and RefundProcessor.
func NewSimulatedGateway() *SimulatedGateway { return &SimulatedGateway{} }

// Charge implements PaymentProcessor.
func (g *SimulatedGateway) Charge(ctx context.Context, username string, amount decimal.Decimal, method string) (string, error) {
	if !knownMethod(method) {
		return "", model.Validation("unsupported payment method %q", method)
	}
	if amount.IsNegative() {
		return "", model.Validation("charge amount must not be negative")
	}
	txID := "TXN-" + strings.ToUpper(uuid.NewString())
	log.Printf("payment: charged %s %s via %s (tx=%s)", username, amount.StringFixed(2), method, txID)
	return txID, nil
}

// Refund implements RefundProcessor.
func (g *SimulatedGateway) Refund(ctx context.Context, username string, bookingID int64, amount decimal.Decimal, method string) error {
	log.Printf("payment: refund approved booking=%d user=%s amount=%s method=%s", bookingID, username, amount.StringFixed(2), model.NormalizePaymentMethod(method))
	return nil
}

func knownMethod(m string) bool {
	for _, k := range PaymentMethods {
		if k == m {
			return true
		}
	}
	return false
}
