package model

import "github.com/shopspring/decimal"

// RefundDetails is the result of pricing a refund.  It is returned to
// callers and selectively copied onto the cancelled booking.
type RefundDetails struct {
	OriginalAmount   decimal.Decimal `json:"original_amount"`
	RefundAmount     decimal.Decimal `json:"refund_amount"`
	RefundPercentage float64         `json:"refund_percentage"`
	DaysUntilEvent   int             `json:"days_until_event"`
	PolicyApplied    string          `json:"policy_applied"`
}
