package models

import "github.com/shopspring/decimal"

type PaymentState string

const (
	Unpaid        PaymentState = "unpaid"
	PartiallyPaid PaymentState = "partially_paid"
	FullyPaid     PaymentState = "fully_paid"
)

// StateOf derives where a work order sits in its payment lifecycle.
func StateOf(total, collected decimal.Decimal) PaymentState {
	switch {
	case DueAmount(total, collected).Sign() <= 0:
		return FullyPaid
	case collected.Sign() > 0:
		return PartiallyPaid
	default:
		return Unpaid
	}
}

// DueAmount is total minus collected, floored at zero.
func DueAmount(total, collected decimal.Decimal) decimal.Decimal {
	due := total.Sub(collected)
	if due.Sign() < 0 {
		return decimal.Zero
	}
	return due
}

type PaymentStatus struct {
	WorkOrderNo       string          `json:"work_order_no"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	TotalCollected    decimal.Decimal `json:"total_collected"`
	DueAmount         decimal.Decimal `json:"due_amount"`
	IsFullyPaid       bool            `json:"is_fully_paid"`
	PaymentPercentage float64         `json:"payment_percentage"`
	State             PaymentState    `json:"payment_state"`
}

// NewPaymentStatus builds the status of a work order from its BOL total and
// the sum of its payments.
func NewPaymentStatus(workOrderNo string, total, collected decimal.Decimal) *PaymentStatus {
	due := DueAmount(total, collected)
	pct := 0.0
	if total.Sign() > 0 {
		pct = collected.Div(total).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	}
	return &PaymentStatus{
		WorkOrderNo:       workOrderNo,
		TotalAmount:       total,
		TotalCollected:    collected,
		DueAmount:         due,
		IsFullyPaid:       due.Sign() <= 0,
		PaymentPercentage: pct,
		State:             StateOf(total, collected),
	}
}

// PendingWorkOrder summarises a BOL that still has a balance due.
type PendingWorkOrder struct {
	ID             int64           `json:"id"`
	WorkOrderNo    string          `json:"work_order_no"`
	DriverName     string          `json:"driver_name"`
	Date           Date            `json:"date"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	TotalCollected decimal.Decimal `json:"total_collected"`
	DueAmount      decimal.Decimal `json:"due_amount"`
}
