package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentType string

const (
	PaymentCash               PaymentType = "cash"
	PaymentCheck              PaymentType = "check"
	PaymentElectronicTransfer PaymentType = "electronic_transfer"
)

var paymentTypeAliases = map[string]PaymentType{
	"cash":                PaymentCash,
	"check":               PaymentCheck,
	"cheque":              PaymentCheck,
	"electronic_transfer": PaymentElectronicTransfer,
	"electronic-transfer": PaymentElectronicTransfer,
	"electronic transfer": PaymentElectronicTransfer,
	"zelle":               PaymentElectronicTransfer,
	"eft":                 PaymentElectronicTransfer,
	"ach":                 PaymentElectronicTransfer,
	"wire":                PaymentElectronicTransfer,
}

// ParsePaymentType is case-insensitive and folds the transfer rails the
// office used to record by name (Zelle, ACH, wire) into one kind.
func ParsePaymentType(s string) (PaymentType, bool) {
	pt, ok := paymentTypeAliases[strings.ToLower(strings.TrimSpace(s))]
	return pt, ok
}

type Transaction struct {
	ID              int64           `json:"id" db:"id"`
	Date            Date            `json:"date" db:"date"`
	WorkOrderNo     string          `json:"work_order_no" db:"work_order_no"`
	BOLID           int64           `json:"bol_id" db:"bol_id"`
	CollectedAmount decimal.Decimal `json:"collected_amount" db:"collected_amount"`
	// DueAmount is the balance left on the work order right after this
	// payment. Later payments do not rewrite it.
	DueAmount       decimal.Decimal `json:"due_amount" db:"due_amount"`
	PickupLocation  string          `json:"pickup_location" db:"pickup_location"`
	DropoffLocation string          `json:"dropoff_location" db:"dropoff_location"`
	PaymentType     PaymentType     `json:"payment_type" db:"payment_type"`
	Comments        string          `json:"comments" db:"comments"`
	UserID          int64           `json:"user_id" db:"user_id"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       *time.Time      `json:"updated_at" db:"updated_at"`
}

// TransactionListItem carries the broker contact of the work order's BOL.
type TransactionListItem struct {
	Transaction
	BrokerName    string `json:"broker_name"`
	BrokerAddress string `json:"broker_address"`
	BrokerPhone   string `json:"broker_phone"`
}

type TransactionInput struct {
	Date            Date            `json:"date"`
	WorkOrderNo     string          `json:"work_order_no" validate:"required,max=100"`
	CollectedAmount decimal.Decimal `json:"collected_amount"`
	PickupLocation  string          `json:"pickup_location" validate:"max=255"`
	DropoffLocation string          `json:"dropoff_location" validate:"max=255"`
	PaymentType     string          `json:"payment_type" validate:"required"`
	Comments        string          `json:"comments"`
}

// TransactionUpdate lists the fields a payment's owner may change. The
// work order, BOL link and balance snapshot are fixed at creation.
type TransactionUpdate struct {
	Date            *Date            `json:"date"`
	CollectedAmount *decimal.Decimal `json:"collected_amount"`
	PickupLocation  *string          `json:"pickup_location" validate:"omitempty,max=255"`
	DropoffLocation *string          `json:"dropoff_location" validate:"omitempty,max=255"`
	PaymentType     *string          `json:"payment_type"`
	Comments        *string          `json:"comments"`
}

// TransactionFilter narrows owner listings and exports.
type TransactionFilter struct {
	StartDate Date
	EndDate   Date
}
