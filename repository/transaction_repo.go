package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"idealtransport/models"
)

// LedgerTx is the view of the store handed out while a work order is
// locked. Writes through it commit together when the callback returns nil.
type LedgerTx interface {
	LockedBOL() *models.BillOfLading
	SumCollected(ctx context.Context, workOrderNo string) (decimal.Decimal, error)
	// GetTransaction loads and locks a payment owned by userID.
	GetTransaction(ctx context.Context, userID, id int64) (*models.Transaction, error)
	InsertTransaction(ctx context.Context, t *models.Transaction) error
	UpdateTransaction(ctx context.Context, t *models.Transaction) error
}

type TransactionRepository interface {
	SumCollected(ctx context.Context, workOrderNo string) (decimal.Decimal, error)
	// SumCollectedByWorkOrders aggregates a set of work orders in one
	// query. Work orders without payments map to zero.
	SumCollectedByWorkOrders(ctx context.Context, workOrderNos []string) (map[string]decimal.Decimal, error)
	// WithWorkOrderLock locks the BOL row of workOrderNo for the duration of
	// fn. At most one caller holds a given work order at a time.
	WithWorkOrderLock(ctx context.Context, workOrderNo string, fn func(LedgerTx) error) error
	GetTransaction(ctx context.Context, userID, id int64) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID int64, f models.TransactionFilter) ([]*models.TransactionListItem, error)
	ListByWorkOrder(ctx context.Context, workOrderNo string, userID int64) ([]*models.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id int64) error
}
