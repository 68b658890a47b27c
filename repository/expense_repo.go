package repository

import (
	"context"

	"idealtransport/models"
)

// ExpenseRepository scopes every lookup to the owning user; another
// user's row reads as ErrNotFound.
type ExpenseRepository interface {
	CreateExpense(ctx context.Context, e *models.DailyExpense) error
	GetExpense(ctx context.Context, userID, id int64) (*models.DailyExpense, error)
	ListExpenses(ctx context.Context, userID int64, f models.ExpenseFilter) ([]*models.DailyExpense, error)
	UpdateExpense(ctx context.Context, e *models.DailyExpense) error
	DeleteExpense(ctx context.Context, userID, id int64) error
}
