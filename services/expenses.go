package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"idealtransport/models"
	"idealtransport/repository"
	"idealtransport/utils"
)

type ExpenseService struct {
	repo repository.ExpenseRepository
}

func NewExpenseService(repo repository.ExpenseRepository) *ExpenseService {
	return &ExpenseService{repo: repo}
}

func expenseNotFound(id int64) *Error {
	return notFound("expense_not_found", "Daily expense %d not found", id)
}

func checkExpenseInput(in *models.ExpenseInput) error {
	if in.Date.IsZero() {
		return invalidInput("date is required")
	}
	amounts := map[string]decimal.Decimal{
		"diesel_amount": in.DieselAmount,
		"def_amount":    in.DefAmount,
	}
	if in.OtherExpenseAmount.Valid {
		amounts["other_expense_amount"] = in.OtherExpenseAmount.Decimal
	}
	total := decimal.Zero
	for _, field := range []string{"diesel_amount", "def_amount", "other_expense_amount"} {
		amount, ok := amounts[field]
		if !ok {
			continue
		}
		if amount.Sign() < 0 {
			return invalidInput("%s must not be negative", field)
		}
		if !utils.AmountInRange(amount) {
			return amountOutOfRange(field)
		}
		total = total.Add(amount)
	}
	if total.Round(2).GreaterThan(utils.MaxAmount) {
		return amountOutOfRange("total")
	}
	return nil
}

func (s *ExpenseService) Create(ctx context.Context, userID int64, in *models.ExpenseInput) (*models.DailyExpense, error) {
	if err := checkExpenseInput(in); err != nil {
		return nil, err
	}
	e := &models.DailyExpense{UserID: userID}
	in.ApplyTo(e)
	if err := s.repo.CreateExpense(ctx, e); err != nil {
		return nil, fmt.Errorf("expenses: create: %w", err)
	}
	return e, nil
}

func (s *ExpenseService) Get(ctx context.Context, userID, id int64) (*models.DailyExpense, error) {
	e, err := s.repo.GetExpense(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, expenseNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("expenses: get: %w", err)
	}
	return e, nil
}

func (s *ExpenseService) List(ctx context.Context, userID int64, f models.ExpenseFilter) ([]*models.DailyExpense, error) {
	list, err := s.repo.ListExpenses(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("expenses: list: %w", err)
	}
	if list == nil {
		list = []*models.DailyExpense{}
	}
	return list, nil
}

func (s *ExpenseService) Update(ctx context.Context, userID, id int64, in *models.ExpenseInput) (*models.DailyExpense, error) {
	if err := checkExpenseInput(in); err != nil {
		return nil, err
	}
	e := &models.DailyExpense{ID: id, UserID: userID}
	in.ApplyTo(e)
	err := s.repo.UpdateExpense(ctx, e)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, expenseNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("expenses: update: %w", err)
	}
	return e, nil
}

func (s *ExpenseService) Delete(ctx context.Context, userID, id int64) error {
	err := s.repo.DeleteExpense(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return expenseNotFound(id)
	}
	if err != nil {
		return fmt.Errorf("expenses: delete: %w", err)
	}
	return nil
}
