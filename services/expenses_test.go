package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"idealtransport/models"
	"idealtransport/repository/memory"
)

func expenseInput(diesel, def string, other *string) *models.ExpenseInput {
	in := &models.ExpenseInput{
		Date:           models.NewDate(2024, 5, 1),
		DieselAmount:   dec(diesel),
		DieselLocation: "Pilot, Amarillo",
		DefAmount:      dec(def),
	}
	if other != nil {
		in.OtherExpenseAmount = decimal.NewNullDecimal(dec(*other))
		in.OtherExpenseDescription = "tolls"
	}
	return in
}

func TestExpenseTotals(t *testing.T) {
	svc := NewExpenseService(memory.NewStore())
	ctx := context.Background()

	other := "12.25"
	e, err := svc.Create(ctx, 1, expenseInput("300.10", "20", &other))
	require.NoError(t, err)
	requireDecimal(t, "332.35", e.Total)

	updated, err := svc.Update(ctx, 1, e.ID, expenseInput("100", "0", nil))
	require.NoError(t, err)
	requireDecimal(t, "100", updated.Total)
	require.False(t, updated.OtherExpenseAmount.Valid)
}

func TestExpenseValidation(t *testing.T) {
	svc := NewExpenseService(memory.NewStore())
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, expenseInput("-1", "0", nil))
	requireKind(t, err, KindValidation, "invalid_input")

	neg := "-3"
	_, err = svc.Create(ctx, 1, expenseInput("1", "0", &neg))
	requireKind(t, err, KindValidation, "invalid_input")

	in := expenseInput("1", "0", nil)
	in.Date = models.Date{}
	_, err = svc.Create(ctx, 1, in)
	requireKind(t, err, KindValidation, "invalid_input")
}

func TestExpenseAmountRange(t *testing.T) {
	svc := NewExpenseService(memory.NewStore())
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, expenseInput("1e99999999", "0", nil))
	requireKind(t, err, KindValidation, "amount_out_of_range")

	_, err = svc.Create(ctx, 1, expenseInput("123456789012", "0", nil))
	requireKind(t, err, KindValidation, "amount_out_of_range")

	// Each field fits but the total does not.
	_, err = svc.Create(ctx, 1, expenseInput("9999999999", "9999999999", nil))
	requireKind(t, err, KindValidation, "amount_out_of_range")

	e, err := svc.Create(ctx, 1, expenseInput("1e5", "0", nil))
	require.NoError(t, err)
	requireDecimal(t, "100000", e.Total)
}

func TestExpensesAreScopedToOwner(t *testing.T) {
	svc := NewExpenseService(memory.NewStore())
	ctx := context.Background()
	e, err := svc.Create(ctx, 1, expenseInput("10", "0", nil))
	require.NoError(t, err)

	_, err = svc.Get(ctx, 2, e.ID)
	requireKind(t, err, KindNotFound, "expense_not_found")
	_, err = svc.Update(ctx, 2, e.ID, expenseInput("1", "1", nil))
	requireKind(t, err, KindNotFound, "expense_not_found")
	requireKind(t, svc.Delete(ctx, 2, e.ID), KindNotFound, "expense_not_found")

	list, err := svc.List(ctx, 2, models.ExpenseFilter{})
	require.NoError(t, err)
	require.Empty(t, list)

	list, err = svc.List(ctx, 1, models.ExpenseFilter{EndDate: models.NewDate(2024, 5, 1)})
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, 1, e.ID))
	_, err = svc.Get(ctx, 1, e.ID)
	requireKind(t, err, KindNotFound, "expense_not_found")
}
