package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type DailyExpense struct {
	ID                      int64               `json:"id" db:"id"`
	Date                    Date                `json:"date" db:"date"`
	DieselAmount            decimal.Decimal     `json:"diesel_amount" db:"diesel_amount"`
	DieselLocation          string              `json:"diesel_location" db:"diesel_location"`
	DefAmount               decimal.Decimal     `json:"def_amount" db:"def_amount"`
	DefLocation             string              `json:"def_location" db:"def_location"`
	OtherExpenseDescription string              `json:"other_expense_description" db:"other_expense_description"`
	OtherExpenseAmount      decimal.NullDecimal `json:"other_expense_amount" db:"other_expense_amount"`
	OtherExpenseLocation    string              `json:"other_expense_location" db:"other_expense_location"`
	Total                   decimal.Decimal     `json:"total" db:"total"`
	UserID                  int64               `json:"user_id" db:"user_id"`
	CreatedAt               time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt               *time.Time          `json:"updated_at" db:"updated_at"`
}

type ExpenseInput struct {
	Date                    Date                `json:"date"`
	DieselAmount            decimal.Decimal     `json:"diesel_amount"`
	DieselLocation          string              `json:"diesel_location" validate:"max=255"`
	DefAmount               decimal.Decimal     `json:"def_amount"`
	DefLocation             string              `json:"def_location" validate:"max=255"`
	OtherExpenseDescription string              `json:"other_expense_description"`
	OtherExpenseAmount      decimal.NullDecimal `json:"other_expense_amount"`
	OtherExpenseLocation    string              `json:"other_expense_location" validate:"max=255"`
}

// ApplyTo copies the input onto e and recomputes the total.
func (in *ExpenseInput) ApplyTo(e *DailyExpense) {
	e.Date = in.Date
	e.DieselAmount = in.DieselAmount
	e.DieselLocation = in.DieselLocation
	e.DefAmount = in.DefAmount
	e.DefLocation = in.DefLocation
	e.OtherExpenseDescription = in.OtherExpenseDescription
	e.OtherExpenseAmount = in.OtherExpenseAmount
	e.OtherExpenseLocation = in.OtherExpenseLocation
	e.Total = e.DieselAmount.Add(e.DefAmount)
	if e.OtherExpenseAmount.Valid {
		e.Total = e.Total.Add(e.OtherExpenseAmount.Decimal)
	}
}

type ExpenseFilter struct {
	StartDate Date
	EndDate   Date
}
