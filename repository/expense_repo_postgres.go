package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"idealtransport/models"
)

type PostgresExpenseRepo struct {
	DB *sql.DB
}

func NewPostgresExpenseRepo(db *sql.DB) *PostgresExpenseRepo {
	return &PostgresExpenseRepo{DB: db}
}

const expenseColumns = `id, date, diesel_amount, diesel_location, def_amount, def_location,
	other_expense_description, other_expense_amount, other_expense_location, total,
	user_id, created_at, updated_at`

func scanExpense(row rowScanner) (*models.DailyExpense, error) {
	e := &models.DailyExpense{}
	err := row.Scan(&e.ID, &e.Date, &e.DieselAmount, &e.DieselLocation, &e.DefAmount, &e.DefLocation,
		&e.OtherExpenseDescription, &e.OtherExpenseAmount, &e.OtherExpenseLocation, &e.Total,
		&e.UserID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *PostgresExpenseRepo) CreateExpense(ctx context.Context, e *models.DailyExpense) error {
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO daily_expenses (date, diesel_amount, diesel_location, def_amount, def_location,
			other_expense_description, other_expense_amount, other_expense_location, total, user_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id, created_at
	`, e.Date, e.DieselAmount, e.DieselLocation, e.DefAmount, e.DefLocation,
		e.OtherExpenseDescription, e.OtherExpenseAmount, e.OtherExpenseLocation, e.Total, e.UserID,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert daily expense: %w", classify(err))
	}
	return nil
}

func (r *PostgresExpenseRepo) GetExpense(ctx context.Context, userID, id int64) (*models.DailyExpense, error) {
	e, err := scanExpense(r.DB.QueryRowContext(ctx, `
		SELECT `+expenseColumns+` FROM daily_expenses WHERE id = $1 AND user_id = $2
	`, id, userID))
	if err != nil {
		return nil, classify(err)
	}
	return e, nil
}

func (r *PostgresExpenseRepo) ListExpenses(ctx context.Context, userID int64, f models.ExpenseFilter) ([]*models.DailyExpense, error) {
	where := []string{"user_id = $1"}
	args := []any{userID}
	if !f.StartDate.IsZero() {
		args = append(args, f.StartDate)
		where = append(where, fmt.Sprintf("date >= $%d", len(args)))
	}
	if !f.EndDate.IsZero() {
		args = append(args, f.EndDate)
		where = append(where, fmt.Sprintf("date <= $%d", len(args)))
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+expenseColumns+` FROM daily_expenses
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY date DESC, id DESC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list daily expenses: %w", err)
	}
	defer rows.Close()

	var result []*models.DailyExpense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan daily expense: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (r *PostgresExpenseRepo) UpdateExpense(ctx context.Context, e *models.DailyExpense) error {
	err := r.DB.QueryRowContext(ctx, `
		UPDATE daily_expenses SET
			date=$1, diesel_amount=$2, diesel_location=$3, def_amount=$4, def_location=$5,
			other_expense_description=$6, other_expense_amount=$7, other_expense_location=$8,
			total=$9, updated_at=NOW()
		WHERE id=$10 AND user_id=$11
		RETURNING created_at, updated_at
	`, e.Date, e.DieselAmount, e.DieselLocation, e.DefAmount, e.DefLocation,
		e.OtherExpenseDescription, e.OtherExpenseAmount, e.OtherExpenseLocation,
		e.Total, e.ID, e.UserID,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update daily expense: %w", classify(err))
	}
	return nil
}

func (r *PostgresExpenseRepo) DeleteExpense(ctx context.Context, userID, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM daily_expenses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete daily expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ ExpenseRepository = (*PostgresExpenseRepo)(nil)
