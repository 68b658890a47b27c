package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"idealtransport/db/postgres"
	"idealtransport/models"
)

type PostgresTransactionRepo struct {
	DB *sql.DB
}

func NewPostgresTransactionRepo(db *sql.DB) *PostgresTransactionRepo {
	return &PostgresTransactionRepo{DB: db}
}

const transactionColumns = `t.id, t.date, t.work_order_no, t.bol_id, t.collected_amount, t.due_amount,
	t.pickup_location, t.dropoff_location, t.payment_type, t.comments, t.user_id, t.created_at, t.updated_at`

func scanTransaction(row rowScanner, extra ...any) (*models.Transaction, error) {
	var t models.Transaction
	dest := []any{
		&t.ID, &t.Date, &t.WorkOrderNo, &t.BOLID, &t.CollectedAmount, &t.DueAmount,
		&t.PickupLocation, &t.DropoffLocation, &t.PaymentType, &t.Comments, &t.UserID, &t.CreatedAt, &t.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &t, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func sumCollected(ctx context.Context, q querier, workOrderNo string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(collected_amount), 0) FROM transactions WHERE work_order_no = $1
	`, workOrderNo).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum collected: %w", err)
	}
	return sum, nil
}

func (r *PostgresTransactionRepo) SumCollected(ctx context.Context, workOrderNo string) (decimal.Decimal, error) {
	return sumCollected(ctx, r.DB, workOrderNo)
}

func (r *PostgresTransactionRepo) SumCollectedByWorkOrders(ctx context.Context, workOrderNos []string) (map[string]decimal.Decimal, error) {
	result := make(map[string]decimal.Decimal, len(workOrderNos))
	for _, wo := range workOrderNos {
		result[wo] = decimal.Zero
	}
	if len(workOrderNos) == 0 {
		return result, nil
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT work_order_no, SUM(collected_amount)
		FROM transactions
		WHERE work_order_no = ANY($1)
		GROUP BY work_order_no
	`, pq.Array(workOrderNos))
	if err != nil {
		return nil, fmt.Errorf("sum collected by work order: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var wo string
		var sum decimal.Decimal
		if err := rows.Scan(&wo, &sum); err != nil {
			return nil, fmt.Errorf("scan collected sum: %w", err)
		}
		result[wo] = sum
	}
	return result, rows.Err()
}

func (r *PostgresTransactionRepo) WithWorkOrderLock(ctx context.Context, workOrderNo string, fn func(LedgerTx) error) error {
	return postgres.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		bol, err := scanBOL(tx.QueryRowContext(ctx, `
			SELECT `+bolColumns+` FROM bill_of_lading WHERE work_order_no = $1 FOR UPDATE
		`, workOrderNo))
		if err != nil {
			return classify(err)
		}
		return fn(&pgLedgerTx{tx: tx, bol: bol})
	})
}

type pgLedgerTx struct {
	tx  *sql.Tx
	bol *models.BillOfLading
}

func (l *pgLedgerTx) LockedBOL() *models.BillOfLading { return l.bol }

func (l *pgLedgerTx) SumCollected(ctx context.Context, workOrderNo string) (decimal.Decimal, error) {
	return sumCollected(ctx, l.tx, workOrderNo)
}

func (l *pgLedgerTx) GetTransaction(ctx context.Context, userID, id int64) (*models.Transaction, error) {
	t, err := scanTransaction(l.tx.QueryRowContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions t WHERE t.id = $1 AND t.user_id = $2 FOR UPDATE
	`, id, userID))
	if err != nil {
		return nil, classify(err)
	}
	return t, nil
}

func (l *pgLedgerTx) InsertTransaction(ctx context.Context, t *models.Transaction) error {
	err := l.tx.QueryRowContext(ctx, `
		INSERT INTO transactions(date, work_order_no, bol_id, collected_amount, due_amount,
			pickup_location, dropoff_location, payment_type, comments, user_id)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id, created_at
	`, t.Date, t.WorkOrderNo, t.BOLID, t.CollectedAmount, t.DueAmount,
		t.PickupLocation, t.DropoffLocation, t.PaymentType, t.Comments, t.UserID,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", classify(err))
	}
	return nil
}

func (l *pgLedgerTx) UpdateTransaction(ctx context.Context, t *models.Transaction) error {
	err := l.tx.QueryRowContext(ctx, `
		UPDATE transactions SET
			date=$1, collected_amount=$2, due_amount=$3, pickup_location=$4,
			dropoff_location=$5, payment_type=$6, comments=$7, updated_at=NOW()
		WHERE id=$8 AND user_id=$9
		RETURNING updated_at
	`, t.Date, t.CollectedAmount, t.DueAmount, t.PickupLocation,
		t.DropoffLocation, t.PaymentType, t.Comments, t.ID, t.UserID,
	).Scan(&t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update transaction: %w", classify(err))
	}
	return nil
}

func (r *PostgresTransactionRepo) GetTransaction(ctx context.Context, userID, id int64) (*models.Transaction, error) {
	t, err := scanTransaction(r.DB.QueryRowContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions t WHERE t.id = $1 AND t.user_id = $2
	`, id, userID))
	if err != nil {
		return nil, classify(err)
	}
	return t, nil
}

func (r *PostgresTransactionRepo) ListTransactions(ctx context.Context, userID int64, f models.TransactionFilter) ([]*models.TransactionListItem, error) {
	where := []string{"t.user_id = $1"}
	args := []any{userID}
	if !f.StartDate.IsZero() {
		args = append(args, f.StartDate)
		where = append(where, fmt.Sprintf("t.date >= $%d", len(args)))
	}
	if !f.EndDate.IsZero() {
		args = append(args, f.EndDate)
		where = append(where, fmt.Sprintf("t.date <= $%d", len(args)))
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+transactionColumns+`, b.broker_name, b.broker_address, b.broker_phone
		FROM transactions t
		JOIN bill_of_lading b ON b.id = t.bol_id
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY t.date DESC, t.id DESC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var result []*models.TransactionListItem
	for rows.Next() {
		item := &models.TransactionListItem{}
		t, err := scanTransaction(rows, &item.BrokerName, &item.BrokerAddress, &item.BrokerPhone)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		item.Transaction = *t
		result = append(result, item)
	}
	return result, rows.Err()
}

func (r *PostgresTransactionRepo) ListByWorkOrder(ctx context.Context, workOrderNo string, userID int64) ([]*models.Transaction, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		WHERE t.work_order_no = $1 AND t.user_id = $2
		ORDER BY t.date ASC, t.id ASC
	`, workOrderNo, userID)
	if err != nil {
		return nil, fmt.Errorf("list work order transactions: %w", err)
	}
	defer rows.Close()

	var result []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (r *PostgresTransactionRepo) DeleteTransaction(ctx context.Context, userID, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ TransactionRepository = (*PostgresTransactionRepo)(nil)
