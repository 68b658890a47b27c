package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"idealtransport/db/postgres"
	"idealtransport/models"
)

type PostgresBOLRepo struct {
	DB *sql.DB
}

func NewPostgresBOLRepo(db *sql.DB) *PostgresBOLRepo {
	return &PostgresBOLRepo{DB: db}
}

const bolColumns = `id, driver_name, date, work_order_no,
	broker_name, broker_address, broker_phone,
	pickup_name, pickup_address, pickup_city, pickup_state, pickup_zip, pickup_phone,
	delivery_name, delivery_address, delivery_city, delivery_state, delivery_zip, delivery_phone,
	condition_codes, remarks,
	pickup_agent_name, pickup_signature, pickup_date,
	delivery_agent_name, delivery_signature, delivery_date,
	receiver_agent_name, receiver_signature, receiver_date,
	total_amount, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBOL(row rowScanner) (*models.BillOfLading, error) {
	var b models.BillOfLading
	var workOrder sql.NullString
	err := row.Scan(
		&b.ID, &b.DriverName, &b.Date, &workOrder,
		&b.BrokerName, &b.BrokerAddress, &b.BrokerPhone,
		&b.PickupName, &b.PickupAddress, &b.PickupCity, &b.PickupState, &b.PickupZip, &b.PickupPhone,
		&b.DeliveryName, &b.DeliveryAddress, &b.DeliveryCity, &b.DeliveryState, &b.DeliveryZip, &b.DeliveryPhone,
		&b.ConditionCodes, &b.Remarks,
		&b.PickupAgentName, &b.PickupSignature, &b.PickupDate,
		&b.DeliveryAgentName, &b.DeliverySignature, &b.DeliveryDate,
		&b.ReceiverAgentName, &b.ReceiverSignature, &b.ReceiverDate,
		&b.TotalAmount, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.WorkOrderNo = workOrder.String
	return &b, nil
}

// bolArgs lists the writable columns in the order used by insert and update.
func bolArgs(b *models.BillOfLading) []any {
	return []any{
		b.DriverName, b.Date, nullString(b.WorkOrderNo),
		b.BrokerName, b.BrokerAddress, b.BrokerPhone,
		b.PickupName, b.PickupAddress, b.PickupCity, b.PickupState, b.PickupZip, b.PickupPhone,
		b.DeliveryName, b.DeliveryAddress, b.DeliveryCity, b.DeliveryState, b.DeliveryZip, b.DeliveryPhone,
		b.ConditionCodes, b.Remarks,
		b.PickupAgentName, b.PickupSignature, b.PickupDate,
		b.DeliveryAgentName, b.DeliverySignature, b.DeliveryDate,
		b.ReceiverAgentName, b.ReceiverSignature, b.ReceiverDate,
		b.TotalAmount,
	}
}

func insertVehicles(ctx context.Context, tx *sql.Tx, bolID int64, vehicles []models.BOLVehicle) error {
	for i := range vehicles {
		v := &vehicles[i]
		v.BillOfLadingID = bolID
		err := tx.QueryRowContext(ctx, `
			INSERT INTO bol_vehicle(bill_of_lading_id, year, make, model, vin, mileage, price)
			VALUES($1,$2,$3,$4,$5,$6,$7)
			RETURNING id
		`, bolID, v.Year, v.Make, v.Model, v.VIN, v.Mileage, v.Price).Scan(&v.ID)
		if err != nil {
			return fmt.Errorf("insert vehicle: %w", err)
		}
	}
	return nil
}

// loadVehicles fetches the vehicles of every BOL in one query.
func (r *PostgresBOLRepo) loadVehicles(ctx context.Context, bols []*models.BillOfLading) error {
	if len(bols) == 0 {
		return nil
	}
	ids := make([]int64, len(bols))
	for i, b := range bols {
		ids[i] = b.ID
		b.Vehicles = []models.BOLVehicle{}
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, bill_of_lading_id, year, make, model, vin, mileage, price
		FROM bol_vehicle
		WHERE bill_of_lading_id = ANY($1)
		ORDER BY id
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("load vehicles: %w", err)
	}
	defer rows.Close()

	byBOL := make(map[int64][]models.BOLVehicle, len(bols))
	for rows.Next() {
		var v models.BOLVehicle
		if err := rows.Scan(&v.ID, &v.BillOfLadingID, &v.Year, &v.Make, &v.Model, &v.VIN, &v.Mileage, &v.Price); err != nil {
			return fmt.Errorf("scan vehicle: %w", err)
		}
		byBOL[v.BillOfLadingID] = append(byBOL[v.BillOfLadingID], v)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, b := range bols {
		if v, ok := byBOL[b.ID]; ok {
			b.Vehicles = v
		}
	}
	return nil
}

func (r *PostgresBOLRepo) CreateBOL(ctx context.Context, b *models.BillOfLading) error {
	return postgres.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO bill_of_lading(
				driver_name, date, work_order_no,
				broker_name, broker_address, broker_phone,
				pickup_name, pickup_address, pickup_city, pickup_state, pickup_zip, pickup_phone,
				delivery_name, delivery_address, delivery_city, delivery_state, delivery_zip, delivery_phone,
				condition_codes, remarks,
				pickup_agent_name, pickup_signature, pickup_date,
				delivery_agent_name, delivery_signature, delivery_date,
				receiver_agent_name, receiver_signature, receiver_date,
				total_amount
			)
			VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30)
			RETURNING id, created_at
		`, bolArgs(b)...).Scan(&b.ID, &b.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert bill of lading: %w", classify(err))
		}
		return insertVehicles(ctx, tx, b.ID, b.Vehicles)
	})
}

func (r *PostgresBOLRepo) GetBOL(ctx context.Context, id int64) (*models.BillOfLading, error) {
	b, err := scanBOL(r.DB.QueryRowContext(ctx, `SELECT `+bolColumns+` FROM bill_of_lading WHERE id = $1`, id))
	if err != nil {
		return nil, classify(err)
	}
	if err := r.loadVehicles(ctx, []*models.BillOfLading{b}); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *PostgresBOLRepo) GetBOLByWorkOrder(ctx context.Context, workOrderNo string) (*models.BillOfLading, error) {
	b, err := scanBOL(r.DB.QueryRowContext(ctx, `SELECT `+bolColumns+` FROM bill_of_lading WHERE work_order_no = $1`, workOrderNo))
	if err != nil {
		return nil, classify(err)
	}
	return b, nil
}

var bolSortColumn = map[string]string{
	"date":        "date",
	"work_order":  "work_order_no",
	"driver_name": "driver_name",
}

func (r *PostgresBOLRepo) ListBOLs(ctx context.Context, f models.BOLFilter, paginate bool) ([]*models.BillOfLading, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !f.StartDate.IsZero() {
		where = append(where, "date >= "+arg(f.StartDate))
	}
	if !f.EndDate.IsZero() {
		where = append(where, "date <= "+arg(f.EndDate))
	}
	if wo := strings.TrimSpace(f.WorkOrder); wo != "" {
		where = append(where, "work_order_no ILIKE "+arg("%"+escapeLike(wo)+"%"))
	}

	query := `SELECT ` + bolColumns + ` FROM bill_of_lading`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	col, ok := bolSortColumn[f.SortBy]
	if !ok {
		col = "date"
	}
	dir := "DESC"
	if f.SortOrder == "asc" {
		dir = "ASC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s NULLS LAST, id %s", col, dir, dir)

	if paginate {
		query += " LIMIT " + arg(f.Limit) + " OFFSET " + arg(f.Skip)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bills of lading: %w", err)
	}
	defer rows.Close()

	var result []*models.BillOfLading
	for rows.Next() {
		b, err := scanBOL(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill of lading: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Vehicles only for what the caller will actually page through.
	if paginate {
		if err := r.loadVehicles(ctx, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (r *PostgresBOLRepo) LoadVehicles(ctx context.Context, bols []*models.BillOfLading) error {
	return r.loadVehicles(ctx, bols)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *PostgresBOLRepo) WorkOrderTaken(ctx context.Context, workOrderNo string, excludeID int64) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM bill_of_lading WHERE work_order_no = $1 AND id <> $2)
	`, workOrderNo, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check work order: %w", err)
	}
	return exists, nil
}

func (r *PostgresBOLRepo) UpdateBOL(ctx context.Context, b *models.BillOfLading) error {
	return postgres.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		var previous sql.NullString
		err := tx.QueryRowContext(ctx, `SELECT work_order_no FROM bill_of_lading WHERE id = $1 FOR UPDATE`, b.ID).Scan(&previous)
		if err != nil {
			return classify(err)
		}

		args := append(bolArgs(b), b.ID)
		err = tx.QueryRowContext(ctx, `
			UPDATE bill_of_lading SET
				driver_name=$1, date=$2, work_order_no=$3,
				broker_name=$4, broker_address=$5, broker_phone=$6,
				pickup_name=$7, pickup_address=$8, pickup_city=$9, pickup_state=$10, pickup_zip=$11, pickup_phone=$12,
				delivery_name=$13, delivery_address=$14, delivery_city=$15, delivery_state=$16, delivery_zip=$17, delivery_phone=$18,
				condition_codes=$19, remarks=$20,
				pickup_agent_name=$21, pickup_signature=$22, pickup_date=$23,
				delivery_agent_name=$24, delivery_signature=$25, delivery_date=$26,
				receiver_agent_name=$27, receiver_signature=$28, receiver_date=$29,
				total_amount=$30, updated_at=NOW()
			WHERE id=$31
			RETURNING created_at, updated_at
		`, args...).Scan(&b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update bill of lading: %w", classify(err))
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM bol_vehicle WHERE bill_of_lading_id = $1`, b.ID); err != nil {
			return fmt.Errorf("delete vehicles: %w", err)
		}
		if err := insertVehicles(ctx, tx, b.ID, b.Vehicles); err != nil {
			return err
		}

		if previous.String != b.WorkOrderNo {
			if _, err := tx.ExecContext(ctx, `
				UPDATE transactions SET work_order_no = $1, updated_at = NOW() WHERE bol_id = $2
			`, b.WorkOrderNo, b.ID); err != nil {
				return fmt.Errorf("move transactions to work order: %w", err)
			}
		}
		return nil
	})
}

func (r *PostgresBOLRepo) DeleteBOL(ctx context.Context, id int64) error {
	return postgres.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		// Same row lock a payment takes, so no payment can slip in between
		// the count and the delete.
		var workOrder sql.NullString
		err := tx.QueryRowContext(ctx, `SELECT work_order_no FROM bill_of_lading WHERE id = $1 FOR UPDATE`, id).Scan(&workOrder)
		if err != nil {
			return classify(err)
		}

		var count int
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM transactions
			WHERE bol_id = $1 OR ($2 <> '' AND work_order_no = $2)
		`, id, workOrder.String).Scan(&count)
		if err != nil {
			return fmt.Errorf("count transactions: %w", err)
		}
		if count > 0 {
			return &ReferencedError{WorkOrderNo: workOrder.String, Count: count}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM bol_vehicle WHERE bill_of_lading_id = $1`, id); err != nil {
			return fmt.Errorf("delete vehicles: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM bill_of_lading WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete bill of lading: %w", classify(err))
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

var _ BOLRepository = (*PostgresBOLRepo)(nil)
