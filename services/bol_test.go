package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"idealtransport/models"
)

func TestCreateBOLDerivesTotal(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.createBOL(t, "WO-100", "100.00", "$50", "abc")

	requireDecimal(t, "150", b.TotalAmount)
	require.Len(t, b.Vehicles, 3)
	requireDecimal(t, "0", *b.TotalCollected)
	requireDecimal(t, "150", *b.DueAmount)

	got, err := env.bols.Get(context.Background(), b.ID)
	require.NoError(t, err)
	requireDecimal(t, "150", got.TotalAmount)
	require.Equal(t, "abc", got.Vehicles[2].Price)
}

func TestCreateBOLCoercesOutOfRangePrices(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.createBOL(t, "WO-BIG", "99999999999", "1e99999999", "100")

	requireDecimal(t, "100", b.TotalAmount)
	require.Equal(t, "99999999999", b.Vehicles[0].Price)
}

func TestCreateBOLRequiresDate(t *testing.T) {
	env := newTestEnv(t, nil)
	in := bolInput("WO-1", "10")
	in.Date = models.Date{}
	_, err := env.bols.Create(context.Background(), in)
	requireKind(t, err, KindValidation, "invalid_input")
}

func TestCreateBOLDuplicateWorkOrder(t *testing.T) {
	env := newTestEnv(t, nil)
	env.createBOL(t, "WO-DUP", "10")

	_, err := env.bols.Create(context.Background(), bolInput(" WO-DUP ", "20"))
	requireKind(t, err, KindConflict, "duplicate_work_order")

	// BOLs without a work order never collide.
	env.createBOL(t, "")
	env.createBOL(t, "")
}

func TestGetBOLNotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.bols.Get(context.Background(), 404)
	requireKind(t, err, KindNotFound, "bol_not_found")
}

func TestDeleteBOL(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	free := env.createBOL(t, "WO-FREE", "10")
	require.NoError(t, env.bols.Delete(ctx, free.ID))
	_, err := env.bols.Get(ctx, free.ID)
	requireKind(t, err, KindNotFound, "bol_not_found")

	paid := env.createBOL(t, "WO-PAID", "100")
	env.mustPay(t, 1, "WO-PAID", "10")
	env.mustPay(t, 2, "WO-PAID", "10")
	err = env.bols.Delete(ctx, paid.ID)
	e := requireKind(t, err, KindValidation, "has_associated_transactions")
	require.Equal(t, 2, e.TransactionCount)

	_, err = env.bols.Get(ctx, paid.ID)
	require.NoError(t, err)

	requireKind(t, env.bols.Delete(ctx, 999), KindNotFound, "bol_not_found")
}

func TestUpdateBOLRecomputesTotal(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	b := env.createBOL(t, "WO-U", "100")
	env.mustPay(t, 1, "WO-U", "40")

	updated, err := env.bols.Update(ctx, b.ID, bolInput("WO-U", "100", "1,000.50"))
	require.NoError(t, err)
	requireDecimal(t, "1100.5", updated.TotalAmount)
	requireDecimal(t, "40", *updated.TotalCollected)
	requireDecimal(t, "1060.5", *updated.DueAmount)
	require.NotNil(t, updated.UpdatedAt)
}

func TestUpdateBOLRenameMovesPayments(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	b := env.createBOL(t, "WO-OLD", "100")
	env.mustPay(t, 1, "WO-OLD", "30")

	_, err := env.bols.Update(ctx, b.ID, bolInput("WO-NEW", "100"))
	require.NoError(t, err)

	status, err := env.payments.ComputeStatus(ctx, "WO-NEW")
	require.NoError(t, err)
	requireDecimal(t, "30", status.TotalCollected)

	_, err = env.payments.ComputeStatus(ctx, "WO-OLD")
	requireKind(t, err, KindNotFound, "work_order_not_found")
}

func TestUpdateBOLWorkOrderRules(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	a := env.createBOL(t, "WO-A", "100")
	env.createBOL(t, "WO-B", "100")

	_, err := env.bols.Update(ctx, a.ID, bolInput("WO-B", "100"))
	requireKind(t, err, KindConflict, "duplicate_work_order")

	// Keeping its own work order is not a duplicate.
	_, err = env.bols.Update(ctx, a.ID, bolInput("WO-A", "120"))
	require.NoError(t, err)

	env.mustPay(t, 1, "WO-A", "5")
	_, err = env.bols.Update(ctx, a.ID, bolInput("", "120"))
	requireKind(t, err, KindValidation, "work_order_required")

	_, err = env.bols.Update(ctx, 999, bolInput("WO-Z"))
	requireKind(t, err, KindNotFound, "bol_not_found")
}

func TestListBOLsPaymentStatusFilter(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.createBOL(t, "WO-1", "100")
	env.createBOL(t, "WO-2", "100")
	env.createBOL(t, "WO-3", "50")
	env.createBOL(t, "WO-4")
	env.createBOL(t, "", "75")
	env.mustPay(t, 1, "WO-1", "100")
	env.mustPay(t, 1, "WO-2", "60")

	all, err := env.bols.List(ctx, models.BOLFilter{})
	require.NoError(t, err)
	require.Len(t, all, 5)

	wantPaid := map[string]bool{}
	for _, b := range all {
		due := models.DueAmount(b.TotalAmount, *b.TotalCollected)
		if due.Sign() <= 0 {
			wantPaid[b.WorkOrderNo] = true
		}
	}

	paid, err := env.bols.List(ctx, models.BOLFilter{PaymentStatus: models.StatusPaid})
	require.NoError(t, err)
	gotPaid := map[string]bool{}
	for _, b := range paid {
		gotPaid[b.WorkOrderNo] = true
		if b.WorkOrderNo == "WO-1" {
			require.Len(t, b.Vehicles, 1)
		}
	}
	require.Equal(t, wantPaid, gotPaid)

	pending, err := env.bols.List(ctx, models.BOLFilter{PaymentStatus: models.StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, len(all)-len(paid))
	for _, b := range pending {
		require.True(t, b.DueAmount.IsPositive())
	}
}

func TestListBOLsPagingAndValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	for _, wo := range []string{"WO-1", "WO-2", "WO-3"} {
		env.createBOL(t, wo, "10")
	}

	page, err := env.bols.List(ctx, models.BOLFilter{SortBy: "work_order", SortOrder: "asc", Skip: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "WO-2", page[0].WorkOrderNo)

	page, err = env.bols.List(ctx, models.BOLFilter{Skip: 10})
	require.NoError(t, err)
	require.Empty(t, page)
	require.NotNil(t, page)

	filtered, err := env.bols.List(ctx, models.BOLFilter{WorkOrder: "wo-3"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)

	_, err = env.bols.List(ctx, models.BOLFilter{Limit: models.MaxBOLLimit + 1})
	requireKind(t, err, KindValidation, "invalid_input")
	_, err = env.bols.List(ctx, models.BOLFilter{SortBy: "price"})
	requireKind(t, err, KindValidation, "invalid_input")
	_, err = env.bols.List(ctx, models.BOLFilter{PaymentStatus: "overdue"})
	requireKind(t, err, KindValidation, "invalid_input")
}

func TestListPending(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.createBOL(t, "WO-DONE", "20")
	env.createBOL(t, "WO-OPEN", "100")
	env.createBOL(t, "", "100")
	env.mustPay(t, 1, "WO-DONE", "20")
	env.mustPay(t, 1, "WO-OPEN", "25")

	pending, err := env.bols.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "WO-OPEN", pending[0].WorkOrderNo)
	requireDecimal(t, "75", pending[0].DueAmount)
	requireDecimal(t, "25", pending[0].TotalCollected)
}
