package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"idealtransport/models"
	"idealtransport/repository"
	"idealtransport/utils"
)

type BOLService struct {
	repo     repository.BOLRepository
	payments *PaymentEngine
	logger   *slog.Logger
}

func NewBOLService(repo repository.BOLRepository, payments *PaymentEngine, logger *slog.Logger) *BOLService {
	return &BOLService{repo: repo, payments: payments, logger: logger}
}

func bolNotFound(id int64) *Error {
	return notFound("bol_not_found", "Bill of lading %d not found", id)
}

func duplicateWorkOrder(workOrderNo string) *Error {
	return conflict("duplicate_work_order", "Work order number %s already exists", workOrderNo)
}

func checkBOLInput(in *models.BOLInput) error {
	if in.Date.IsZero() {
		return invalidInput("date is required")
	}
	return nil
}

// deriveTotal sums vehicle prices. Unreadable prices count as zero so an
// odd value typed into one row never blocks saving the document.
func (s *BOLService) deriveTotal(b *models.BillOfLading) decimal.Decimal {
	prices := make([]string, len(b.Vehicles))
	for i, v := range b.Vehicles {
		prices[i] = v.Price
	}
	return utils.SumPrices(prices, func(raw string) {
		s.logger.Warn("vehicle price counted as zero",
			slog.String("work_order_no", b.WorkOrderNo),
			slog.String("price", raw))
	})
}

func (s *BOLService) Create(ctx context.Context, in *models.BOLInput) (*models.BillOfLading, error) {
	if err := checkBOLInput(in); err != nil {
		return nil, err
	}
	b := &models.BillOfLading{}
	in.ApplyTo(b)

	if b.WorkOrderNo != "" {
		taken, err := s.repo.WorkOrderTaken(ctx, b.WorkOrderNo, 0)
		if err != nil {
			return nil, fmt.Errorf("bol: %w", err)
		}
		if taken {
			return nil, duplicateWorkOrder(b.WorkOrderNo)
		}
	}
	b.TotalAmount = s.deriveTotal(b)

	if err := s.repo.CreateBOL(ctx, b); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, duplicateWorkOrder(b.WorkOrderNo)
		}
		return nil, fmt.Errorf("bol: create: %w", err)
	}
	b.Annotate(decimal.Zero)

	s.logger.Info("bill of lading created",
		slog.Int64("id", b.ID),
		slog.String("work_order_no", b.WorkOrderNo),
		slog.String("total_amount", b.TotalAmount.StringFixed(2)))
	return b, nil
}

func (s *BOLService) Get(ctx context.Context, id int64) (*models.BillOfLading, error) {
	b, err := s.repo.GetBOL(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, bolNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("bol: get: %w", err)
	}
	collected, err := s.payments.collected(ctx, b.WorkOrderNo)
	if err != nil {
		return nil, err
	}
	b.Annotate(collected)
	return b, nil
}

func matchesStatus(b *models.BillOfLading, status models.PaymentStatusFilter) bool {
	switch status {
	case models.StatusPaid:
		return b.DueAmount.Sign() <= 0
	case models.StatusPending:
		return b.DueAmount.Sign() > 0
	default:
		return true
	}
}

// annotate fills derived payment fields from one batched aggregate.
func (s *BOLService) annotate(ctx context.Context, bols []*models.BillOfLading) error {
	workOrders := make([]string, 0, len(bols))
	for _, b := range bols {
		workOrders = append(workOrders, b.WorkOrderNo)
	}
	sums, err := s.payments.ComputeStatusBatch(ctx, workOrders)
	if err != nil {
		return err
	}
	for _, b := range bols {
		b.Annotate(sums[b.WorkOrderNo])
	}
	return nil
}

// List returns annotated BOLs. Paid/pending filtering depends on the
// aggregate, so for those the page is cut after filtering.
func (s *BOLService) List(ctx context.Context, f models.BOLFilter) ([]*models.BillOfLading, error) {
	if err := f.Normalize(); err != nil {
		return nil, invalidInput("%s", err.Error())
	}
	paginate := f.PaymentStatus == models.StatusAll

	bols, err := s.repo.ListBOLs(ctx, f, paginate)
	if err != nil {
		return nil, fmt.Errorf("bol: list: %w", err)
	}
	if err := s.annotate(ctx, bols); err != nil {
		return nil, err
	}

	if !paginate {
		filtered := bols[:0]
		for _, b := range bols {
			if matchesStatus(b, f.PaymentStatus) {
				filtered = append(filtered, b)
			}
		}
		bols = pageOf(filtered, f.Skip, f.Limit)
		if err := s.repo.LoadVehicles(ctx, bols); err != nil {
			return nil, fmt.Errorf("bol: list: %w", err)
		}
	}
	if bols == nil {
		bols = []*models.BillOfLading{}
	}
	return bols, nil
}

func pageOf[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return nil
	}
	items = items[skip:]
	if limit < len(items) {
		items = items[:limit]
	}
	return items
}

// ListPending returns work orders that still have money due, oldest first.
func (s *BOLService) ListPending(ctx context.Context) ([]*models.PendingWorkOrder, error) {
	bols, err := s.repo.ListBOLs(ctx, models.BOLFilter{SortBy: "date", SortOrder: "asc"}, false)
	if err != nil {
		return nil, fmt.Errorf("bol: pending: %w", err)
	}
	if err := s.annotate(ctx, bols); err != nil {
		return nil, err
	}

	out := []*models.PendingWorkOrder{}
	for _, b := range bols {
		if b.WorkOrderNo == "" || b.DueAmount.Sign() <= 0 {
			continue
		}
		out = append(out, &models.PendingWorkOrder{
			ID:             b.ID,
			WorkOrderNo:    b.WorkOrderNo,
			DriverName:     b.DriverName,
			Date:           b.Date,
			TotalAmount:    b.TotalAmount,
			TotalCollected: *b.TotalCollected,
			DueAmount:      *b.DueAmount,
		})
	}
	return out, nil
}

func (s *BOLService) Update(ctx context.Context, id int64, in *models.BOLInput) (*models.BillOfLading, error) {
	if err := checkBOLInput(in); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetBOL(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, bolNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("bol: update: %w", err)
	}

	b := &models.BillOfLading{ID: id}
	in.ApplyTo(b)

	if b.WorkOrderNo != existing.WorkOrderNo {
		if b.WorkOrderNo != "" {
			taken, err := s.repo.WorkOrderTaken(ctx, b.WorkOrderNo, id)
			if err != nil {
				return nil, fmt.Errorf("bol: %w", err)
			}
			if taken {
				return nil, duplicateWorkOrder(b.WorkOrderNo)
			}
		} else {
			collected, err := s.payments.collected(ctx, existing.WorkOrderNo)
			if err != nil {
				return nil, err
			}
			if collected.Sign() > 0 {
				return nil, invalid("work_order_required",
					"Work order number cannot be removed while transactions reference %s", existing.WorkOrderNo)
			}
		}
	}
	b.TotalAmount = s.deriveTotal(b)

	if err := s.repo.UpdateBOL(ctx, b); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, bolNotFound(id)
		case errors.Is(err, repository.ErrDuplicate):
			return nil, duplicateWorkOrder(b.WorkOrderNo)
		}
		return nil, fmt.Errorf("bol: update: %w", err)
	}

	collected, err := s.payments.collected(ctx, b.WorkOrderNo)
	if err != nil {
		return nil, err
	}
	b.Annotate(collected)
	return b, nil
}

func (s *BOLService) Delete(ctx context.Context, id int64) error {
	err := s.repo.DeleteBOL(ctx, id)
	var ref *repository.ReferencedError
	switch {
	case err == nil:
		s.logger.Info("bill of lading deleted", slog.Int64("id", id))
		return nil
	case errors.As(err, &ref):
		return hasAssociatedTransactions(ref.WorkOrderNo, ref.Count)
	case errors.Is(err, repository.ErrNotFound):
		return bolNotFound(id)
	default:
		return fmt.Errorf("bol: delete: %w", err)
	}
}

// PaymentStatus reports the payment status of a work order.
func (s *BOLService) PaymentStatus(ctx context.Context, workOrderNo string) (*models.PaymentStatus, error) {
	return s.payments.ComputeStatus(ctx, workOrderNo)
}
