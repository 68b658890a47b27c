package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"idealtransport/models"
	"idealtransport/repository"
	"idealtransport/utils"
)

// LedgerService records payments against work orders. Every read and
// write is scoped to the calling user.
type LedgerService struct {
	repo     repository.TransactionRepository
	payments *PaymentEngine
	logger   *slog.Logger
}

func NewLedgerService(repo repository.TransactionRepository, payments *PaymentEngine, logger *slog.Logger) *LedgerService {
	return &LedgerService{repo: repo, payments: payments, logger: logger}
}

func transactionNotFound(id int64) *Error {
	return notFound("transaction_not_found", "Transaction %d not found", id)
}

func checkAmount(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return invalidInput("collected_amount must be greater than zero")
	}
	if !utils.AmountInRange(amount) {
		return amountOutOfRange("collected_amount")
	}
	if !amount.Equal(amount.Round(2)) {
		return invalidInput("collected_amount must have at most two decimal places")
	}
	return nil
}

func parsePaymentType(raw string) (models.PaymentType, error) {
	pt, ok := models.ParsePaymentType(raw)
	if !ok {
		return "", invalid("invalid_payment_type",
			"payment_type %q is not one of cash, check, electronic_transfer", raw)
	}
	return pt, nil
}

func (s *LedgerService) Create(ctx context.Context, userID int64, in *models.TransactionInput) (*models.Transaction, error) {
	workOrderNo := strings.TrimSpace(in.WorkOrderNo)
	if workOrderNo == "" {
		return nil, invalidInput("work_order_no is required")
	}
	if in.Date.IsZero() {
		return nil, invalidInput("date is required")
	}
	if err := checkAmount(in.CollectedAmount); err != nil {
		return nil, err
	}
	paymentType, err := parsePaymentType(in.PaymentType)
	if err != nil {
		return nil, err
	}

	var created *models.Transaction
	err = s.repo.WithWorkOrderLock(ctx, workOrderNo, func(tx repository.LedgerTx) error {
		due, err := s.payments.ValidatePayment(ctx, tx, workOrderNo, in.CollectedAmount)
		if err != nil {
			return err
		}
		t := &models.Transaction{
			Date:            in.Date,
			WorkOrderNo:     workOrderNo,
			BOLID:           tx.LockedBOL().ID,
			CollectedAmount: in.CollectedAmount,
			DueAmount:       due,
			PickupLocation:  in.PickupLocation,
			DropoffLocation: in.DropoffLocation,
			PaymentType:     paymentType,
			Comments:        in.Comments,
			UserID:          userID,
		}
		if err := tx.InsertTransaction(ctx, t); err != nil {
			return err
		}
		created = t
		return nil
	})
	s.payments.recordPayment("create", err)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, workOrderNotFound(workOrderNo)
		}
		if _, ok := AsError(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("ledger: create: %w", err)
	}

	s.logger.Info("payment recorded",
		slog.Int64("id", created.ID),
		slog.String("work_order_no", workOrderNo),
		slog.String("collected_amount", created.CollectedAmount.StringFixed(2)),
		slog.String("due_amount", created.DueAmount.StringFixed(2)),
		slog.Int64("user_id", userID))
	return created, nil
}

func (s *LedgerService) Get(ctx context.Context, userID, id int64) (*models.Transaction, error) {
	t, err := s.repo.GetTransaction(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, transactionNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: get: %w", err)
	}
	return t, nil
}

func (s *LedgerService) List(ctx context.Context, userID int64, f models.TransactionFilter) ([]*models.TransactionListItem, error) {
	items, err := s.repo.ListTransactions(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("ledger: list: %w", err)
	}
	if items == nil {
		items = []*models.TransactionListItem{}
	}
	return items, nil
}

func (s *LedgerService) ListByWorkOrder(ctx context.Context, workOrderNo string, userID int64) ([]*models.Transaction, error) {
	if _, err := s.payments.bols.GetBOLByWorkOrder(ctx, workOrderNo); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, workOrderNotFound(workOrderNo)
		}
		return nil, fmt.Errorf("ledger: %w", err)
	}
	list, err := s.repo.ListByWorkOrder(ctx, workOrderNo, userID)
	if err != nil {
		return nil, fmt.Errorf("ledger: list work order: %w", err)
	}
	if list == nil {
		list = []*models.Transaction{}
	}
	return list, nil
}

// Update applies the allow-listed changes. An amount change is checked
// against the balance with this payment's old amount taken out, under the
// same work order lock as Create.
func (s *LedgerService) Update(ctx context.Context, userID, id int64, upd *models.TransactionUpdate) (*models.Transaction, error) {
	if upd.CollectedAmount != nil {
		if err := checkAmount(*upd.CollectedAmount); err != nil {
			return nil, err
		}
	}
	var paymentType models.PaymentType
	if upd.PaymentType != nil {
		pt, err := parsePaymentType(*upd.PaymentType)
		if err != nil {
			return nil, err
		}
		paymentType = pt
	}
	if upd.Date != nil && upd.Date.IsZero() {
		return nil, invalidInput("date cannot be cleared")
	}

	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	var updated *models.Transaction
	err = s.repo.WithWorkOrderLock(ctx, existing.WorkOrderNo, func(tx repository.LedgerTx) error {
		current, err := tx.GetTransaction(ctx, userID, id)
		if errors.Is(err, repository.ErrNotFound) {
			return transactionNotFound(id)
		}
		if err != nil {
			return err
		}
		if current.WorkOrderNo != tx.LockedBOL().WorkOrderNo {
			return conflict("concurrent_update", "Transaction %d moved to another work order, retry", id)
		}

		if upd.Date != nil {
			current.Date = *upd.Date
		}
		if upd.PickupLocation != nil {
			current.PickupLocation = *upd.PickupLocation
		}
		if upd.DropoffLocation != nil {
			current.DropoffLocation = *upd.DropoffLocation
		}
		if upd.PaymentType != nil {
			current.PaymentType = paymentType
		}
		if upd.Comments != nil {
			current.Comments = *upd.Comments
		}
		if upd.CollectedAmount != nil && !upd.CollectedAmount.Equal(current.CollectedAmount) {
			due, err := s.payments.ValidateReplacement(ctx, tx, current.WorkOrderNo, current.CollectedAmount, *upd.CollectedAmount)
			if err != nil {
				return err
			}
			current.CollectedAmount = *upd.CollectedAmount
			current.DueAmount = due
		}

		if err := tx.UpdateTransaction(ctx, current); err != nil {
			return err
		}
		updated = current
		return nil
	})
	s.payments.recordPayment("update", err)
	if err != nil {
		if _, ok := AsError(err); ok {
			return nil, err
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, transactionNotFound(id)
		}
		return nil, fmt.Errorf("ledger: update: %w", err)
	}
	return updated, nil
}

func (s *LedgerService) Delete(ctx context.Context, userID, id int64) error {
	err := s.repo.DeleteTransaction(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return transactionNotFound(id)
	}
	if err != nil {
		return fmt.Errorf("ledger: delete: %w", err)
	}
	s.logger.Info("payment deleted", slog.Int64("id", id), slog.Int64("user_id", userID))
	return nil
}

// Status reports the payment status of a work order.
func (s *LedgerService) Status(ctx context.Context, workOrderNo string) (*models.PaymentStatus, error) {
	return s.payments.ComputeStatus(ctx, workOrderNo)
}
