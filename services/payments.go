package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/shopspring/decimal"
	"github.com/zeebo/blake3"
	"golang.org/x/sync/singleflight"

	"idealtransport/cache"
	"idealtransport/metrics"
	"idealtransport/models"
	"idealtransport/repository"
)

// BOLLookup resolves a work order to its bill of lading.
type BOLLookup interface {
	GetBOLByWorkOrder(ctx context.Context, workOrderNo string) (*models.BillOfLading, error)
}

// CollectedSums aggregates collected payments per work order.
type CollectedSums interface {
	SumCollected(ctx context.Context, workOrderNo string) (decimal.Decimal, error)
	SumCollectedByWorkOrders(ctx context.Context, workOrderNos []string) (map[string]decimal.Decimal, error)
}

// BalanceReader is a locked view of one work order's balance.
type BalanceReader interface {
	LockedBOL() *models.BillOfLading
	SumCollected(ctx context.Context, workOrderNo string) (decimal.Decimal, error)
}

const (
	batchKeyPrefix    = "payments:collected:"
	batchQueryTimeout = 15 * time.Second
)

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	if cborEnc, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic("services: cbor encoder: " + err.Error())
	}
	if cborDec, err = (cbor.DecOptions{}).DecMode(); err != nil {
		panic("services: cbor decoder: " + err.Error())
	}
}

// PaymentEngine ties payments back to bill of lading totals.
type PaymentEngine struct {
	bols   BOLLookup
	sums   CollectedSums
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
	stats  *metrics.Metrics

	group singleflight.Group
}

func NewPaymentEngine(bols BOLLookup, sums CollectedSums, c cache.Cache, ttl time.Duration, logger *slog.Logger) *PaymentEngine {
	if c == nil {
		c = cache.Noop{}
	}
	return &PaymentEngine{bols: bols, sums: sums, cache: c, ttl: ttl, logger: logger}
}

// WithMetrics makes the engine and the services built on it report to m.
func (e *PaymentEngine) WithMetrics(m *metrics.Metrics) *PaymentEngine {
	e.stats = m
	return e
}

// ComputeStatus reads the current status of a work order straight from the
// store.
func (e *PaymentEngine) ComputeStatus(ctx context.Context, workOrderNo string) (*models.PaymentStatus, error) {
	bol, err := e.bols.GetBOLByWorkOrder(ctx, workOrderNo)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, workOrderNotFound(workOrderNo)
	}
	if err != nil {
		return nil, fmt.Errorf("payments: load work order: %w", err)
	}

	collected, err := e.sums.SumCollected(ctx, workOrderNo)
	if err != nil {
		return nil, fmt.Errorf("payments: %w", err)
	}
	return models.NewPaymentStatus(workOrderNo, bol.TotalAmount, collected), nil
}

// ComputeStatusBatch returns the collected total of every given work order
// using one aggregate query. Results are cached for the engine's TTL under
// a key derived from the set, so reads can lag writes by that window.
func (e *PaymentEngine) ComputeStatusBatch(ctx context.Context, workOrderNos []string) (map[string]decimal.Decimal, error) {
	set := workOrderSet(workOrderNos)
	if len(set) == 0 {
		return map[string]decimal.Decimal{}, nil
	}
	key := batchKey(set)

	raw, err := e.cache.Get(ctx, key)
	switch {
	case err == nil:
		sums, decodeErr := decodeSums(raw)
		if decodeErr == nil {
			e.stats.BatchLookup(true)
			return sums, nil
		}
		e.logger.Warn("discarding unreadable payment cache entry", slog.String("key", key), slog.Any("error", decodeErr))
	case !errors.Is(err, cache.ErrMiss):
		e.logger.Warn("payment cache read failed", slog.Any("error", err))
	}
	e.stats.BatchLookup(false)

	v, err, _ := e.group.Do(key, func() (any, error) {
		// Shared by every caller waiting on key, so one caller going away
		// must not cancel it for the rest.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), batchQueryTimeout)
		defer cancel()
		sums, err := e.sums.SumCollectedByWorkOrders(ctx, set)
		if err != nil {
			return nil, err
		}
		if raw, err := encodeSums(sums); err != nil {
			e.logger.Warn("payment cache encode failed", slog.Any("error", err))
		} else if err := e.cache.Set(ctx, key, raw, e.ttl); err != nil {
			e.logger.Warn("payment cache write failed", slog.Any("error", err))
		}
		return sums, nil
	})
	if err != nil {
		return nil, fmt.Errorf("payments: batch aggregate: %w", err)
	}

	shared := v.(map[string]decimal.Decimal)
	out := make(map[string]decimal.Decimal, len(shared))
	for k, d := range shared {
		out[k] = d
	}
	return out, nil
}

// ValidatePayment checks a new payment against the locked balance and
// returns the amount still due after it.
func (e *PaymentEngine) ValidatePayment(ctx context.Context, balance BalanceReader, workOrderNo string, proposed decimal.Decimal) (decimal.Decimal, error) {
	return e.validate(ctx, balance, workOrderNo, decimal.Zero, proposed)
}

// ValidateReplacement is ValidatePayment for an edited payment whose
// previous amount is already part of the collected sum.
func (e *PaymentEngine) ValidateReplacement(ctx context.Context, balance BalanceReader, workOrderNo string, previous, proposed decimal.Decimal) (decimal.Decimal, error) {
	return e.validate(ctx, balance, workOrderNo, previous, proposed)
}

func (e *PaymentEngine) validate(ctx context.Context, balance BalanceReader, workOrderNo string, previous, proposed decimal.Decimal) (decimal.Decimal, error) {
	collected, err := balance.SumCollected(ctx, workOrderNo)
	if err != nil {
		return decimal.Zero, fmt.Errorf("payments: %w", err)
	}
	return settle(balance.LockedBOL().TotalAmount, collected.Sub(previous), proposed)
}

// recordPayment reports the outcome of a payment write.
func (e *PaymentEngine) recordPayment(operation string, err error) {
	if err == nil {
		e.stats.Payment(operation, metrics.PaymentRecorded)
		return
	}
	if de, ok := AsError(err); ok && de.Code == "overpayment" {
		e.stats.Payment(operation, metrics.PaymentOverpayment)
		return
	}
	e.stats.Payment(operation, metrics.PaymentRejected)
}

// settle applies the running-balance rule: a payment may not take the
// collected sum above the total.
func settle(total, collected, proposed decimal.Decimal) (decimal.Decimal, error) {
	remaining := models.DueAmount(total, collected)
	if proposed.GreaterThan(remaining) {
		return decimal.Zero, overpayment(proposed, remaining)
	}
	return remaining.Sub(proposed), nil
}

// collected is the fresh sum for one work order; BOLs without a work order
// cannot carry payments.
func (e *PaymentEngine) collected(ctx context.Context, workOrderNo string) (decimal.Decimal, error) {
	if workOrderNo == "" {
		return decimal.Zero, nil
	}
	sum, err := e.sums.SumCollected(ctx, workOrderNo)
	if err != nil {
		return decimal.Zero, fmt.Errorf("payments: %w", err)
	}
	return sum, nil
}

func workOrderSet(workOrderNos []string) []string {
	seen := make(map[string]struct{}, len(workOrderNos))
	set := make([]string, 0, len(workOrderNos))
	for _, wo := range workOrderNos {
		if wo == "" {
			continue
		}
		if _, ok := seen[wo]; ok {
			continue
		}
		seen[wo] = struct{}{}
		set = append(set, wo)
	}
	sort.Strings(set)
	return set
}

func batchKey(set []string) string {
	sum := blake3.Sum256([]byte(strings.Join(set, "\x00")))
	return batchKeyPrefix + hex.EncodeToString(sum[:])
}

func encodeSums(sums map[string]decimal.Decimal) ([]byte, error) {
	wire := make(map[string]string, len(sums))
	for wo, d := range sums {
		wire[wo] = d.String()
	}
	return cborEnc.Marshal(wire)
}

func decodeSums(raw []byte) (map[string]decimal.Decimal, error) {
	var wire map[string]string
	if err := cborDec.Unmarshal(raw, &wire); err != nil {
		return nil, err
	}
	sums := make(map[string]decimal.Decimal, len(wire))
	for wo, s := range wire {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("work order %s: %w", wo, err)
		}
		sums[wo] = d
	}
	return sums, nil
}
