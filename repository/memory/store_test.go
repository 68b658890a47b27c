package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"idealtransport/models"
	"idealtransport/repository"
)

func (s *Store) lockCount() int {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	return len(s.locks)
}

func TestWorkOrderLocksAreReleased(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	const orders = 20
	for i := 0; i < orders; i++ {
		require.NoError(t, s.CreateBOL(ctx, &models.BillOfLading{
			WorkOrderNo: fmt.Sprintf("WO-%d", i),
			TotalAmount: decimal.NewFromInt(1000),
		}))
	}

	var wg sync.WaitGroup
	for i := 0; i < orders; i++ {
		for j := 0; j < 5; j++ {
			wg.Add(1)
			go func(wo string) {
				defer wg.Done()
				err := s.WithWorkOrderLock(ctx, wo, func(tx repository.LedgerTx) error {
					return tx.InsertTransaction(ctx, &models.Transaction{
						WorkOrderNo:     wo,
						BOLID:           tx.LockedBOL().ID,
						CollectedAmount: decimal.NewFromInt(1),
						UserID:          1,
					})
				})
				require.NoError(t, err)
			}(fmt.Sprintf("WO-%d", i))
		}
	}
	wg.Wait()

	require.Zero(t, s.lockCount())
	sums, err := s.SumCollectedByWorkOrders(ctx, []string{"WO-0", "WO-19"})
	require.NoError(t, err)
	require.True(t, sums["WO-0"].Equal(decimal.NewFromInt(5)))
	require.True(t, sums["WO-19"].Equal(decimal.NewFromInt(5)))
}

func TestWorkOrderLockReleasedOnMissingBOL(t *testing.T) {
	s := NewStore()
	err := s.WithWorkOrderLock(context.Background(), "missing", func(repository.LedgerTx) error { return nil })
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.Zero(t, s.lockCount())
}

func TestWorkOrderLockExcludesWhileHeld(t *testing.T) {
	s := NewStore()
	unlock := s.lockWorkOrder("WO-1")
	require.Equal(t, 1, s.lockCount())

	acquired := make(chan struct{})
	go func() {
		defer s.lockWorkOrder("WO-1")()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held work order lock")
	default:
	}
	unlock()
	<-acquired
}
