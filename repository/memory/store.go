// Package memory is an in-process implementation of every repository. It
// backs DB_TYPE=memory for local runs and the service and handler tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"idealtransport/models"
	"idealtransport/repository"
)

type Store struct {
	mu       sync.RWMutex
	seq      int64
	bols     map[int64]*models.BillOfLading
	txns     map[int64]*models.Transaction
	users    map[int64]*models.User
	expenses map[int64]*models.DailyExpense

	locksMu sync.Mutex
	locks   map[string]*workOrderLock

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		bols:     make(map[int64]*models.BillOfLading),
		txns:     make(map[int64]*models.Transaction),
		users:    make(map[int64]*models.User),
		expenses: make(map[int64]*models.DailyExpense),
		locks:    make(map[string]*workOrderLock),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var (
	_ repository.BOLRepository         = (*Store)(nil)
	_ repository.TransactionRepository = (*Store)(nil)
	_ repository.UserRepository        = (*Store)(nil)
	_ repository.ExpenseRepository     = (*Store)(nil)
)

// Ping lets the store stand in for a database connection in health checks.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

// workOrderLock plays the part of the BOL row lock. Entries live only while
// some caller holds or waits on them.
type workOrderLock struct {
	mu   sync.Mutex
	refs int
}

func (s *Store) lockWorkOrder(workOrderNo string) (unlock func()) {
	s.locksMu.Lock()
	l, ok := s.locks[workOrderNo]
	if !ok {
		l = &workOrderLock{}
		s.locks[workOrderNo] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, workOrderNo)
		}
		s.locksMu.Unlock()
	}
}

func cloneBOL(b *models.BillOfLading) *models.BillOfLading {
	c := *b
	c.Vehicles = append([]models.BOLVehicle{}, b.Vehicles...)
	c.ConditionCodes = append(models.ConditionCodes{}, b.ConditionCodes...)
	c.TotalCollected, c.DueAmount = nil, nil
	return &c
}

func (s *Store) bolByWorkOrder(workOrderNo string) *models.BillOfLading {
	if workOrderNo == "" {
		return nil
	}
	for _, b := range s.bols {
		if b.WorkOrderNo == workOrderNo {
			return b
		}
	}
	return nil
}

// ---- bills of lading ----

func (s *Store) CreateBOL(_ context.Context, b *models.BillOfLading) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bolByWorkOrder(b.WorkOrderNo) != nil {
		return repository.ErrDuplicate
	}
	b.ID = s.nextID()
	b.CreatedAt = s.now()
	for i := range b.Vehicles {
		b.Vehicles[i].ID = s.nextID()
		b.Vehicles[i].BillOfLadingID = b.ID
	}
	s.bols[b.ID] = cloneBOL(b)
	return nil
}

func (s *Store) GetBOL(_ context.Context, id int64) (*models.BillOfLading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bols[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneBOL(b), nil
}

func (s *Store) GetBOLByWorkOrder(_ context.Context, workOrderNo string) (*models.BillOfLading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b := s.bolByWorkOrder(workOrderNo)
	if b == nil {
		return nil, repository.ErrNotFound
	}
	return cloneBOL(b), nil
}

func (s *Store) ListBOLs(_ context.Context, f models.BOLFilter, paginate bool) ([]*models.BillOfLading, error) {
	s.mu.RLock()
	var out []*models.BillOfLading
	needle := strings.ToLower(strings.TrimSpace(f.WorkOrder))
	for _, b := range s.bols {
		if !f.StartDate.IsZero() && b.Date.Before(f.StartDate) {
			continue
		}
		if !f.EndDate.IsZero() && f.EndDate.Before(b.Date) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(b.WorkOrderNo), needle) {
			continue
		}
		out = append(out, cloneBOL(b))
	}
	s.mu.RUnlock()

	desc := f.SortOrder != "asc"
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		var cmp int
		switch f.SortBy {
		case "work_order":
			cmp = strings.Compare(a.WorkOrderNo, b.WorkOrderNo)
		case "driver_name":
			cmp = strings.Compare(a.DriverName, b.DriverName)
		default:
			cmp = a.Date.Compare(b.Date.Time)
		}
		if cmp == 0 {
			cmp = int(a.ID - b.ID)
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})

	if paginate {
		out = page(out, f.Skip, f.Limit)
	}
	return out, nil
}

func page[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return nil
	}
	items = items[skip:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (s *Store) LoadVehicles(_ context.Context, bols []*models.BillOfLading) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range bols {
		if stored, ok := s.bols[b.ID]; ok {
			b.Vehicles = append([]models.BOLVehicle{}, stored.Vehicles...)
		}
	}
	return nil
}

func (s *Store) WorkOrderTaken(_ context.Context, workOrderNo string, excludeID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b := s.bolByWorkOrder(workOrderNo)
	return b != nil && b.ID != excludeID, nil
}

func (s *Store) UpdateBOL(_ context.Context, b *models.BillOfLading) error {
	s.mu.RLock()
	existing, ok := s.bols[b.ID]
	var previous string
	if ok {
		previous = existing.WorkOrderNo
	}
	s.mu.RUnlock()
	if !ok {
		return repository.ErrNotFound
	}
	if previous != "" {
		defer s.lockWorkOrder(previous)()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok = s.bols[b.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if other := s.bolByWorkOrder(b.WorkOrderNo); other != nil && other.ID != b.ID {
		return repository.ErrDuplicate
	}

	now := s.now()
	b.CreatedAt = existing.CreatedAt
	b.UpdatedAt = &now
	for i := range b.Vehicles {
		b.Vehicles[i].ID = s.nextID()
		b.Vehicles[i].BillOfLadingID = b.ID
	}
	s.bols[b.ID] = cloneBOL(b)

	if existing.WorkOrderNo != b.WorkOrderNo {
		for _, t := range s.txns {
			if t.BOLID == b.ID {
				t.WorkOrderNo = b.WorkOrderNo
				t.UpdatedAt = &now
			}
		}
	}
	return nil
}

func (s *Store) DeleteBOL(_ context.Context, id int64) error {
	s.mu.RLock()
	existing, ok := s.bols[id]
	var workOrder string
	if ok {
		workOrder = existing.WorkOrderNo
	}
	s.mu.RUnlock()
	if !ok {
		return repository.ErrNotFound
	}
	if workOrder != "" {
		defer s.lockWorkOrder(workOrder)()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bols[id]; !ok {
		return repository.ErrNotFound
	}
	count := 0
	for _, t := range s.txns {
		if t.BOLID == id || (workOrder != "" && t.WorkOrderNo == workOrder) {
			count++
		}
	}
	if count > 0 {
		return &repository.ReferencedError{WorkOrderNo: workOrder, Count: count}
	}
	delete(s.bols, id)
	return nil
}

// ---- transactions ----

func (s *Store) sumCollectedLocked(workOrderNo string) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range s.txns {
		if t.WorkOrderNo == workOrderNo {
			sum = sum.Add(t.CollectedAmount)
		}
	}
	return sum
}

func (s *Store) SumCollected(_ context.Context, workOrderNo string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sumCollectedLocked(workOrderNo), nil
}

func (s *Store) SumCollectedByWorkOrders(_ context.Context, workOrderNos []string) (map[string]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]decimal.Decimal, len(workOrderNos))
	for _, wo := range workOrderNos {
		out[wo] = decimal.Zero
	}
	for _, t := range s.txns {
		if sum, ok := out[t.WorkOrderNo]; ok {
			out[t.WorkOrderNo] = sum.Add(t.CollectedAmount)
		}
	}
	return out, nil
}

func (s *Store) WithWorkOrderLock(_ context.Context, workOrderNo string, fn func(repository.LedgerTx) error) error {
	defer s.lockWorkOrder(workOrderNo)()

	s.mu.RLock()
	b := s.bolByWorkOrder(workOrderNo)
	if b != nil {
		b = cloneBOL(b)
	}
	s.mu.RUnlock()
	if b == nil {
		return repository.ErrNotFound
	}

	tx := &ledgerTx{store: s, bol: b}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// ledgerTx applies writes straight away and keeps an undo log so a failed
// callback leaves the store as it found it.
type ledgerTx struct {
	store *Store
	bol   *models.BillOfLading
	undo  []func()
}

func (l *ledgerTx) LockedBOL() *models.BillOfLading { return l.bol }

func (l *ledgerTx) SumCollected(_ context.Context, workOrderNo string) (decimal.Decimal, error) {
	l.store.mu.RLock()
	defer l.store.mu.RUnlock()
	return l.store.sumCollectedLocked(workOrderNo), nil
}

func (l *ledgerTx) GetTransaction(_ context.Context, userID, id int64) (*models.Transaction, error) {
	l.store.mu.RLock()
	defer l.store.mu.RUnlock()
	t, ok := l.store.txns[id]
	if !ok || t.UserID != userID {
		return nil, repository.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (l *ledgerTx) InsertTransaction(_ context.Context, t *models.Transaction) error {
	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.nextID()
	t.CreatedAt = s.now()
	c := *t
	s.txns[t.ID] = &c
	id := t.ID
	l.undo = append(l.undo, func() { delete(s.txns, id) })
	return nil
}

func (l *ledgerTx) UpdateTransaction(_ context.Context, t *models.Transaction) error {
	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.txns[t.ID]
	if !ok || prev.UserID != t.UserID {
		return repository.ErrNotFound
	}
	now := s.now()
	t.UpdatedAt = &now
	c := *t
	s.txns[t.ID] = &c
	l.undo = append(l.undo, func() { s.txns[prev.ID] = prev })
	return nil
}

func (l *ledgerTx) rollback() {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	for i := len(l.undo) - 1; i >= 0; i-- {
		l.undo[i]()
	}
}

func (s *Store) GetTransaction(_ context.Context, userID, id int64) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.txns[id]
	if !ok || t.UserID != userID {
		return nil, repository.ErrNotFound
	}
	c := *t
	return &c, nil
}

func inRange(d, start, end models.Date) bool {
	if !start.IsZero() && d.Before(start) {
		return false
	}
	if !end.IsZero() && end.Before(d) {
		return false
	}
	return true
}

func (s *Store) ListTransactions(_ context.Context, userID int64, f models.TransactionFilter) ([]*models.TransactionListItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.TransactionListItem
	for _, t := range s.txns {
		if t.UserID != userID || !inRange(t.Date, f.StartDate, f.EndDate) {
			continue
		}
		item := &models.TransactionListItem{Transaction: *t}
		if b, ok := s.bols[t.BOLID]; ok {
			item.BrokerName, item.BrokerAddress, item.BrokerPhone = b.BrokerName, b.BrokerAddress, b.BrokerPhone
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Date.Compare(out[j].Date.Time); c != 0 {
			return c > 0
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) ListByWorkOrder(_ context.Context, workOrderNo string, userID int64) ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Transaction
	for _, t := range s.txns {
		if t.WorkOrderNo == workOrderNo && t.UserID == userID {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Date.Compare(out[j].Date.Time); c != 0 {
			return c < 0
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txns[id]
	if !ok || t.UserID != userID {
		return repository.ErrNotFound
	}
	delete(s.txns, id)
	return nil
}

// ---- users ----

func (s *Store) userByEmail(email string) *models.User {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u
		}
	}
	return nil
}

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userByEmail(user.Email) != nil {
		return repository.ErrDuplicate
	}
	user.ID = s.nextID()
	user.CreatedAt = s.now()
	c := *user
	s.users[user.ID] = &c
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u := s.userByEmail(email)
	if u == nil {
		return nil, repository.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (s *Store) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (s *Store) ListUsers(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	now := s.now()
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = &now
	c := *user
	s.users[user.ID] = &c
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return repository.ErrNotFound
	}
	for _, t := range s.txns {
		if t.UserID == id {
			return repository.ErrInUse
		}
	}
	for _, e := range s.expenses {
		if e.UserID == id {
			return repository.ErrInUse
		}
	}
	delete(s.users, id)
	return nil
}

// ---- daily expenses ----

func (s *Store) CreateExpense(_ context.Context, e *models.DailyExpense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.nextID()
	e.CreatedAt = s.now()
	c := *e
	s.expenses[e.ID] = &c
	return nil
}

func (s *Store) GetExpense(_ context.Context, userID, id int64) (*models.DailyExpense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.expenses[id]
	if !ok || e.UserID != userID {
		return nil, repository.ErrNotFound
	}
	c := *e
	return &c, nil
}

func (s *Store) ListExpenses(_ context.Context, userID int64, f models.ExpenseFilter) ([]*models.DailyExpense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.DailyExpense
	for _, e := range s.expenses {
		if e.UserID == userID && inRange(e.Date, f.StartDate, f.EndDate) {
			c := *e
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Date.Compare(out[j].Date.Time); c != 0 {
			return c > 0
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateExpense(_ context.Context, e *models.DailyExpense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.expenses[e.ID]
	if !ok || existing.UserID != e.UserID {
		return repository.ErrNotFound
	}
	now := s.now()
	e.CreatedAt = existing.CreatedAt
	e.UpdatedAt = &now
	c := *e
	s.expenses[e.ID] = &c
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok || e.UserID != userID {
		return repository.ErrNotFound
	}
	delete(s.expenses, id)
	return nil
}
