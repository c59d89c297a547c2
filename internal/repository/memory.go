package repository

import (
	"context"
	"sort"
	"sync"

	"repairhub/internal/domain"
)

// MemoryStore объединённое in-memory хранилище обращений, счётчиков и счетов лояльности
type MemoryStore struct {
	mu        sync.RWMutex
	casesByID map[string]domain.ServiceCase
	sequences map[seqKey]int64
	accounts  map[string]*domain.LoyaltyAccount
	referrals map[string]string
}

type seqKey struct {
	prefix string
	year   int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		casesByID: make(map[string]domain.ServiceCase),
		sequences: make(map[seqKey]int64),
		accounts:  make(map[string]*domain.LoyaltyAccount),
		referrals: make(map[string]string),
	}
}

// transaction-aware locking helpers
type txKey struct{}

func isTx(ctx context.Context) bool {
	v := ctx.Value(txKey{})
	if v == nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func (m *MemoryStore) rlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RLock()
	}
}
func (m *MemoryStore) runlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RUnlock()
	}
}
func (m *MemoryStore) wlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Lock()
	}
}
func (m *MemoryStore) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Unlock()
	}
}

// Ensure interfaces
var _ CaseRepository = (*MemoryStore)(nil)

// CaseRepository implementation
func (m *MemoryStore) Create(ctx context.Context, c domain.ServiceCase) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	b := c.Base()
	if _, ok := m.casesByID[b.ID]; ok {
		return ErrDuplicate
	}
	for _, other := range m.casesByID {
		if other.Base().ReferenceCode == b.ReferenceCode {
			return ErrDuplicate
		}
	}
	b.Version = 1
	m.casesByID[b.ID] = c.Clone()
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id string) (domain.ServiceCase, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	c, ok := m.casesByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	// return copy
	return c.Clone(), nil
}

func (m *MemoryStore) Save(ctx context.Context, c domain.ServiceCase, expectedVersion int64) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	b := c.Base()
	stored, ok := m.casesByID[b.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Base().Version != expectedVersion {
		return ErrConflict
	}
	b.Version = expectedVersion + 1
	m.casesByID[b.ID] = c.Clone()
	return nil
}

func (m *MemoryStore) ListByOwner(ctx context.Context, ownerID string, f CaseFilter) ([]domain.ServiceCase, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]domain.ServiceCase, 0)
	for _, c := range m.casesByID {
		if c.Base().OwnerID != ownerID || !f.match(c) {
			continue
		}
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Base().CreatedAt.After(out[j].Base().CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) NextSequence(ctx context.Context, prefix string, year int) (int64, error) {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	k := seqKey{prefix: prefix, year: year}
	m.sequences[k]++
	return m.sequences[k], nil
}

// LoyaltyRepository implementation on wrapper type
type MemoryLoyalty struct{ store *MemoryStore }

func NewMemoryLoyalty(store *MemoryStore) *MemoryLoyalty { return &MemoryLoyalty{store: store} }

var _ LoyaltyRepository = (*MemoryLoyalty)(nil)

func (ml *MemoryLoyalty) GetAccount(ctx context.Context, userID string) (*domain.LoyaltyAccount, error) {
	ml.store.rlock(ctx)
	defer ml.store.runlock(ctx)
	a, ok := ml.store.accounts[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return a.Clone(), nil
}

func (ml *MemoryLoyalty) CreateAccount(ctx context.Context, a *domain.LoyaltyAccount) error {
	ml.store.wlock(ctx)
	defer ml.store.wunlock(ctx)
	if _, ok := ml.store.accounts[a.UserID]; ok {
		return ErrDuplicate
	}
	if _, ok := ml.store.referrals[a.ReferralCode]; ok {
		return ErrDuplicate
	}
	ml.store.accounts[a.UserID] = a.Clone()
	ml.store.referrals[a.ReferralCode] = a.UserID
	return nil
}

func (ml *MemoryLoyalty) AppendEntry(ctx context.Context, userID string, e domain.LedgerEntry) (*domain.LoyaltyAccount, error) {
	ml.store.wlock(ctx)
	defer ml.store.wunlock(ctx)
	a, ok := ml.store.accounts[userID]
	if !ok {
		return nil, ErrNotFound
	}
	if e.SourceCaseID != nil && a.HasEntry(*e.SourceCaseID, e.Label) {
		return nil, ErrDuplicate
	}
	next := a.Clone()
	next.History = append(next.History, e)
	next.Points += e.Points
	ml.store.accounts[userID] = next
	return next.Clone(), nil
}

// Tx manager using write lock to emulate transaction boundary
type MemoryTx struct{ store *MemoryStore }

func NewMemoryTx(store *MemoryStore) *MemoryTx { return &MemoryTx{store: store} }

// WithTransaction держит блокировку записи на всё время fn и откатывает изменения,
// если fn вернула ошибку или контекст отменён до фиксации.
func (tx *MemoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if isTx(ctx) {
		return fn(ctx)
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	snap := tx.store.snapshot()
	ctx = context.WithValue(ctx, txKey{}, true)
	err := fn(ctx)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		tx.store.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	cases     map[string]domain.ServiceCase
	sequences map[seqKey]int64
	accounts  map[string]*domain.LoyaltyAccount
	referrals map[string]string
}

// Значения в картах не изменяются на месте (только заменяются), поэтому достаточно копии карт.
func (m *MemoryStore) snapshot() memorySnapshot {
	s := memorySnapshot{
		cases:     make(map[string]domain.ServiceCase, len(m.casesByID)),
		sequences: make(map[seqKey]int64, len(m.sequences)),
		accounts:  make(map[string]*domain.LoyaltyAccount, len(m.accounts)),
		referrals: make(map[string]string, len(m.referrals)),
	}
	for k, v := range m.casesByID {
		s.cases[k] = v
	}
	for k, v := range m.sequences {
		s.sequences[k] = v
	}
	for k, v := range m.accounts {
		s.accounts[k] = v
	}
	for k, v := range m.referrals {
		s.referrals[k] = v
	}
	return s
}

func (m *MemoryStore) restore(s memorySnapshot) {
	m.casesByID = s.cases
	m.sequences = s.sequences
	m.accounts = s.accounts
	m.referrals = s.referrals
}
