package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"repairhub/internal/config"
	"repairhub/internal/domain"
	"repairhub/internal/repository"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.CaseEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, ev domain.CaseEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *recordingNotifier) Events() []domain.CaseEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.CaseEvent(nil), n.events...)
}

type fixture struct {
	store    *repository.MemoryStore
	accounts repository.LoyaltyRepository
	cases    *CaseService
	sched    *Scheduler
	loyalty  *LoyaltyService
	notifier *recordingNotifier
	clock    time.Time
}

// now фиксированные часы фикстуры
func (f *fixture) now() time.Time { return f.clock }

func setup(t *testing.T) *fixture {
	t.Helper()
	return setupWithLoyalty(t, nil)
}

func setupWithLoyalty(t *testing.T, accounts repository.LoyaltyRepository) *fixture {
	t.Helper()
	cfg := config.Default()
	store := repository.NewMemoryStore()
	tx := repository.NewMemoryTx(store)
	if accounts == nil {
		accounts = repository.NewMemoryLoyalty(store)
	}
	catalog, err := NewCatalog(cfg.Loyalty.Catalog)
	require.NoError(t, err)

	f := &fixture{
		store:    store,
		accounts: accounts,
		notifier: &recordingNotifier{},
		clock:    time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
	}
	log := zap.NewNop()
	f.loyalty = NewLoyaltyService(accounts, tx, catalog, cfg.Loyalty.Rates, log)
	f.cases = NewCaseService(store, tx, f.loyalty, NewPriceTable(cfg.Pricing), NewEligibility(cfg.ServiceArea.PostalCodes), f.notifier, log)
	f.sched = NewScheduler(store, tx, log)
	f.loyalty.now = f.now
	f.cases.now = f.now
	f.sched.now = f.now
	return f
}

func (f *fixture) transition(t *testing.T, id string, to domain.Status) domain.ServiceCase {
	t.Helper()
	c, err := f.cases.Transition(context.Background(), TransitionInput{CaseID: id, To: to})
	require.NoError(t, err, "transition to %s", to)
	return c
}

func (f *fixture) newRepair(t *testing.T, owner string) *domain.Repair {
	t.Helper()
	r, err := f.cases.CreateRepair(context.Background(), CreateRepairInput{
		OwnerID:          owner,
		ApplianceType:    "washing_machine",
		Brand:            "Bosch",
		Model:            "Serie 4",
		IssueDescription: "does not drain",
	})
	require.NoError(t, err)
	return r
}
