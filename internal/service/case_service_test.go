package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"repairhub/internal/config"
	"repairhub/internal/domain"
	"repairhub/internal/repository"
)

func TestRepairLifecycle_CostsAndCompletion(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	r := f.newRepair(t, "u1")
	assert.Equal(t, "75", r.BasePrice.String())
	assert.Regexp(t, regexp.MustCompile(`^REP-2025-0001$`), r.ReferenceCode)
	assert.Equal(t, domain.StatusPending, r.Status)

	day := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	_, iv, err := f.sched.ScheduleIntervention(ctx, r.ID, day, "09:00-11:00")
	require.NoError(t, err)

	r, _, err = f.sched.AddPart(ctx, r.ID, iv.ID, PartInput{PartName: "drain pump", UnitPrice: decimal.RequireFromString("14.00"), Quantity: 1, WarrantyMonths: 6})
	require.NoError(t, err)
	assert.True(t, r.AdditionalCost.Equal(decimal.RequireFromString("14.00")))
	assert.True(t, r.TotalCost.Equal(decimal.RequireFromString("89.00")))

	f.transition(t, r.ID, domain.StatusConfirmed)
	f.transition(t, r.ID, domain.StatusScheduled)

	start := day.Add(30 * time.Minute)
	_, err = f.sched.StartIntervention(ctx, r.ID, iv.ID, &start)
	require.NoError(t, err)
	f.transition(t, r.ID, domain.StatusInProgress)

	end := day.Add(2 * time.Hour)
	_, err = f.sched.FinalizeIntervention(ctx, r.ID, iv.ID, "pump clogged", "replaced drain pump", &end)
	require.NoError(t, err)

	done := f.transition(t, r.ID, domain.StatusCompleted).(*domain.Repair)
	require.NotNil(t, done.CompletedAt)
	assert.True(t, done.CompletedAt.Equal(end), "completed_at comes from the intervention end time")
	assert.True(t, done.TotalCost.Equal(decimal.RequireFromString("89.00")))

	_, err = f.cases.Transition(ctx, TransitionInput{CaseID: r.ID, To: domain.StatusCompleted})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	summary, err := f.loyalty.Summary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), summary.Points)
	require.Len(t, summary.History, 1)
	assert.Equal(t, "Réparation", summary.History[0].Label)
	assert.Equal(t, r.ID, *summary.History[0].SourceCaseID)

	f.cases.WaitNotifications()
	events := f.notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.StatusCompleted, events[0].Status)
	assert.Equal(t, r.ReferenceCode, events[0].ReferenceCode)
}

func TestRepair_ScheduledRequiresIntervention(t *testing.T) {
	f := setup(t)
	r := f.newRepair(t, "u1")
	f.transition(t, r.ID, domain.StatusConfirmed)

	_, err := f.cases.Transition(context.Background(), TransitionInput{CaseID: r.ID, To: domain.StatusScheduled})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	got, err := f.cases.GetCase(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, got.Base().Status)
}

func TestRepair_CompletedRequiresLatestInterventionCompleted(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	r := f.newRepair(t, "u1")

	day1 := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	_, first, err := f.sched.ScheduleIntervention(ctx, r.ID, day1, "09:00-11:00")
	require.NoError(t, err)
	f.transition(t, r.ID, domain.StatusConfirmed)
	f.transition(t, r.ID, domain.StatusScheduled)
	at := day1.Add(time.Hour)
	_, err = f.sched.StartIntervention(ctx, r.ID, first.ID, &at)
	require.NoError(t, err)
	f.transition(t, r.ID, domain.StatusInProgress)
	end := day1.Add(2 * time.Hour)
	_, err = f.sched.FinalizeIntervention(ctx, r.ID, first.ID, "needs part", "ordered part", &end)
	require.NoError(t, err)

	// второй выезд позже первого и ещё не выполнен
	_, _, err = f.sched.ScheduleIntervention(ctx, r.ID, day1.AddDate(0, 0, 7), "14:00-16:00")
	require.NoError(t, err)

	_, err = f.cases.Transition(ctx, TransitionInput{CaseID: r.ID, To: domain.StatusCompleted})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	acc, err := f.loyalty.Summary(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, acc.Points, "no points for a rejected completion")
}

func TestCreateRepair_Validation(t *testing.T) {
	f := setup(t)
	_, err := f.cases.CreateRepair(context.Background(), CreateRepairInput{OwnerID: "u1"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.cases.CreateRepair(context.Background(), CreateRepairInput{
		OwnerID: "u1", ApplianceType: "spaceship", Brand: "b", Model: "m", IssueDescription: "x",
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateDonation_Eligibility(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	in := CreateDonationInput{
		OwnerID:       "u1",
		ApplianceType: "refrigerator",
		Address:       domain.Address{Street: "1 rue de Rivoli", City: "Paris", PostalCode: "13001"},
	}

	_, err := f.cases.CreateDonation(ctx, in)
	assert.ErrorIs(t, err, domain.ErrValidation)
	list, err := f.cases.ListByOwner(ctx, "u1", repository.CaseFilter{})
	require.NoError(t, err)
	assert.Empty(t, list, "nothing persisted for an ineligible postal code")

	in.Address.PostalCode = "75001"
	d, err := f.cases.CreateDonation(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "DON-2025-0001", d.ReferenceCode, "rejected attempt consumed no sequence number")
	assert.Equal(t, domain.StatusPending, d.Status)
}

func TestDonation_PickupAndCompletedAtSetOnce(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	d, err := f.cases.CreateDonation(ctx, CreateDonationInput{
		OwnerID: "u1", ApplianceType: "oven",
		Address: domain.Address{Street: "2 rue X", City: "Paris", PostalCode: "75011"},
	})
	require.NoError(t, err)

	f.transition(t, d.ID, domain.StatusConfirmed)
	_, err = f.cases.Transition(ctx, TransitionInput{CaseID: d.ID, To: domain.StatusPickedUp})
	assert.ErrorIs(t, err, domain.ErrInvalidState, "pickup date required")

	_, err = f.cases.SetPickupDate(ctx, d.ID, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	f.transition(t, d.ID, domain.StatusPickedUp)
	f.transition(t, d.ID, domain.StatusProcessed)

	_, err = f.cases.SetPickupDate(ctx, d.ID, time.Date(2025, 3, 6, 0, 0, 0, 0, time.UTC), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	done := f.transition(t, d.ID, domain.StatusCompleted)
	require.NotNil(t, done.Base().CompletedAt)
	completedAt := *done.Base().CompletedAt

	f.clock = f.clock.Add(time.Hour)
	_, err = f.cases.Transition(ctx, TransitionInput{CaseID: d.ID, To: domain.StatusCancelled})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	got, err := f.cases.GetCase(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, got.Base().CompletedAt.Equal(completedAt))

	summary, err := f.loyalty.Summary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), summary.Points)
	assert.Equal(t, "Don d'appareil", summary.History[0].Label)
}

func TestOrder_ItemsTotalsAndDelivery(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	o, err := f.cases.CreateOrder(ctx, CreateOrderInput{OwnerID: "u1", Items: []domain.OrderItem{
		{ProductID: "p1", Name: "Refurbished fridge", UnitPrice: decimal.RequireFromString("199.90"), Quantity: 1},
		{ProductID: "p2", Name: "Filter", UnitPrice: decimal.RequireFromString("9.50"), Quantity: 2},
	}})
	require.NoError(t, err)
	assert.Equal(t, "CMD-2025-0001", o.ReferenceCode)
	assert.True(t, o.TotalAmount.Equal(decimal.RequireFromString("218.90")))

	o, err = f.cases.ReplaceOrderItems(ctx, o.ID, []domain.OrderItem{
		{ProductID: "p1", Name: "Refurbished fridge", UnitPrice: decimal.RequireFromString("199.90"), Quantity: 2},
	}, nil)
	require.NoError(t, err)
	assert.True(t, o.TotalAmount.Equal(decimal.RequireFromString("399.80")))

	_, err = f.cases.ReplaceOrderItems(ctx, o.ID, []domain.OrderItem{{ProductID: "p1", Quantity: 0}}, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	f.transition(t, o.ID, domain.StatusConfirmed)
	_, err = f.cases.ReplaceOrderItems(ctx, o.ID, []domain.OrderItem{{ProductID: "p1", Quantity: 1}}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	eta := time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)
	shipped, err := f.cases.Transition(ctx, TransitionInput{CaseID: o.ID, To: domain.StatusShipped, DeliveryDate: &eta})
	require.NoError(t, err)
	assert.True(t, shipped.(*domain.Order).DeliveryDate.Equal(eta))

	delivered := f.transition(t, o.ID, domain.StatusDelivered).(*domain.Order)
	assert.True(t, delivered.DeliveryDate.Equal(eta))
	require.NotNil(t, delivered.CompletedAt)

	summary, err := f.loyalty.Summary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(30), summary.Points)
	assert.Equal(t, "Achat appareil", summary.History[0].Label)
}

func TestOrder_DeliveryDateOnlyWhenShipping(t *testing.T) {
	f := setup(t)
	o, err := f.cases.CreateOrder(context.Background(), CreateOrderInput{OwnerID: "u1", Items: []domain.OrderItem{
		{ProductID: "p1", UnitPrice: decimal.NewFromInt(10), Quantity: 1},
	}})
	require.NoError(t, err)
	eta := time.Now()
	_, err = f.cases.Transition(context.Background(), TransitionInput{CaseID: o.ID, To: domain.StatusConfirmed, DeliveryDate: &eta})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateOrder_Validation(t *testing.T) {
	f := setup(t)
	_, err := f.cases.CreateOrder(context.Background(), CreateOrderInput{OwnerID: "u1"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.cases.CreateOrder(context.Background(), CreateOrderInput{OwnerID: "u1", Items: []domain.OrderItem{
		{ProductID: "p1", UnitPrice: decimal.NewFromInt(-1), Quantity: 1},
	}})
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "items[0].unit_price", de.Details[0].Path)
}

func TestTransition_ConcurrentConfirm(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	r := f.newRepair(t, "u1")

	current, err := f.cases.GetCase(ctx, r.ID)
	require.NoError(t, err)
	version := current.Base().Version

	var (
		wg        sync.WaitGroup
		start     = make(chan struct{})
		errs      = make([]error, 2)
		successes int
		conflicts int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.cases.Transition(ctx, TransitionInput{CaseID: r.ID, To: domain.StatusConfirmed, ExpectedVersion: &version})
		}(i)
	}
	close(start)
	wg.Wait()

	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)

	got, _ := f.cases.GetCase(ctx, r.ID)
	assert.Equal(t, domain.StatusConfirmed, got.Base().Status)
	assert.Equal(t, version+1, got.Base().Version)
}

func TestTransition_ExpectedVersionMismatch(t *testing.T) {
	f := setup(t)
	r := f.newRepair(t, "u1")
	stale := int64(7)
	_, err := f.cases.Transition(context.Background(), TransitionInput{CaseID: r.ID, To: domain.StatusCancelled, ExpectedVersion: &stale})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestTransition_UnknownCase(t *testing.T) {
	f := setup(t)
	_, err := f.cases.Transition(context.Background(), TransitionInput{CaseID: "nope", To: domain.StatusConfirmed})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// gatedCases держит первые чтения, пока до них не дойдут все участники
type gatedCases struct {
	repository.CaseRepository
	mu      sync.Mutex
	waiting int
	arrived sync.WaitGroup
}

func newGatedCases(next repository.CaseRepository, n int) *gatedCases {
	g := &gatedCases{CaseRepository: next, waiting: n}
	g.arrived.Add(n)
	return g
}

func (g *gatedCases) GetByID(ctx context.Context, id string) (domain.ServiceCase, error) {
	g.mu.Lock()
	gated := g.waiting > 0
	if gated {
		g.waiting--
	}
	g.mu.Unlock()
	if gated {
		g.arrived.Done()
		g.arrived.Wait()
	}
	return g.CaseRepository.GetByID(ctx, id)
}

func TestTransition_ConcurrentConfirmWithoutVersion(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	r := f.newRepair(t, "u1")

	cfg := config.Default()
	tx := repository.NewMemoryTx(f.store)
	svc := NewCaseService(newGatedCases(f.store, 2), tx, f.loyalty, NewPriceTable(cfg.Pricing),
		NewEligibility(cfg.ServiceArea.PostalCodes), f.notifier, zap.NewNop())
	svc.now = f.now

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Transition(ctx, TransitionInput{CaseID: r.ID, To: domain.StatusConfirmed})
		}(i)
	}
	wg.Wait()

	successes, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)

	got, err := f.cases.GetCase(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, got.Base().Status)
	assert.Equal(t, int64(2), got.Base().Version)

	// последовательный повтор по-прежнему нарушает граф
	_, err = f.cases.Transition(ctx, TransitionInput{CaseID: r.ID, To: domain.StatusConfirmed})
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition), "got %v", err)
}

// failingLedger хранилище лояльности, которое не может дописать запись
type failingLedger struct {
	*repository.MemoryLoyalty
}

func (failingLedger) AppendEntry(context.Context, string, domain.LedgerEntry) (*domain.LoyaltyAccount, error) {
	return nil, errors.New("disk full")
}

func TestTransition_LedgerFailureRollsBackStatus(t *testing.T) {
	ctx := context.Background()
	f := setupWithLoyalty(t, nil)
	// подменяем хранилище лояльности на то же MemoryStore, но с ошибкой записи
	f.loyalty.accounts = failingLedger{repository.NewMemoryLoyalty(f.store)}

	o, err := f.cases.CreateOrder(ctx, CreateOrderInput{OwnerID: "u1", Items: []domain.OrderItem{
		{ProductID: "p1", UnitPrice: decimal.NewFromInt(10), Quantity: 1},
	}})
	require.NoError(t, err)
	f.transition(t, o.ID, domain.StatusConfirmed)
	shipped := f.transition(t, o.ID, domain.StatusShipped)

	_, err = f.cases.Transition(ctx, TransitionInput{CaseID: o.ID, To: domain.StatusDelivered})
	require.Error(t, err)

	got, err := f.cases.GetCase(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusShipped, got.Base().Status)
	assert.Equal(t, shipped.Base().Version, got.Base().Version)
	assert.Nil(t, got.Base().CompletedAt)
	assert.Nil(t, got.(*domain.Order).DeliveryDate)

	_, err = f.accounts.GetAccount(ctx, "u1")
	assert.ErrorIs(t, err, repository.ErrNotFound, "lazily created account rolled back too")
}

func TestTransition_NotificationFailureKeepsTransition(t *testing.T) {
	f := setup(t)
	f.notifier.err = errors.New("smtp down")
	r := f.newRepair(t, "u1")

	got, err := f.cases.Transition(context.Background(), TransitionInput{CaseID: r.ID, To: domain.StatusCancelled})
	require.NoError(t, err)
	f.cases.WaitNotifications()
	assert.Equal(t, domain.StatusCancelled, got.Base().Status)
	assert.Len(t, f.notifier.Events(), 1)
	assert.Nil(t, got.Base().CompletedAt, "cancellation is not a success")
}

func TestReferenceCodes_PerPrefixAndYear(t *testing.T) {
	f := setup(t)
	for i := 1; i <= 3; i++ {
		r := f.newRepair(t, "u1")
		assert.Equal(t, fmt.Sprintf("REP-2025-%04d", i), r.ReferenceCode)
	}
	f.clock = time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	r := f.newRepair(t, "u1")
	assert.Equal(t, "REP-2026-0001", r.ReferenceCode)
}

func TestListByOwnerAndStats(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	r1 := f.newRepair(t, "u1")
	f.clock = f.clock.Add(time.Minute)
	r2 := f.newRepair(t, "u1")
	f.clock = f.clock.Add(time.Minute)
	_, err := f.cases.CreateOrder(ctx, CreateOrderInput{OwnerID: "u1", Items: []domain.OrderItem{{ProductID: "p", UnitPrice: decimal.NewFromInt(1), Quantity: 1}}})
	require.NoError(t, err)
	f.newRepair(t, "u2")
	f.transition(t, r1.ID, domain.StatusCancelled)

	list, err := f.cases.ListByOwner(ctx, "u1", repository.CaseFilter{Kind: domain.CaseRepair})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, r2.ID, list[0].Base().ID, "newest first")

	_, err = f.cases.ListByOwner(ctx, "u1", repository.CaseFilter{Kind: "boat"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.cases.ListByOwner(ctx, "u1", repository.CaseFilter{Kind: domain.CaseOrder, Status: domain.StatusPickedUp})
	assert.ErrorIs(t, err, domain.ErrValidation)

	stats, err := f.cases.OwnerStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Active)
	assert.Equal(t, 1, stats.Cancelled)
	assert.Equal(t, 1, stats.ByKind[domain.CaseRepair][domain.StatusCancelled])
}
