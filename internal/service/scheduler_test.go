package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"repairhub/internal/domain"
)

func TestValidateTimeSlot(t *testing.T) {
	cases := []struct {
		slot string
		ok   bool
	}{
		{"09:00-11:00", true},
		{" 14:30 - 16:00 ", true},
		{"11:00-09:00", false},
		{"09:00-09:00", false},
		{"9h-11h", false},
		{"09:00", false},
		{"", false},
	}
	for _, c := range cases {
		err := ValidateTimeSlot(c.slot)
		if c.ok && err != nil {
			t.Fatalf("%q: unexpected error %v", c.slot, err)
		}
		if !c.ok && !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%q: expected validation error, got %v", c.slot, err)
		}
	}
}

func TestScheduleIntervention(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	r := f.newRepair(t, "u1")
	day := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	if _, _, err := f.sched.ScheduleIntervention(ctx, r.ID, time.Time{}, "09:00-11:00"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for zero date, got %v", err)
	}
	if _, _, err := f.sched.ScheduleIntervention(ctx, "missing", day, "09:00-11:00"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	got, iv, err := f.sched.ScheduleIntervention(ctx, r.ID, day, "09:00-11:00")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if iv.Seq != 1 || iv.Status != domain.InterventionScheduled {
		t.Fatalf("unexpected intervention %+v", iv)
	}
	if got.Version != 2 {
		t.Fatalf("expected version bump, got %d", got.Version)
	}

	if _, err := f.cases.Transition(ctx, TransitionInput{CaseID: r.ID, To: domain.StatusCancelled}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, _, err := f.sched.ScheduleIntervention(ctx, r.ID, day, "09:00-11:00"); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state on cancelled repair, got %v", err)
	}
}

func TestScheduleIntervention_NotARepair(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	o, err := f.cases.CreateOrder(ctx, CreateOrderInput{OwnerID: "u1", Items: []domain.OrderItem{
		{ProductID: "p1", UnitPrice: decimal.NewFromInt(5), Quantity: 1},
	}})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, _, err := f.sched.ScheduleIntervention(ctx, o.ID, time.Now(), "09:00-11:00"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for an order id, got %v", err)
	}
}

func TestStartAndFinalize_TimeRules(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	r := f.newRepair(t, "u1")
	day := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	_, iv, err := f.sched.ScheduleIntervention(ctx, r.ID, day, "09:00-11:00")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	early := day.Add(-time.Hour)
	if _, err := f.sched.StartIntervention(ctx, r.ID, iv.ID, &early); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for start before date, got %v", err)
	}
	if _, err := f.sched.FinalizeIntervention(ctx, r.ID, iv.ID, "diag", "work", nil); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state when finalizing a scheduled intervention, got %v", err)
	}

	start := day.Add(time.Hour)
	if _, err := f.sched.StartIntervention(ctx, r.ID, iv.ID, &start); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.sched.StartIntervention(ctx, r.ID, iv.ID, &start); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state on second start, got %v", err)
	}

	if _, err := f.sched.FinalizeIntervention(ctx, r.ID, iv.ID, "", "work", nil); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for empty diagnosis, got %v", err)
	}
	before := start.Add(-time.Minute)
	if _, err := f.sched.FinalizeIntervention(ctx, r.ID, iv.ID, "diag", "work", &before); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for end before start, got %v", err)
	}

	end := start.Add(45 * time.Minute)
	got, err := f.sched.FinalizeIntervention(ctx, r.ID, iv.ID, " worn belt ", "replaced belt", &end)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	done := got.Intervention(iv.ID)
	if done.Status != domain.InterventionCompleted || done.Diagnosis != "worn belt" || !done.EndTime.Equal(end) {
		t.Fatalf("unexpected finalized intervention %+v", done)
	}
	if _, err := f.sched.CancelIntervention(ctx, r.ID, iv.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state when cancelling a completed intervention, got %v", err)
	}
}

func TestCancelIntervention_FreezesParts(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	r := f.newRepair(t, "u1")
	_, iv, err := f.sched.ScheduleIntervention(ctx, r.ID, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), "09:00-11:00")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	got, err := f.sched.CancelIntervention(ctx, r.ID, iv.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != domain.StatusPending {
		t.Fatalf("repair status must not change, got %s", got.Status)
	}
	_, _, err = f.sched.AddPart(ctx, r.ID, iv.ID, PartInput{PartName: "belt", UnitPrice: decimal.NewFromInt(10), Quantity: 1})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state for parts on cancelled intervention, got %v", err)
	}
	if _, err := f.sched.CancelIntervention(ctx, r.ID, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestInterventions_FrozenOnTerminalRepair(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	r := f.newRepair(t, "u1")
	day := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	_, running, err := f.sched.ScheduleIntervention(ctx, r.ID, day, "09:00-11:00")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	_, waiting, err := f.sched.ScheduleIntervention(ctx, r.ID, day.AddDate(0, 0, 1), "09:00-11:00")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	start := day.Add(time.Hour)
	if _, err := f.sched.StartIntervention(ctx, r.ID, running.ID, &start); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.transition(t, r.ID, domain.StatusCancelled)

	end := start.Add(time.Hour)
	if _, err := f.sched.FinalizeIntervention(ctx, r.ID, running.ID, "diag", "work", &end); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state when finalizing on a cancelled repair, got %v", err)
	}
	if _, err := f.sched.CancelIntervention(ctx, r.ID, waiting.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state when cancelling on a cancelled repair, got %v", err)
	}

	got, err := f.cases.GetCase(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if st := got.(*domain.Repair).Intervention(running.ID).Status; st != domain.InterventionInProgress {
		t.Fatalf("intervention must stay in_progress, got %s", st)
	}
}

func TestParts_CostRecompute(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	r := f.newRepair(t, "u1")
	_, iv, err := f.sched.ScheduleIntervention(ctx, r.ID, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), "09:00-11:00")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	if _, _, err := f.sched.AddPart(ctx, r.ID, iv.ID, PartInput{PartName: "", UnitPrice: decimal.NewFromInt(-1), Quantity: 0}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, belt, err := f.sched.AddPart(ctx, r.ID, iv.ID, PartInput{PartName: "belt", UnitPrice: decimal.RequireFromString("12.50"), Quantity: 2, WarrantyMonths: 3})
	if err != nil {
		t.Fatalf("add belt: %v", err)
	}
	if !belt.TotalPrice.Equal(decimal.RequireFromString("25")) {
		t.Fatalf("unexpected part total %s", belt.TotalPrice)
	}
	got, _, err := f.sched.AddPart(ctx, r.ID, iv.ID, PartInput{PartName: "filter", UnitPrice: decimal.RequireFromString("4.99"), Quantity: 1})
	if err != nil {
		t.Fatalf("add filter: %v", err)
	}
	if !got.AdditionalCost.Equal(decimal.RequireFromString("29.99")) || !got.TotalCost.Equal(decimal.RequireFromString("104.99")) {
		t.Fatalf("unexpected costs additional=%s total=%s", got.AdditionalCost, got.TotalCost)
	}

	got, err = f.sched.RemovePart(ctx, r.ID, iv.ID, belt.ID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !got.TotalCost.Equal(decimal.RequireFromString("79.99")) {
		t.Fatalf("unexpected total after removal %s", got.TotalCost)
	}
	if _, err := f.sched.RemovePart(ctx, r.ID, iv.ID, belt.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second removal, got %v", err)
	}

	stored, err := f.cases.GetCase(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !stored.(*domain.Repair).TotalCost.Equal(decimal.RequireFromString("79.99")) {
		t.Fatalf("stored total not recomputed")
	}
}
