package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repairhub/internal/domain"
	"repairhub/internal/repository"
)

func TestTierProgress_UnlocksAndNext(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.loyalty.RecordEvent(ctx, "u1", "Bonus", 320, nil)
	require.NoError(t, err)

	p, err := f.loyalty.TierProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(320), p.Points)
	require.Len(t, p.Tiers, 3)
	assert.True(t, p.Tiers[0].Unlocked)
	assert.Equal(t, "-20%", p.Tiers[1].Label)
	assert.True(t, p.Tiers[1].Unlocked)
	assert.False(t, p.Tiers[2].Unlocked)
	require.NotNil(t, p.Next)
	assert.Equal(t, domain.NextReward{Label: "-40%", Current: 320, Needed: 800}, *p.Next)
}

func TestTierProgress_NoAccount(t *testing.T) {
	f := setup(t)
	p, err := f.loyalty.TierProgress(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Zero(t, p.Points)
	assert.True(t, p.Tiers[0].Unlocked, "zero-threshold tier is always unlocked")
	require.NotNil(t, p.Next)
	assert.Equal(t, int64(200), p.Next.Needed)
}

func TestTierProgress_UnlockedSetGrowsWithBalance(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	unlocked := func() int {
		p, err := f.loyalty.TierProgress(ctx, "u1")
		require.NoError(t, err)
		n := 0
		for _, tier := range p.Tiers {
			if tier.Unlocked {
				n++
			}
		}
		return n
	}

	prev := unlocked()
	for i, pts := range []int64{50, 100, 49, 1, 300, 299, 1} {
		_, err := f.loyalty.RecordEvent(ctx, "u1", fmt.Sprintf("step %d", i), pts, nil)
		require.NoError(t, err)
		cur := unlocked()
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
	assert.Equal(t, 3, prev)
}

func TestRecordEvent_IdempotentPerSource(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	src := "case-1"

	first, err := f.loyalty.RecordEvent(ctx, "u1", "Réparation", 50, &src)
	require.NoError(t, err)
	assert.True(t, first.Credited)

	again, err := f.loyalty.RecordEvent(ctx, "u1", "Réparation", 50, &src)
	require.NoError(t, err)
	assert.False(t, again.Credited)
	assert.Equal(t, int64(50), again.Account.Points)

	// та же подпись без источника всегда дописывается
	_, err = f.loyalty.RecordEvent(ctx, "u1", "Réparation", 50, nil)
	require.NoError(t, err)

	acc, err := f.accounts.GetAccount(ctx, "u1")
	require.NoError(t, err)
	var sum int64
	for _, e := range acc.History {
		sum += e.Points
	}
	assert.Equal(t, acc.Points, sum)
	assert.Len(t, acc.History, 2)
}

func TestRecordEvent_Validation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.loyalty.RecordEvent(ctx, "", "Bonus", 1, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.loyalty.RecordEvent(ctx, "u1", " ", 1, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.loyalty.RecordEvent(ctx, "u1", "Bonus", -5, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRecordEvent_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			src := fmt.Sprintf("review-%d", i)
			_, err := f.loyalty.RecordEvent(ctx, "u1", "Avis client", 5, &src)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	acc, err := f.accounts.GetAccount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(workers*5), acc.Points)
	assert.Len(t, acc.History, workers)
}

// racingAccounts перед каждым созданием счёта его успевает создать другой запрос
type racingAccounts struct {
	*repository.MemoryLoyalty
}

func (r racingAccounts) CreateAccount(ctx context.Context, a *domain.LoyaltyAccount) error {
	_ = r.MemoryLoyalty.CreateAccount(ctx, &domain.LoyaltyAccount{
		UserID:       a.UserID,
		ReferralCode: "RHAAAA0001",
		History:      []domain.LedgerEntry{},
		CreatedAt:    a.CreatedAt,
	})
	return repository.ErrDuplicate
}

func TestRecordEvent_AccountCreatedConcurrently(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.loyalty.accounts = racingAccounts{repository.NewMemoryLoyalty(f.store)}

	src := "case-1"
	res, err := f.loyalty.RecordEvent(ctx, "u1", "Réparation", 50, &src)
	require.NoError(t, err)
	assert.True(t, res.Credited)
	assert.Equal(t, "RHAAAA0001", res.Account.ReferralCode)
	assert.Equal(t, int64(50), res.Account.Points)
	require.Len(t, res.Account.History, 1)
}

func TestRecordExternalEvent(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	res, err := f.loyalty.RecordExternalEvent(ctx, "u1", domain.EventReferral, "friend-42")
	require.NoError(t, err)
	assert.True(t, res.Credited)
	assert.Equal(t, "Parrainage", res.Entry.Label)
	assert.Equal(t, int64(100), res.Entry.Points)

	res, err = f.loyalty.RecordExternalEvent(ctx, "u1", domain.EventReview, "review-7")
	require.NoError(t, err)
	assert.Equal(t, int64(120), res.Account.Points)

	_, err = f.loyalty.RecordExternalEvent(ctx, "u1", domain.EventRepair, "case-9")
	assert.ErrorIs(t, err, domain.ErrValidation, "case events come from transitions only")
	_, err = f.loyalty.RecordExternalEvent(ctx, "u1", domain.EventReview, "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSummary_NewestFirstWithReferralCode(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	empty, err := f.loyalty.Summary(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, empty.Points)
	assert.Empty(t, empty.History)
	assert.Empty(t, empty.ReferralCode)

	for i, label := range []string{"first", "second", "third"} {
		f.clock = f.clock.Add(time.Duration(i) * time.Hour)
		_, err := f.loyalty.RecordEvent(ctx, "u1", label, 10, nil)
		require.NoError(t, err)
	}

	s, err := f.loyalty.Summary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(30), s.Points)
	assert.Regexp(t, `^RH[0-9A-F]{8}$`, s.ReferralCode)
	require.Len(t, s.History, 3)
	assert.Equal(t, "third", s.History[0].Label)
	assert.Equal(t, "first", s.History[2].Label)
}

func TestCatalog(t *testing.T) {
	c, err := NewCatalog([]domain.RewardTier{
		{Label: "gold", PointsRequired: 800},
		{Label: "base", PointsRequired: 0},
		{Label: "silver", PointsRequired: 200},
	})
	require.NoError(t, err)
	tiers := c.Tiers()
	assert.Equal(t, []string{"base", "silver", "gold"}, []string{tiers[0].Label, tiers[1].Label, tiers[2].Label})

	p := c.Progress(800)
	assert.Nil(t, p.Next, "everything unlocked")

	_, err = NewCatalog([]domain.RewardTier{{Label: "a", PointsRequired: 10}, {Label: "b", PointsRequired: 10}})
	assert.Error(t, err)
	_, err = NewCatalog([]domain.RewardTier{{Label: "a", PointsRequired: -1}})
	assert.Error(t, err)
}

func TestEligibility(t *testing.T) {
	e := NewEligibility([]string{"75001", "75 002"})
	assert.True(t, e.IsEligible("75001"))
	assert.True(t, e.IsEligible(" 75002 "))
	assert.False(t, e.IsEligible("13001"))
	assert.False(t, e.IsEligible(""))
}

func TestPriceTable(t *testing.T) {
	p := NewPriceTable(map[string]float64{"Washing_Machine": 75, "microwave": 45.5})

	got, err := p.BasePrice("washing_machine")
	require.NoError(t, err)
	assert.Equal(t, "75", got.String())

	got, err = p.BasePrice(" MICROWAVE ")
	require.NoError(t, err)
	assert.Equal(t, "45.5", got.String())

	_, err = p.BasePrice("toaster")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
