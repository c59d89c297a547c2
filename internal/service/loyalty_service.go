package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"repairhub/internal/domain"
	"repairhub/internal/metrics"
	"repairhub/internal/repository"
)

const referralCodeAttempts = 5

// LoyaltyService журнал начислений: только добавление, баланс равен сумме истории
type LoyaltyService struct {
	accounts repository.LoyaltyRepository
	tx       repository.TxManager
	catalog  *Catalog
	rates    map[domain.EventKind]int64
	log      *zap.Logger
	now      func() time.Time
}

func NewLoyaltyService(accounts repository.LoyaltyRepository, tx repository.TxManager, catalog *Catalog, rates map[string]int64, log *zap.Logger) *LoyaltyService {
	r := make(map[domain.EventKind]int64, len(rates))
	for k, v := range rates {
		r[domain.EventKind(k)] = v
	}
	return &LoyaltyService{accounts: accounts, tx: tx, catalog: catalog, rates: r, log: log, now: time.Now}
}

// Rate баллы за событие данного типа; 0 если ставка не настроена
func (s *LoyaltyService) Rate(kind domain.EventKind) int64 { return s.rates[kind] }

// RecordResult итог начисления. Credited=false означает повтор уже учтённого события.
type RecordResult struct {
	Account  *domain.LoyaltyAccount
	Entry    *domain.LedgerEntry
	Credited bool
}

// RecordEvent дописывает запись и увеличивает баланс; счёт создаётся при первом начислении.
// Одно обращение даёт не больше одной записи с данной подписью.
func (s *LoyaltyService) RecordEvent(ctx context.Context, userID, label string, points int64, sourceID *string) (*RecordResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.FieldRequired("user_id")
	}
	if strings.TrimSpace(label) == "" {
		return nil, domain.FieldRequired("label")
	}
	if points < 0 {
		return nil, domain.Validation("points must not be negative", domain.ErrorDetail{Path: "points", Info: "must be >= 0"})
	}

	var res *RecordResult
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		account, err := s.ensureAccount(ctx, userID)
		if err != nil {
			return err
		}
		if sourceID != nil && account.HasEntry(*sourceID, label) {
			res = &RecordResult{Account: account}
			return nil
		}
		entry := domain.LedgerEntry{
			ID:           uuid.NewString(),
			Label:        label,
			Points:       points,
			OccurredAt:   s.now().UTC(),
			SourceCaseID: sourceID,
		}
		updated, err := s.accounts.AppendEntry(ctx, userID, entry)
		if errors.Is(err, repository.ErrDuplicate) {
			res = &RecordResult{Account: account}
			return nil
		}
		if err != nil {
			return storeError(err, "loyalty account", userID)
		}
		res = &RecordResult{Account: updated, Entry: &entry, Credited: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Credited {
		s.log.Info("ledger entry recorded",
			zap.String("user_id", userID),
			zap.String("label", label),
			zap.Int64("points", points),
			zap.Int64("balance", res.Account.Points),
		)
	} else {
		s.log.Debug("ledger entry already recorded", zap.String("user_id", userID), zap.String("label", label))
	}
	return res, nil
}

// RecordCaseCompletion начисление за обращение, достигшее конечного успешного статуса
func (s *LoyaltyService) RecordCaseCompletion(ctx context.Context, c domain.ServiceCase) (*RecordResult, error) {
	b := c.Base()
	kind := domain.EventForCase(b.Kind)
	source := b.ID
	res, err := s.RecordEvent(ctx, b.OwnerID, kind.Label(), s.Rate(kind), &source)
	if err == nil && res.Credited {
		metrics.RecordPoints(string(kind), res.Entry.Points)
	}
	return res, err
}

// RecordExternalEvent начисление за событие вне жизненного цикла обращений (реферал, отзыв)
func (s *LoyaltyService) RecordExternalEvent(ctx context.Context, userID string, kind domain.EventKind, sourceID string) (*RecordResult, error) {
	if kind != domain.EventReferral && kind != domain.EventReview {
		return nil, domain.Validation("unsupported event kind "+string(kind),
			domain.ErrorDetail{Path: "kind", Info: "must be referral or review"})
	}
	if strings.TrimSpace(sourceID) == "" {
		return nil, domain.FieldRequired("source_id")
	}
	res, err := s.RecordEvent(ctx, userID, kind.Label(), s.Rate(kind), &sourceID)
	if err == nil && res.Credited {
		metrics.RecordPoints(string(kind), res.Entry.Points)
	}
	return res, err
}

func (s *LoyaltyService) ensureAccount(ctx context.Context, userID string) (*domain.LoyaltyAccount, error) {
	account, err := s.accounts.GetAccount(ctx, userID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, storeError(err, "loyalty account", userID)
	}
	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		account = &domain.LoyaltyAccount{
			UserID:       userID,
			ReferralCode: newReferralCode(),
			History:      []domain.LedgerEntry{},
			CreatedAt:    s.now().UTC(),
		}
		err = s.accounts.CreateAccount(ctx, account)
		if err == nil {
			s.log.Info("loyalty account created", zap.String("user_id", userID), zap.String("referral_code", account.ReferralCode))
			return account, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, storeError(err, "loyalty account", userID)
		}
		// счёт мог создать параллельный запрос; иначе занят referral_code
		existing, err := s.accounts.GetAccount(ctx, userID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, storeError(err, "loyalty account", userID)
		}
	}
	return nil, domain.Conflict("could not allocate a unique referral code for %s", userID)
}

// newReferralCode RH + 8 символов hex в верхнем регистре
func newReferralCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "RH" + strings.ToUpper(raw[:8])
}

// TierProgress только чтение; без счёта баланс считается нулевым
func (s *LoyaltyService) TierProgress(ctx context.Context, userID string) (domain.TierProgress, error) {
	account, err := s.accounts.GetAccount(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return s.catalog.Progress(0), nil
	}
	if err != nil {
		return domain.TierProgress{}, storeError(err, "loyalty account", userID)
	}
	return s.catalog.Progress(account.Points), nil
}

// LoyaltySummary данные для страницы лояльности
type LoyaltySummary struct {
	UserID       string               `json:"user_id"`
	Points       int64                `json:"points"`
	ReferralCode string               `json:"referral_code,omitempty"`
	History      []domain.LedgerEntry `json:"history"`
	Progress     domain.TierProgress  `json:"progress"`
}

// Summary баланс, реферальный код, история (новые первыми) и прогресс
func (s *LoyaltyService) Summary(ctx context.Context, userID string) (*LoyaltySummary, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.FieldRequired("user_id")
	}
	out := &LoyaltySummary{UserID: userID, History: []domain.LedgerEntry{}}
	account, err := s.accounts.GetAccount(ctx, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return nil, storeError(err, "loyalty account", userID)
	default:
		out.Points = account.Points
		out.ReferralCode = account.ReferralCode
		for i := len(account.History) - 1; i >= 0; i-- {
			out.History = append(out.History, account.History[i])
		}
		sort.SliceStable(out.History, func(i, j int) bool {
			return out.History[i].OccurredAt.After(out.History[j].OccurredAt)
		})
	}
	out.Progress = s.catalog.Progress(out.Points)
	return out, nil
}

// Catalog каталог вознаграждений
func (s *LoyaltyService) Catalog() []domain.RewardTier { return s.catalog.Tiers() }
