package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"math"
	"net"
	"syscall"
	"time"

	"go.uber.org/zap"

	"repairhub/internal/domain"
	"repairhub/internal/metrics"
)

// RetryConfig параметры повторов на границе хранилища
type RetryConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    50 * time.Millisecond,
		MaxBackoff:        2 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

func (c RetryConfig) backoff(attempt int) time.Duration {
	d := float64(c.InitialBackoff) * math.Pow(c.BackoffMultiplier, float64(attempt))
	if limit := float64(c.MaxBackoff); c.MaxBackoff > 0 && d > limit {
		d = limit
	}
	return time.Duration(d)
}

// IsTransient можно ли повторить операцию после этой ошибки.
// Бизнес-ошибки и конфликты версий не повторяются никогда.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

type retrier struct {
	cfg RetryConfig
	log *zap.Logger
}

// do повторяет fn с экспоненциальной задержкой; по исчерпании возвращает StorageUnavailable
func (r retrier) do(ctx context.Context, op string, fn func() error) error {
	if inTransaction(ctx) {
		return fn()
	}
	for attempt := 0; ; attempt++ {
		err := fn()
		if !IsTransient(err) || domain.KindOf(err) == domain.KindStorageUnavailable {
			return err
		}
		if attempt >= r.cfg.MaxRetries {
			r.log.Error("storage retries exhausted", zap.String("op", op), zap.Int("attempts", attempt+1), zap.Error(err))
			return domain.StorageUnavailable(err)
		}
		wait := r.cfg.backoff(attempt)
		metrics.RecordStorageRetry(op)
		r.log.Warn("transient storage error, retrying", zap.String("op", op), zap.Int("attempt", attempt+1), zap.Duration("backoff", wait), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// inTransaction внутри транзакции повторяет только внешний RetryingTx
func inTransaction(ctx context.Context) bool {
	return isTx(ctx) || ctx.Value(gormTxKey{}) != nil
}

// RetryingTx повторяет единицу работы целиком: частично выполненную транзакцию
// повторять по одному запросу нельзя.
type RetryingTx struct {
	next TxManager
	r    retrier
}

func NewRetryingTx(next TxManager, cfg RetryConfig, log *zap.Logger) *RetryingTx {
	return &RetryingTx{next: next, r: retrier{cfg: cfg, log: log}}
}

func (t *RetryingTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.r.do(ctx, "transaction", func() error {
		return t.next.WithTransaction(ctx, fn)
	})
}

// RetryingCases повторяет чтения вне транзакции; записи идут внутри RetryingTx.
type RetryingCases struct {
	CaseRepository
	r retrier
}

func NewRetryingCases(next CaseRepository, cfg RetryConfig, log *zap.Logger) *RetryingCases {
	return &RetryingCases{CaseRepository: next, r: retrier{cfg: cfg, log: log}}
}

func (rc *RetryingCases) GetByID(ctx context.Context, id string) (domain.ServiceCase, error) {
	var out domain.ServiceCase
	err := rc.r.do(ctx, "cases.get", func() error {
		c, err := rc.CaseRepository.GetByID(ctx, id)
		out = c
		return err
	})
	return out, err
}

func (rc *RetryingCases) ListByOwner(ctx context.Context, ownerID string, f CaseFilter) ([]domain.ServiceCase, error) {
	var out []domain.ServiceCase
	err := rc.r.do(ctx, "cases.list", func() error {
		list, err := rc.CaseRepository.ListByOwner(ctx, ownerID, f)
		out = list
		return err
	})
	return out, err
}

// RetryingLoyalty то же для чтения счетов лояльности
type RetryingLoyalty struct {
	LoyaltyRepository
	r retrier
}

func NewRetryingLoyalty(next LoyaltyRepository, cfg RetryConfig, log *zap.Logger) *RetryingLoyalty {
	return &RetryingLoyalty{LoyaltyRepository: next, r: retrier{cfg: cfg, log: log}}
}

func (rl *RetryingLoyalty) GetAccount(ctx context.Context, userID string) (*domain.LoyaltyAccount, error) {
	var out *domain.LoyaltyAccount
	err := rl.r.do(ctx, "loyalty.get", func() error {
		a, err := rl.LoyaltyRepository.GetAccount(ctx, userID)
		out = a
		return err
	})
	return out, err
}
