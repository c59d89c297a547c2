package repository

import (
	"context"
	"errors"

	"repairhub/internal/domain"
)

var (
	// ErrNotFound возвращается, когда сущность не найдена
	ErrNotFound = errors.New("not found")
	// ErrConflict версия в хранилище не совпала с ожидаемой
	ErrConflict = errors.New("version conflict")
	// ErrDuplicate нарушение уникальности (reference_code, referral_code, повторное начисление)
	ErrDuplicate = errors.New("duplicate key")
	// ErrTransient временный сбой хранилища, операцию можно повторить
	ErrTransient = errors.New("transient storage failure")
)

// CaseFilter параметры фильтрации списка обращений
type CaseFilter struct {
	Kind   domain.CaseKind
	Status domain.Status
}

func (f CaseFilter) match(c domain.ServiceCase) bool {
	b := c.Base()
	if f.Kind != "" && b.Kind != f.Kind {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	return true
}

// CaseRepository хранилище обращений (Repair, Donation, Order)
type CaseRepository interface {
	Create(ctx context.Context, c domain.ServiceCase) error
	GetByID(ctx context.Context, id string) (domain.ServiceCase, error)
	// Save сохраняет c, если версия в хранилище равна expectedVersion, и увеличивает c.Version
	Save(ctx context.Context, c domain.ServiceCase, expectedVersion int64) error
	// ListByOwner обращения владельца, новые первыми
	ListByOwner(ctx context.Context, ownerID string, f CaseFilter) ([]domain.ServiceCase, error)
	// NextSequence следующий номер для reference_code в рамках префикса и года
	NextSequence(ctx context.Context, prefix string, year int) (int64, error)
}

// LoyaltyRepository хранилище счетов лояльности
type LoyaltyRepository interface {
	GetAccount(ctx context.Context, userID string) (*domain.LoyaltyAccount, error)
	// CreateAccount ErrDuplicate если счёт уже есть или referral_code занят
	CreateAccount(ctx context.Context, a *domain.LoyaltyAccount) error
	// AppendEntry дописывает запись в историю и прибавляет баллы к счёту
	AppendEntry(ctx context.Context, userID string, e domain.LedgerEntry) (*domain.LoyaltyAccount, error)
}

// TxManager абстракция транзакции. Для in-memory это глобальная блокировка записи со снимком для отката.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
