package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"repairhub/internal/config"
	"repairhub/internal/domain"
)

// caseRow строка таблицы service_cases; поля варианта лежат в details (JSON)
type caseRow struct {
	ID            string         `gorm:"column:id;primaryKey;type:varchar(64)"`
	Kind          string         `gorm:"column:kind;type:varchar(16);not null;index:idx_owner_kind"`
	ReferenceCode string         `gorm:"column:reference_code;type:varchar(32);not null;uniqueIndex:uk_reference_code"`
	OwnerID       string         `gorm:"column:owner_id;type:varchar(64);not null;index:idx_owner_kind"`
	Status        string         `gorm:"column:status;type:varchar(16);not null"`
	Version       int64          `gorm:"column:version;not null"`
	Details       datatypes.JSON `gorm:"column:details;type:json;not null"`
	CreatedAt     time.Time      `gorm:"column:created_at;not null;index:idx_created_at"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;not null"`
	CompletedAt   *time.Time     `gorm:"column:completed_at"`
}

func (caseRow) TableName() string { return "service_cases" }

type sequenceRow struct {
	Prefix  string `gorm:"column:prefix;primaryKey;type:varchar(8)"`
	Year    int    `gorm:"column:year;primaryKey"`
	Counter int64  `gorm:"column:counter;not null"`
}

func (sequenceRow) TableName() string { return "case_sequences" }

type accountRow struct {
	UserID       string    `gorm:"column:user_id;primaryKey;type:varchar(64)"`
	Points       int64     `gorm:"column:points;not null;default:0"`
	ReferralCode string    `gorm:"column:referral_code;type:varchar(32);not null;uniqueIndex:uk_referral_code"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null"`
}

func (accountRow) TableName() string { return "loyalty_accounts" }

// entryRow запись журнала; уникальность (user_id, source_case_id, label) защищает от повторного начисления
type entryRow struct {
	ID           string    `gorm:"column:id;primaryKey;type:varchar(64)"`
	UserID       string    `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex:uk_entry_source,priority:1;index:idx_user_position,priority:1"`
	Position     int64     `gorm:"column:position;not null;index:idx_user_position,priority:2"`
	Label        string    `gorm:"column:label;type:varchar(64);not null;uniqueIndex:uk_entry_source,priority:3"`
	Points       int64     `gorm:"column:points;not null"`
	SourceCaseID *string   `gorm:"column:source_case_id;type:varchar(64);uniqueIndex:uk_entry_source,priority:2"`
	OccurredAt   time.Time `gorm:"column:occurred_at;not null"`
}

func (entryRow) TableName() string { return "loyalty_entries" }

// OpenDatabase открывает соединение по конфигурации (postgres или mysql)
func OpenDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverPostgres:
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
		)
		dialector = postgres.Open(dsn)
	case config.DriverMySQL:
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

// Migrate создаёт/обновляет таблицы
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&caseRow{}, &sequenceRow{}, &accountRow{}, &entryRow{})
}

type gormTxKey struct{}

// GormStore реализация CaseRepository и LoyaltyRepository поверх gorm
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

var (
	_ CaseRepository    = (*GormStore)(nil)
	_ LoyaltyRepository = (*GormStore)(nil)
	_ TxManager         = (*GormStore)(nil)
)

func (s *GormStore) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(gormTxKey{}).(*gorm.DB); ok {
		return tx
	}
	return s.db.WithContext(ctx)
}

// WithTransaction вложенные вызовы переиспользуют внешнюю транзакцию
func (s *GormStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(gormTxKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, gormTxKey{}, tx))
	})
	return classify(err)
}

// classify переводит ошибки драйвера в ошибки пакета
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	case IsTransient(err):
		return fmt.Errorf("%w: %v", ErrTransient, err)
	default:
		return err
	}
}

func (s *GormStore) Create(ctx context.Context, c domain.ServiceCase) error {
	b := c.Base()
	b.Version = 1
	row, err := toCaseRow(c)
	if err != nil {
		return err
	}
	return classify(s.conn(ctx).Create(row).Error)
}

func (s *GormStore) GetByID(ctx context.Context, id string) (domain.ServiceCase, error) {
	var row caseRow
	if err := s.conn(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, classify(err)
	}
	return fromCaseRow(&row)
}

func (s *GormStore) Save(ctx context.Context, c domain.ServiceCase, expectedVersion int64) error {
	b := c.Base()
	row, err := toCaseRow(c)
	if err != nil {
		return err
	}
	res := s.conn(ctx).
		Model(&caseRow{}).
		Where("id = ? AND version = ?", b.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":       row.Status,
			"version":      expectedVersion + 1,
			"details":      row.Details,
			"updated_at":   row.UpdatedAt,
			"completed_at": row.CompletedAt,
		})
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := s.conn(ctx).Model(&caseRow{}).Where("id = ?", b.ID).Count(&n).Error; err != nil {
			return classify(err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrConflict
	}
	b.Version = expectedVersion + 1
	return nil
}

func (s *GormStore) ListByOwner(ctx context.Context, ownerID string, f CaseFilter) ([]domain.ServiceCase, error) {
	q := s.conn(ctx).Where("owner_id = ?", ownerID)
	if f.Kind != "" {
		q = q.Where("kind = ?", string(f.Kind))
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	var rows []caseRow
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, classify(err)
	}
	out := make([]domain.ServiceCase, 0, len(rows))
	for i := range rows {
		c, err := fromCaseRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *GormStore) NextSequence(ctx context.Context, prefix string, year int) (int64, error) {
	var next int64
	err := s.WithTransaction(ctx, func(ctx context.Context) error {
		db := s.conn(ctx)
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "prefix"}, {Name: "year"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"counter": gorm.Expr("case_sequences.counter + 1")}),
		}).Create(&sequenceRow{Prefix: prefix, Year: year, Counter: 1}).Error
		if err != nil {
			return classify(err)
		}
		var row sequenceRow
		if err := db.Where("prefix = ? AND year = ?", prefix, year).First(&row).Error; err != nil {
			return classify(err)
		}
		next = row.Counter
		return nil
	})
	return next, err
}

func (s *GormStore) GetAccount(ctx context.Context, userID string) (*domain.LoyaltyAccount, error) {
	var row accountRow
	if err := s.conn(ctx).Where("user_id = ?", userID).First(&row).Error; err != nil {
		return nil, classify(err)
	}
	return s.loadAccount(ctx, &row)
}

func (s *GormStore) loadAccount(ctx context.Context, row *accountRow) (*domain.LoyaltyAccount, error) {
	var entries []entryRow
	if err := s.conn(ctx).Where("user_id = ?", row.UserID).Order("position ASC").Find(&entries).Error; err != nil {
		return nil, classify(err)
	}
	a := &domain.LoyaltyAccount{
		UserID:       row.UserID,
		Points:       row.Points,
		ReferralCode: row.ReferralCode,
		CreatedAt:    row.CreatedAt,
		History:      make([]domain.LedgerEntry, 0, len(entries)),
	}
	for _, e := range entries {
		a.History = append(a.History, domain.LedgerEntry{
			ID:           e.ID,
			Label:        e.Label,
			Points:       e.Points,
			OccurredAt:   e.OccurredAt,
			SourceCaseID: e.SourceCaseID,
		})
	}
	return a, nil
}

func (s *GormStore) CreateAccount(ctx context.Context, a *domain.LoyaltyAccount) error {
	row := &accountRow{
		UserID:       a.UserID,
		Points:       a.Points,
		ReferralCode: a.ReferralCode,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.CreatedAt,
	}
	// ON CONFLICT DO NOTHING: в Postgres упавший INSERT оборвал бы внешнюю транзакцию
	res := s.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrDuplicate
	}
	return nil
}

// AppendEntry блокирует строку счёта, чтобы начисления одного пользователя шли строго по очереди
func (s *GormStore) AppendEntry(ctx context.Context, userID string, e domain.LedgerEntry) (*domain.LoyaltyAccount, error) {
	var out *domain.LoyaltyAccount
	err := s.WithTransaction(ctx, func(ctx context.Context) error {
		db := s.conn(ctx)
		var row accountRow
		if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).First(&row).Error; err != nil {
			return classify(err)
		}
		// повтор проверяется под блокировкой счёта, без падающего INSERT
		if e.SourceCaseID != nil {
			var dup int64
			if err := db.Model(&entryRow{}).
				Where("user_id = ? AND source_case_id = ? AND label = ?", userID, *e.SourceCaseID, e.Label).
				Count(&dup).Error; err != nil {
				return classify(err)
			}
			if dup > 0 {
				return ErrDuplicate
			}
		}
		var n int64
		if err := db.Model(&entryRow{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
			return classify(err)
		}
		entry := &entryRow{
			ID:           e.ID,
			UserID:       userID,
			Position:     n + 1,
			Label:        e.Label,
			Points:       e.Points,
			SourceCaseID: e.SourceCaseID,
			OccurredAt:   e.OccurredAt,
		}
		if err := db.Create(entry).Error; err != nil {
			return classify(err)
		}
		row.Points += e.Points
		row.UpdatedAt = e.OccurredAt
		if err := db.Model(&accountRow{}).Where("user_id = ?", userID).
			Updates(map[string]interface{}{"points": row.Points, "updated_at": row.UpdatedAt}).Error; err != nil {
			return classify(err)
		}
		a, err := s.loadAccount(ctx, &row)
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	return out, err
}

func toCaseRow(c domain.ServiceCase) (*caseRow, error) {
	b := c.Base()
	details, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return &caseRow{
		ID:            b.ID,
		Kind:          string(b.Kind),
		ReferenceCode: b.ReferenceCode,
		OwnerID:       b.OwnerID,
		Status:        string(b.Status),
		Version:       b.Version,
		Details:       datatypes.JSON(details),
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
		CompletedAt:   b.CompletedAt,
	}, nil
}

// fromCaseRow колонки таблицы главнее копии базовых полей в details
func fromCaseRow(row *caseRow) (domain.ServiceCase, error) {
	var c domain.ServiceCase
	switch domain.CaseKind(row.Kind) {
	case domain.CaseRepair:
		c = &domain.Repair{}
	case domain.CaseDonation:
		c = &domain.Donation{}
	case domain.CaseOrder:
		c = &domain.Order{}
	default:
		return nil, fmt.Errorf("unknown case kind %q", row.Kind)
	}
	if err := json.Unmarshal(row.Details, c); err != nil {
		return nil, fmt.Errorf("decode case %s: %w", row.ID, err)
	}
	b := c.Base()
	b.ID = row.ID
	b.Kind = domain.CaseKind(row.Kind)
	b.ReferenceCode = row.ReferenceCode
	b.OwnerID = row.OwnerID
	b.Status = domain.Status(row.Status)
	b.Version = row.Version
	b.CreatedAt = row.CreatedAt
	b.UpdatedAt = row.UpdatedAt
	b.CompletedAt = row.CompletedAt
	return c, nil
}
