package service

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"repairhub/internal/domain"
	"repairhub/internal/metrics"
	"repairhub/internal/repository"
)

const notifyTimeout = 5 * time.Second

// Notifier доставка уведомлений о завершении обращений; ошибки только логируются
type Notifier interface {
	Notify(ctx context.Context, ev domain.CaseEvent) error
}

// CaseService движок жизненного цикла обращений: создание, переходы статусов,
// производные стоимости и начисление баллов в одной транзакции с переходом.
type CaseService struct {
	cases       repository.CaseRepository
	tx          repository.TxManager
	loyalty     *LoyaltyService
	prices      *PriceTable
	eligibility *Eligibility
	notifier    Notifier
	log         *zap.Logger
	now         func() time.Time

	pending sync.WaitGroup
}

func NewCaseService(
	cases repository.CaseRepository,
	tx repository.TxManager,
	loyalty *LoyaltyService,
	prices *PriceTable,
	eligibility *Eligibility,
	notifier Notifier,
	log *zap.Logger,
) *CaseService {
	return &CaseService{
		cases:       cases,
		tx:          tx,
		loyalty:     loyalty,
		prices:      prices,
		eligibility: eligibility,
		notifier:    notifier,
		log:         log,
		now:         time.Now,
	}
}

type CreateRepairInput struct {
	OwnerID          string
	ApplianceType    string
	Brand            string
	Model            string
	IssueDescription string
}

type CreateDonationInput struct {
	OwnerID       string
	ApplianceType string
	Brand         string
	Address       domain.Address
	PickupDate    *time.Time
}

type CreateOrderInput struct {
	OwnerID string
	Items   []domain.OrderItem
}

// requireFields ValidationError со списком всех пустых полей
func requireFields(fields map[string]string) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	var details []domain.ErrorDetail
	for _, name := range names {
		if strings.TrimSpace(fields[name]) == "" {
			details = append(details, domain.ErrorDetail{Path: name, Info: name + " is required"})
		}
	}
	if len(details) == 0 {
		return nil
	}
	return domain.Validation("missing required fields", details...)
}

func (s *CaseService) CreateRepair(ctx context.Context, in CreateRepairInput) (*domain.Repair, error) {
	if err := requireFields(map[string]string{
		"owner_id":          in.OwnerID,
		"appliance_type":    in.ApplianceType,
		"brand":             in.Brand,
		"model":             in.Model,
		"issue_description": in.IssueDescription,
	}); err != nil {
		return nil, err
	}
	base, err := s.prices.BasePrice(in.ApplianceType)
	if err != nil {
		return nil, err
	}
	r := &domain.Repair{
		CaseBase:         domain.CaseBase{Kind: domain.CaseRepair, OwnerID: in.OwnerID},
		ApplianceType:    in.ApplianceType,
		Brand:            in.Brand,
		Model:            in.Model,
		IssueDescription: in.IssueDescription,
		BasePrice:        base,
		Interventions:    []domain.Intervention{},
	}
	r.RecomputeCosts()
	if err := s.create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// CreateDonation индекс проверяется до того, как что-либо будет сохранено
func (s *CaseService) CreateDonation(ctx context.Context, in CreateDonationInput) (*domain.Donation, error) {
	if err := requireFields(map[string]string{
		"owner_id":            in.OwnerID,
		"appliance_type":      in.ApplianceType,
		"address.street":      in.Address.Street,
		"address.city":        in.Address.City,
		"address.postal_code": in.Address.PostalCode,
	}); err != nil {
		return nil, err
	}
	if !s.eligibility.IsEligible(in.Address.PostalCode) {
		return nil, domain.Validation("postal code "+in.Address.PostalCode+" is outside the service area",
			domain.ErrorDetail{Path: "address.postal_code", Info: "not eligible"})
	}
	d := &domain.Donation{
		CaseBase:      domain.CaseBase{Kind: domain.CaseDonation, OwnerID: in.OwnerID},
		ApplianceType: in.ApplianceType,
		Brand:         in.Brand,
		Address:       in.Address,
	}
	if in.PickupDate != nil {
		t := in.PickupDate.UTC()
		d.PickupDate = &t
	}
	if err := s.create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *CaseService) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	if strings.TrimSpace(in.OwnerID) == "" {
		return nil, domain.FieldRequired("owner_id")
	}
	if err := validateItems(in.Items); err != nil {
		return nil, err
	}
	o := &domain.Order{
		CaseBase: domain.CaseBase{Kind: domain.CaseOrder, OwnerID: in.OwnerID},
		Items:    append([]domain.OrderItem(nil), in.Items...),
	}
	o.RecomputeTotal()
	if err := s.create(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func validateItems(items []domain.OrderItem) error {
	if len(items) == 0 {
		return domain.Validation("order requires at least one item", domain.ErrorDetail{Path: "items", Info: "must not be empty"})
	}
	var details []domain.ErrorDetail
	for i, it := range items {
		path := "items[" + strconv.Itoa(i) + "]"
		if strings.TrimSpace(it.ProductID) == "" {
			details = append(details, domain.ErrorDetail{Path: path + ".product_id", Info: "product_id is required"})
		}
		if it.Quantity < 1 {
			details = append(details, domain.ErrorDetail{Path: path + ".quantity", Info: "quantity must be >= 1"})
		}
		if it.UnitPrice.LessThan(decimal.Zero) {
			details = append(details, domain.ErrorDetail{Path: path + ".unit_price", Info: "unit_price must be >= 0"})
		}
	}
	if len(details) > 0 {
		return domain.Validation("invalid order items", details...)
	}
	return nil
}

// create присваивает id, reference_code и статус pending в одной транзакции с сохранением
func (s *CaseService) create(ctx context.Context, c domain.ServiceCase) error {
	b := c.Base()
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		now := s.now().UTC()
		ref, err := nextReferenceCode(ctx, s.cases, b.Kind, now)
		if err != nil {
			return err
		}
		b.ID = uuid.NewString()
		b.ReferenceCode = ref
		b.Status = domain.StatusPending
		b.CreatedAt = now
		b.UpdatedAt = now
		b.CompletedAt = nil
		return storeError(s.cases.Create(ctx, c), string(b.Kind), ref)
	})
	if err != nil {
		return err
	}
	s.log.Info("case created",
		zap.String("case_id", b.ID),
		zap.String("reference_code", b.ReferenceCode),
		zap.String("kind", string(b.Kind)),
		zap.String("owner_id", b.OwnerID),
	)
	return nil
}

func (s *CaseService) GetCase(ctx context.Context, id string) (domain.ServiceCase, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.FieldRequired("id")
	}
	c, err := s.cases.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "case", id)
	}
	return c, nil
}

// ListByOwner новые первыми, с необязательным фильтром по варианту и статусу
func (s *CaseService) ListByOwner(ctx context.Context, ownerID string, f repository.CaseFilter) ([]domain.ServiceCase, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, domain.FieldRequired("owner")
	}
	if f.Kind != "" && referencePrefixes[f.Kind] == "" {
		return nil, domain.Validation("unknown case kind "+string(f.Kind), domain.ErrorDetail{Path: "kind", Info: "repair, donation or order"})
	}
	if f.Status != "" && !knownAnywhere(f.Kind, f.Status) {
		return nil, domain.Validation("unknown status "+string(f.Status), domain.ErrorDetail{Path: "status", Info: "not a case status"})
	}
	list, err := s.cases.ListByOwner(ctx, ownerID, f)
	if err != nil {
		return nil, storeError(err, "cases of", ownerID)
	}
	return list, nil
}

func knownAnywhere(kind domain.CaseKind, st domain.Status) bool {
	if kind != "" {
		return domain.KnownStatus(kind, st)
	}
	for k := range referencePrefixes {
		if domain.KnownStatus(k, st) {
			return true
		}
	}
	return false
}

// CaseStats счётчики для бейджей панели клиента
type CaseStats struct {
	Total     int                                       `json:"total"`
	Active    int                                       `json:"active"`
	Completed int                                       `json:"completed"`
	Cancelled int                                       `json:"cancelled"`
	ByKind    map[domain.CaseKind]map[domain.Status]int `json:"by_kind"`
}

func (s *CaseService) OwnerStats(ctx context.Context, ownerID string) (*CaseStats, error) {
	list, err := s.ListByOwner(ctx, ownerID, repository.CaseFilter{})
	if err != nil {
		return nil, err
	}
	st := &CaseStats{ByKind: map[domain.CaseKind]map[domain.Status]int{}}
	for _, c := range list {
		b := c.Base()
		if st.ByKind[b.Kind] == nil {
			st.ByKind[b.Kind] = map[domain.Status]int{}
		}
		st.ByKind[b.Kind][b.Status]++
		st.Total++
		switch {
		case b.Status == domain.StatusCancelled:
			st.Cancelled++
		case b.Status == domain.TerminalSuccess(b.Kind):
			st.Completed++
		default:
			st.Active++
		}
	}
	return st, nil
}

type TransitionInput struct {
	CaseID          string
	To              domain.Status
	ExpectedVersion *int64
	// DeliveryDate только для перехода заказа в shipped
	DeliveryDate *time.Time
}

// Transition проверяет граф и охранные условия, сохраняет статус с проверкой версии и,
// при конечном успешном статусе, начисляет баллы в той же транзакции.
func (s *CaseService) Transition(ctx context.Context, in TransitionInput) (domain.ServiceCase, error) {
	if strings.TrimSpace(in.CaseID) == "" {
		return nil, domain.FieldRequired("id")
	}
	if in.To == "" {
		return nil, domain.FieldRequired("status")
	}

	expected := in.ExpectedVersion
	if expected == nil {
		// без явной версии сравниваем с тем, что видел вызывающий до транзакции:
		// изменение между чтением и записью даёт Conflict
		seen, err := s.cases.GetByID(ctx, in.CaseID)
		if err != nil {
			return nil, storeError(err, "case", in.CaseID)
		}
		v := seen.Base().Version
		expected = &v
	}

	var (
		updated domain.ServiceCase
		from    domain.Status
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		c, err := s.cases.GetByID(ctx, in.CaseID)
		if err != nil {
			return storeError(err, "case", in.CaseID)
		}
		b := c.Base()
		version := b.Version
		if *expected != version {
			return domain.Conflict("case %s is at version %d, expected %d", b.ReferenceCode, version, *expected)
		}
		if in.DeliveryDate != nil {
			o, ok := c.(*domain.Order)
			if !ok || in.To != domain.StatusShipped {
				return domain.Validation("delivery_date is only accepted when shipping an order",
					domain.ErrorDetail{Path: "delivery_date", Info: "unexpected"})
			}
			d := in.DeliveryDate.UTC()
			o.DeliveryDate = &d
		}

		domain.RecomputeDerived(c)
		if err := domain.ValidateTransition(c, in.To); err != nil {
			return err
		}
		from = b.Status
		reachedSuccess := domain.ApplyTransition(c, in.To, s.now().UTC())
		if err := s.cases.Save(ctx, c, version); err != nil {
			return storeError(err, "case", b.ReferenceCode)
		}
		if reachedSuccess {
			if _, err := s.loyalty.RecordCaseCompletion(ctx, c); err != nil {
				return err
			}
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	b := updated.Base()
	metrics.RecordTransition(string(b.Kind), string(b.Status))
	s.log.Info("transition applied",
		zap.String("case_id", b.ID),
		zap.String("reference_code", b.ReferenceCode),
		zap.String("from", string(from)),
		zap.String("to", string(b.Status)),
		zap.Int64("version", b.Version),
	)
	if domain.IsTerminal(b.Kind, b.Status) {
		s.notify(ctx, domain.NewCaseEvent(updated))
	}
	return updated, nil
}

// notify вызывается после фиксации; ошибка доставки не откатывает переход
func (s *CaseService) notify(ctx context.Context, ev domain.CaseEvent) {
	if s.notifier == nil {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := s.notifier.Notify(nctx, ev); err != nil {
			s.log.Warn("case notification failed",
				zap.String("case_id", ev.CaseID),
				zap.String("reference_code", ev.ReferenceCode),
				zap.Error(err),
			)
		}
	}()
}

// WaitNotifications дожидается отправки уведомлений (остановка сервиса, тесты)
func (s *CaseService) WaitNotifications() { s.pending.Wait() }

// ReplaceOrderItems состав заказа меняется только в статусе pending
func (s *CaseService) ReplaceOrderItems(ctx context.Context, orderID string, items []domain.OrderItem, expectedVersion *int64) (*domain.Order, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}
	var out *domain.Order
	err := s.mutate(ctx, orderID, expectedVersion, func(c domain.ServiceCase) error {
		o, ok := c.(*domain.Order)
		if !ok {
			return domain.NotFound("order", orderID)
		}
		if o.Status != domain.StatusPending {
			return domain.InvalidState("order %s items can only change while pending (status %s)", o.ReferenceCode, o.Status)
		}
		o.Items = append([]domain.OrderItem(nil), items...)
		o.RecomputeTotal()
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetPickupDate дата забора задаётся в pending или confirmed
func (s *CaseService) SetPickupDate(ctx context.Context, donationID string, date time.Time, expectedVersion *int64) (*domain.Donation, error) {
	if date.IsZero() {
		return nil, domain.FieldRequired("pickup_date")
	}
	var out *domain.Donation
	err := s.mutate(ctx, donationID, expectedVersion, func(c domain.ServiceCase) error {
		d, ok := c.(*domain.Donation)
		if !ok {
			return domain.NotFound("donation", donationID)
		}
		if d.Status != domain.StatusPending && d.Status != domain.StatusConfirmed {
			return domain.InvalidState("donation %s pickup date is fixed once picked up (status %s)", d.ReferenceCode, d.Status)
		}
		t := date.UTC()
		d.PickupDate = &t
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// mutate загрузка, изменение, пересчёт производных полей и сохранение с проверкой версии
func (s *CaseService) mutate(ctx context.Context, id string, expectedVersion *int64, fn func(c domain.ServiceCase) error) error {
	return mutateCase(ctx, s.cases, s.tx, s.now, id, expectedVersion, fn)
}

func mutateCase(
	ctx context.Context,
	cases repository.CaseRepository,
	tx repository.TxManager,
	now func() time.Time,
	id string,
	expectedVersion *int64,
	fn func(c domain.ServiceCase) error,
) error {
	if strings.TrimSpace(id) == "" {
		return domain.FieldRequired("id")
	}
	return tx.WithTransaction(ctx, func(ctx context.Context) error {
		c, err := cases.GetByID(ctx, id)
		if err != nil {
			return storeError(err, "case", id)
		}
		b := c.Base()
		version := b.Version
		if expectedVersion != nil && *expectedVersion != version {
			return domain.Conflict("case %s is at version %d, expected %d", b.ReferenceCode, version, *expectedVersion)
		}
		if err := fn(c); err != nil {
			return err
		}
		domain.RecomputeDerived(c)
		b.UpdatedAt = now().UTC()
		return storeError(cases.Save(ctx, c, version), "case", b.ReferenceCode)
	})
}
