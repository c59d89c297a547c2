package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CaseKind вариант обращения
type CaseKind string

const (
	CaseRepair   CaseKind = "repair"
	CaseDonation CaseKind = "donation"
	CaseOrder    CaseKind = "order"
)

// Status статус обращения (общий тип для всех вариантов, допустимые значения зависят от варианта)
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusPickedUp   Status = "picked_up"
	StatusProcessed  Status = "processed"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
)

// CaseBase общие поля всех обращений
type CaseBase struct {
	ID            string     `json:"id"`
	Kind          CaseKind   `json:"kind"`
	ReferenceCode string     `json:"reference_code"`
	OwnerID       string     `json:"owner_id"`
	Status        Status     `json:"status"`
	Version       int64      `json:"version"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// ServiceCase общий контракт для Repair, Donation и Order
type ServiceCase interface {
	Base() *CaseBase
	Clone() ServiceCase
}

// InterventionStatus статус выезда мастера
type InterventionStatus string

const (
	InterventionScheduled  InterventionStatus = "scheduled"
	InterventionInProgress InterventionStatus = "in_progress"
	InterventionCompleted  InterventionStatus = "completed"
	InterventionCancelled  InterventionStatus = "cancelled"
)

// Part запчасть, установленная в рамках выезда
type Part struct {
	ID             string          `json:"id"`
	PartName       string          `json:"part_name"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Quantity       int64           `json:"quantity"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	WarrantyMonths int             `json:"warranty_months"`
}

// Intervention выезд мастера, принадлежит ровно одному ремонту
type Intervention struct {
	ID            string             `json:"id"`
	Seq           int                `json:"seq"`
	Date          time.Time          `json:"date"`
	TimeSlot      string             `json:"time_slot"`
	StartTime     *time.Time         `json:"start_time,omitempty"`
	EndTime       *time.Time         `json:"end_time,omitempty"`
	Status        InterventionStatus `json:"status"`
	Diagnosis     string             `json:"diagnosis,omitempty"`
	WorkPerformed string             `json:"work_performed,omitempty"`
	Parts         []Part             `json:"parts"`
	CreatedAt     time.Time          `json:"created_at"`
}

// Repair заявка на ремонт
type Repair struct {
	CaseBase
	ApplianceType    string          `json:"appliance_type"`
	Brand            string          `json:"brand"`
	Model            string          `json:"model"`
	IssueDescription string          `json:"issue_description"`
	BasePrice        decimal.Decimal `json:"base_price"`
	AdditionalCost   decimal.Decimal `json:"additional_cost"`
	TotalCost        decimal.Decimal `json:"total_cost"`
	Interventions    []Intervention  `json:"interventions"`
}

func (r *Repair) Base() *CaseBase { return &r.CaseBase }

func (r *Repair) Clone() ServiceCase {
	cp := *r
	cp.CompletedAt = cloneTime(r.CompletedAt)
	cp.Interventions = make([]Intervention, len(r.Interventions))
	for i, iv := range r.Interventions {
		iv.StartTime = cloneTime(iv.StartTime)
		iv.EndTime = cloneTime(iv.EndTime)
		parts := make([]Part, len(iv.Parts))
		copy(parts, iv.Parts)
		iv.Parts = parts
		cp.Interventions[i] = iv
	}
	return &cp
}

// Intervention ищет выезд по id
func (r *Repair) Intervention(id string) *Intervention {
	for i := range r.Interventions {
		if r.Interventions[i].ID == id {
			return &r.Interventions[i]
		}
	}
	return nil
}

// LatestIntervention выезд с наибольшими (date, seq); nil если выездов нет
func (r *Repair) LatestIntervention() *Intervention {
	var latest *Intervention
	for i := range r.Interventions {
		iv := &r.Interventions[i]
		if latest == nil || iv.Date.After(latest.Date) || (iv.Date.Equal(latest.Date) && iv.Seq > latest.Seq) {
			latest = iv
		}
	}
	return latest
}

// Parts все запчасти ремонта по всем выездам
func (r *Repair) Parts() []Part {
	var out []Part
	for _, iv := range r.Interventions {
		out = append(out, iv.Parts...)
	}
	return out
}

// Address адрес забора техники
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

// Donation передача техники в дар
type Donation struct {
	CaseBase
	ApplianceType string     `json:"appliance_type"`
	Brand         string     `json:"brand,omitempty"`
	PickupDate    *time.Time `json:"pickup_date,omitempty"`
	Address       Address    `json:"address"`
}

func (d *Donation) Base() *CaseBase { return &d.CaseBase }

func (d *Donation) Clone() ServiceCase {
	cp := *d
	cp.CompletedAt = cloneTime(d.CompletedAt)
	cp.PickupDate = cloneTime(d.PickupDate)
	return &cp
}

// OrderItem позиция в заказе
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
}

// Order покупка восстановленной техники
type Order struct {
	CaseBase
	Items        []OrderItem     `json:"items"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	DeliveryDate *time.Time      `json:"delivery_date,omitempty"`
}

func (o *Order) Base() *CaseBase { return &o.CaseBase }

func (o *Order) Clone() ServiceCase {
	cp := *o
	cp.CompletedAt = cloneTime(o.CompletedAt)
	cp.DeliveryDate = cloneTime(o.DeliveryDate)
	cp.Items = make([]OrderItem, len(o.Items))
	copy(cp.Items, o.Items)
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

// CaseEvent уведомление о завершении обращения (completed, delivered или cancelled)
type CaseEvent struct {
	CaseID        string    `json:"case_id"`
	ReferenceCode string    `json:"reference_code"`
	Kind          CaseKind  `json:"kind"`
	OwnerID       string    `json:"owner_id"`
	Status        Status    `json:"status"`
	At            time.Time `json:"at"`
}

// NewCaseEvent снимок полей обращения для уведомления
func NewCaseEvent(c ServiceCase) CaseEvent {
	b := c.Base()
	return CaseEvent{
		CaseID:        b.ID,
		ReferenceCode: b.ReferenceCode,
		Kind:          b.Kind,
		OwnerID:       b.OwnerID,
		Status:        b.Status,
		At:            b.UpdatedAt,
	}
}
