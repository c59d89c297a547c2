package domain

import "time"

// EventKind тип события, за которое начисляются баллы
type EventKind string

const (
	EventRepair   EventKind = "repair"
	EventDonation EventKind = "donation"
	EventOrder    EventKind = "order"
	EventReferral EventKind = "referral"
	EventReview   EventKind = "review"
)

var eventLabels = map[EventKind]string{
	EventRepair:   "Réparation",
	EventDonation: "Don d'appareil",
	EventOrder:    "Achat appareil",
	EventReferral: "Parrainage",
	EventReview:   "Avis client",
}

// Label подпись записи в истории, как её показывает интерфейс
func (k EventKind) Label() string { return eventLabels[k] }

func (k EventKind) Valid() bool {
	_, ok := eventLabels[k]
	return ok
}

// EventForCase событие, порождаемое завершением обращения данного варианта
func EventForCase(kind CaseKind) EventKind {
	switch kind {
	case CaseRepair:
		return EventRepair
	case CaseDonation:
		return EventDonation
	default:
		return EventOrder
	}
}

// LedgerEntry неизменяемая запись о начислении
type LedgerEntry struct {
	ID           string    `json:"id"`
	Label        string    `json:"label"`
	Points       int64     `json:"points"`
	OccurredAt   time.Time `json:"occurred_at"`
	SourceCaseID *string   `json:"source_case_id,omitempty"`
}

// LoyaltyAccount счёт баллов пользователя; создаётся при первом начислении
type LoyaltyAccount struct {
	UserID       string        `json:"user_id"`
	Points       int64         `json:"points"`
	ReferralCode string        `json:"referral_code"`
	History      []LedgerEntry `json:"history"`
	CreatedAt    time.Time     `json:"created_at"`
}

func (a *LoyaltyAccount) Clone() *LoyaltyAccount {
	cp := *a
	cp.History = append([]LedgerEntry(nil), a.History...)
	return &cp
}

// HasEntry было ли уже начисление с этой подписью за это обращение
func (a *LoyaltyAccount) HasEntry(sourceID, label string) bool {
	for _, e := range a.History {
		if e.SourceCaseID != nil && *e.SourceCaseID == sourceID && e.Label == label {
			return true
		}
	}
	return false
}

// RewardTier порог вознаграждения из каталога
type RewardTier struct {
	Label          string `json:"label" mapstructure:"label"`
	PointsRequired int64  `json:"points_required" mapstructure:"points_required"`
}

// TierStatus состояние порога для конкретного пользователя
type TierStatus struct {
	RewardTier
	Unlocked bool `json:"unlocked"`
}

// NextReward ближайшее неразблокированное вознаграждение
type NextReward struct {
	Label   string `json:"label"`
	Current int64  `json:"current"`
	Needed  int64  `json:"needed"`
}

// TierProgress прогресс по каталогу
type TierProgress struct {
	Points int64        `json:"points"`
	Tiers  []TierStatus `json:"tiers"`
	Next   *NextReward  `json:"next,omitempty"`
}
