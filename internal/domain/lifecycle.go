package domain

import "time"

// Прямые переходы по вариантам. cancelled допустим из любого нетерминального статуса
// и в графы не включается.
var forward = map[CaseKind]map[Status]Status{
	CaseRepair: {
		StatusPending:    StatusConfirmed,
		StatusConfirmed:  StatusScheduled,
		StatusScheduled:  StatusInProgress,
		StatusInProgress: StatusCompleted,
	},
	CaseDonation: {
		StatusPending:   StatusConfirmed,
		StatusConfirmed: StatusPickedUp,
		StatusPickedUp:  StatusProcessed,
		StatusProcessed: StatusCompleted,
	},
	CaseOrder: {
		StatusPending:   StatusConfirmed,
		StatusConfirmed: StatusShipped,
		StatusShipped:   StatusDelivered,
	},
}

var terminalSuccess = map[CaseKind]Status{
	CaseRepair:   StatusCompleted,
	CaseDonation: StatusCompleted,
	CaseOrder:    StatusDelivered,
}

// TerminalSuccess конечный успешный статус варианта
func TerminalSuccess(kind CaseKind) Status { return terminalSuccess[kind] }

func IsTerminal(kind CaseKind, s Status) bool {
	return s == StatusCancelled || s == terminalSuccess[kind]
}

// KnownStatus принадлежит ли статус графу варианта
func KnownStatus(kind CaseKind, s Status) bool {
	if s == StatusCancelled {
		return true
	}
	graph, ok := forward[kind]
	if !ok {
		return false
	}
	if _, ok := graph[s]; ok {
		return true
	}
	return s == terminalSuccess[kind]
}

// NextStatuses допустимые целевые статусы из текущего
func NextStatuses(kind CaseKind, from Status) []Status {
	if IsTerminal(kind, from) {
		return nil
	}
	out := make([]Status, 0, 2)
	if next, ok := forward[kind][from]; ok {
		out = append(out, next)
	}
	return append(out, StatusCancelled)
}

func CanTransition(kind CaseKind, from, to Status) bool {
	for _, s := range NextStatuses(kind, from) {
		if s == to {
			return true
		}
	}
	return false
}

// ValidateTransition проверяет граф и охранные условия варианта
func ValidateTransition(c ServiceCase, to Status) error {
	b := c.Base()
	if !CanTransition(b.Kind, b.Status, to) {
		return InvalidTransition(b.Kind, b.Status, to)
	}
	switch v := c.(type) {
	case *Repair:
		switch to {
		case StatusScheduled:
			if len(v.Interventions) == 0 {
				return InvalidState("repair %s has no intervention scheduled", b.ReferenceCode)
			}
		case StatusCompleted:
			latest := v.LatestIntervention()
			if latest == nil || latest.Status != InterventionCompleted {
				return InvalidState("latest intervention of repair %s is not completed", b.ReferenceCode)
			}
		}
	case *Donation:
		if to == StatusPickedUp && v.PickupDate == nil {
			return InvalidState("donation %s has no pickup date", b.ReferenceCode)
		}
	}
	return nil
}

// ApplyTransition меняет статус; true если достигнут конечный успешный статус.
// completed_at выставляется один раз и больше не меняется.
func ApplyTransition(c ServiceCase, to Status, now time.Time) bool {
	b := c.Base()
	b.Status = to
	b.UpdatedAt = now
	if to != terminalSuccess[b.Kind] {
		return false
	}
	if b.CompletedAt == nil {
		at := now
		switch v := c.(type) {
		case *Repair:
			if latest := v.LatestIntervention(); latest != nil && latest.EndTime != nil {
				at = *latest.EndTime
			}
		case *Order:
			if v.DeliveryDate == nil {
				d := now
				v.DeliveryDate = &d
			}
		}
		b.CompletedAt = &at
	}
	return true
}
