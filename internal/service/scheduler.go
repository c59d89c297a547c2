package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"repairhub/internal/domain"
	"repairhub/internal/repository"
)

// Scheduler выезды мастера и запчасти ремонта
type Scheduler struct {
	cases repository.CaseRepository
	tx    repository.TxManager
	log   *zap.Logger
	now   func() time.Time
}

func NewScheduler(cases repository.CaseRepository, tx repository.TxManager, log *zap.Logger) *Scheduler {
	return &Scheduler{cases: cases, tx: tx, log: log, now: time.Now}
}

// ValidateTimeSlot формат "HH:MM-HH:MM", начало раньше конца
func ValidateTimeSlot(slot string) error {
	invalid := domain.Validation("time_slot must look like 09:00-11:00",
		domain.ErrorDetail{Path: "time_slot", Info: "expected HH:MM-HH:MM"})
	from, to, ok := strings.Cut(strings.TrimSpace(slot), "-")
	if !ok {
		return invalid
	}
	a, errA := time.Parse("15:04", strings.TrimSpace(from))
	b, errB := time.Parse("15:04", strings.TrimSpace(to))
	if errA != nil || errB != nil || !a.Before(b) {
		return invalid
	}
	return nil
}

// withRepair загружает ремонт и сохраняет его после fn с проверкой версии
func (s *Scheduler) withRepair(ctx context.Context, repairID string, fn func(r *domain.Repair) error) (*domain.Repair, error) {
	var out *domain.Repair
	err := mutateCase(ctx, s.cases, s.tx, s.now, repairID, nil, func(c domain.ServiceCase) error {
		r, ok := c.(*domain.Repair)
		if !ok {
			return domain.NotFound("repair", repairID)
		}
		if err := fn(r); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func intervention(r *domain.Repair, id string) (*domain.Intervention, error) {
	iv := r.Intervention(id)
	if iv == nil {
		return nil, domain.NotFound("intervention", id)
	}
	return iv, nil
}

// openIntervention выезд ремонта, который ещё не завершён и не отменён
func openIntervention(r *domain.Repair, id string) (*domain.Intervention, error) {
	if domain.IsTerminal(r.Kind, r.Status) {
		return nil, domain.InvalidState("repair %s is %s", r.ReferenceCode, r.Status)
	}
	return intervention(r, id)
}

// ScheduleIntervention добавляет выезд в статусе scheduled; запрещено для завершённых и отменённых ремонтов
func (s *Scheduler) ScheduleIntervention(ctx context.Context, repairID string, date time.Time, timeSlot string) (*domain.Repair, *domain.Intervention, error) {
	if date.IsZero() {
		return nil, nil, domain.FieldRequired("date")
	}
	if err := ValidateTimeSlot(timeSlot); err != nil {
		return nil, nil, err
	}
	var ivID string
	r, err := s.withRepair(ctx, repairID, func(r *domain.Repair) error {
		if domain.IsTerminal(r.Kind, r.Status) {
			return domain.InvalidState("repair %s is %s, no intervention can be scheduled", r.ReferenceCode, r.Status)
		}
		iv := domain.Intervention{
			ID:        uuid.NewString(),
			Seq:       len(r.Interventions) + 1,
			Date:      date.UTC(),
			TimeSlot:  strings.TrimSpace(timeSlot),
			Status:    domain.InterventionScheduled,
			Parts:     []domain.Part{},
			CreatedAt: s.now().UTC(),
		}
		r.Interventions = append(r.Interventions, iv)
		ivID = iv.ID
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("intervention scheduled",
		zap.String("case_id", r.ID),
		zap.String("reference_code", r.ReferenceCode),
		zap.String("intervention_id", ivID),
		zap.Time("date", date),
	)
	return r, r.Intervention(ivID), nil
}

// StartIntervention scheduled → in_progress; start_time не раньше запланированной даты
func (s *Scheduler) StartIntervention(ctx context.Context, repairID, interventionID string, at *time.Time) (*domain.Repair, error) {
	r, err := s.withRepair(ctx, repairID, func(r *domain.Repair) error {
		iv, err := openIntervention(r, interventionID)
		if err != nil {
			return err
		}
		if iv.Status != domain.InterventionScheduled {
			return domain.InvalidState("intervention %d of %s is %s, expected scheduled", iv.Seq, r.ReferenceCode, iv.Status)
		}
		start := s.now().UTC()
		if at != nil {
			start = at.UTC()
		}
		if start.Before(iv.Date) {
			return domain.Validation("start time is before the scheduled date",
				domain.ErrorDetail{Path: "at", Info: "must be >= " + iv.Date.Format(time.RFC3339)})
		}
		iv.StartTime = &start
		iv.Status = domain.InterventionInProgress
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("intervention started", zap.String("case_id", r.ID), zap.String("intervention_id", interventionID))
	return r, nil
}

// FinalizeIntervention in_progress → completed; диагноз и выполненные работы обязательны
func (s *Scheduler) FinalizeIntervention(ctx context.Context, repairID, interventionID, diagnosis, workPerformed string, at *time.Time) (*domain.Repair, error) {
	if err := requireFields(map[string]string{"diagnosis": diagnosis, "work_performed": workPerformed}); err != nil {
		return nil, err
	}
	r, err := s.withRepair(ctx, repairID, func(r *domain.Repair) error {
		iv, err := openIntervention(r, interventionID)
		if err != nil {
			return err
		}
		if iv.Status != domain.InterventionInProgress {
			return domain.InvalidState("intervention %d of %s is %s, expected in_progress", iv.Seq, r.ReferenceCode, iv.Status)
		}
		end := s.now().UTC()
		if at != nil {
			end = at.UTC()
		}
		if iv.StartTime != nil && end.Before(*iv.StartTime) {
			return domain.Validation("end time is before start time",
				domain.ErrorDetail{Path: "at", Info: "must be >= " + iv.StartTime.Format(time.RFC3339)})
		}
		iv.EndTime = &end
		iv.Diagnosis = strings.TrimSpace(diagnosis)
		iv.WorkPerformed = strings.TrimSpace(workPerformed)
		iv.Status = domain.InterventionCompleted
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("intervention finalized", zap.String("case_id", r.ID), zap.String("intervention_id", interventionID))
	return r, nil
}

// CancelIntervention из scheduled или in_progress; статус ремонта не меняется
func (s *Scheduler) CancelIntervention(ctx context.Context, repairID, interventionID string) (*domain.Repair, error) {
	r, err := s.withRepair(ctx, repairID, func(r *domain.Repair) error {
		iv, err := openIntervention(r, interventionID)
		if err != nil {
			return err
		}
		if iv.Status != domain.InterventionScheduled && iv.Status != domain.InterventionInProgress {
			return domain.InvalidState("intervention %d of %s is %s and cannot be cancelled", iv.Seq, r.ReferenceCode, iv.Status)
		}
		iv.Status = domain.InterventionCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("intervention cancelled", zap.String("case_id", r.ID), zap.String("intervention_id", interventionID))
	return r, nil
}

type PartInput struct {
	PartName       string
	UnitPrice      decimal.Decimal
	Quantity       int64
	WarrantyMonths int
}

// AddPart запчасть к выезду; additional_cost и total_cost пересчитываются в той же транзакции
func (s *Scheduler) AddPart(ctx context.Context, repairID, interventionID string, in PartInput) (*domain.Repair, *domain.Part, error) {
	var details []domain.ErrorDetail
	if strings.TrimSpace(in.PartName) == "" {
		details = append(details, domain.ErrorDetail{Path: "part_name", Info: "part_name is required"})
	}
	if in.Quantity < 1 {
		details = append(details, domain.ErrorDetail{Path: "quantity", Info: "quantity must be >= 1"})
	}
	if in.UnitPrice.LessThan(decimal.Zero) {
		details = append(details, domain.ErrorDetail{Path: "unit_price", Info: "unit_price must be >= 0"})
	}
	if in.WarrantyMonths < 0 {
		details = append(details, domain.ErrorDetail{Path: "warranty_months", Info: "warranty_months must be >= 0"})
	}
	if len(details) > 0 {
		return nil, nil, domain.Validation("invalid part", details...)
	}

	part := domain.Part{
		ID:             uuid.NewString(),
		PartName:       strings.TrimSpace(in.PartName),
		UnitPrice:      in.UnitPrice,
		Quantity:       in.Quantity,
		WarrantyMonths: in.WarrantyMonths,
	}
	part.Recompute()
	r, err := s.withRepair(ctx, repairID, func(r *domain.Repair) error {
		iv, err := s.editableIntervention(r, interventionID)
		if err != nil {
			return err
		}
		iv.Parts = append(iv.Parts, part)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("part added",
		zap.String("case_id", r.ID),
		zap.String("intervention_id", interventionID),
		zap.String("part_id", part.ID),
		zap.String("total_cost", r.TotalCost.String()),
	)
	return r, &part, nil
}

func (s *Scheduler) RemovePart(ctx context.Context, repairID, interventionID, partID string) (*domain.Repair, error) {
	r, err := s.withRepair(ctx, repairID, func(r *domain.Repair) error {
		iv, err := s.editableIntervention(r, interventionID)
		if err != nil {
			return err
		}
		for i, p := range iv.Parts {
			if p.ID == partID {
				iv.Parts = append(iv.Parts[:i], iv.Parts[i+1:]...)
				return nil
			}
		}
		return domain.NotFound("part", partID)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("part removed",
		zap.String("case_id", r.ID),
		zap.String("part_id", partID),
		zap.String("total_cost", r.TotalCost.String()),
	)
	return r, nil
}

// editableIntervention запчасти меняются, пока ремонт не завершён, а выезд не отменён
func (s *Scheduler) editableIntervention(r *domain.Repair, interventionID string) (*domain.Intervention, error) {
	if domain.IsTerminal(r.Kind, r.Status) {
		return nil, domain.InvalidState("repair %s is %s, parts are frozen", r.ReferenceCode, r.Status)
	}
	iv, err := intervention(r, interventionID)
	if err != nil {
		return nil, err
	}
	if iv.Status == domain.InterventionCancelled {
		return nil, domain.InvalidState("intervention %d of %s is cancelled", iv.Seq, r.ReferenceCode)
	}
	return iv, nil
}
