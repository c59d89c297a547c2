package service

import (
	"fmt"
	"sort"

	"repairhub/internal/domain"
)

// Catalog статический упорядоченный список порогов вознаграждений
type Catalog struct {
	tiers []domain.RewardTier
}

// NewCatalog сортирует пороги по возрастанию и отклоняет повторяющиеся значения
func NewCatalog(tiers []domain.RewardTier) (*Catalog, error) {
	sorted := append([]domain.RewardTier(nil), tiers...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].PointsRequired < sorted[j].PointsRequired })
	for i, t := range sorted {
		if t.PointsRequired < 0 {
			return nil, fmt.Errorf("reward %q: negative threshold", t.Label)
		}
		if i > 0 && t.PointsRequired == sorted[i-1].PointsRequired {
			return nil, fmt.Errorf("rewards %q and %q share threshold %d", sorted[i-1].Label, t.Label, t.PointsRequired)
		}
	}
	return &Catalog{tiers: sorted}, nil
}

// Tiers копия каталога
func (c *Catalog) Tiers() []domain.RewardTier {
	return append([]domain.RewardTier(nil), c.tiers...)
}

// Progress разблокированные пороги и ближайшее вознаграждение для данного баланса
func (c *Catalog) Progress(points int64) domain.TierProgress {
	p := domain.TierProgress{Points: points, Tiers: make([]domain.TierStatus, 0, len(c.tiers))}
	for _, t := range c.tiers {
		unlocked := points >= t.PointsRequired
		p.Tiers = append(p.Tiers, domain.TierStatus{RewardTier: t, Unlocked: unlocked})
		if !unlocked && p.Next == nil {
			p.Next = &domain.NextReward{Label: t.Label, Current: points, Needed: t.PointsRequired}
		}
	}
	return p
}
