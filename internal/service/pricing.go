package service

import (
	"strings"

	"github.com/shopspring/decimal"

	"repairhub/internal/domain"
)

// PriceTable базовая цена ремонта по типу техники
type PriceTable struct {
	prices map[string]decimal.Decimal
}

func NewPriceTable(prices map[string]float64) *PriceTable {
	t := &PriceTable{prices: make(map[string]decimal.Decimal, len(prices))}
	for k, v := range prices {
		t.prices[strings.ToLower(k)] = decimal.NewFromFloat(v)
	}
	return t
}

// BasePrice ValidationError для неизвестного типа техники
func (t *PriceTable) BasePrice(applianceType string) (decimal.Decimal, error) {
	p, ok := t.prices[strings.ToLower(strings.TrimSpace(applianceType))]
	if !ok {
		return decimal.Zero, domain.Validation("unknown appliance type "+applianceType,
			domain.ErrorDetail{Path: "appliance_type", Info: "no base price configured"})
	}
	return p, nil
}
