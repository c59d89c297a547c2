package service

import "strings"

// Eligibility проверка почтового индекса по зоне обслуживания
type Eligibility struct {
	codes map[string]struct{}
}

func NewEligibility(postalCodes []string) *Eligibility {
	e := &Eligibility{codes: make(map[string]struct{}, len(postalCodes))}
	for _, c := range postalCodes {
		e.codes[normalizePostalCode(c)] = struct{}{}
	}
	return e
}

func (e *Eligibility) IsEligible(postalCode string) bool {
	_, ok := e.codes[normalizePostalCode(postalCode)]
	return ok
}

func normalizePostalCode(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), " ", "")
}
