package service

import (
	"context"
	"fmt"
	"time"

	"repairhub/internal/domain"
	"repairhub/internal/repository"
)

var referencePrefixes = map[domain.CaseKind]string{
	domain.CaseRepair:   "REP",
	domain.CaseDonation: "DON",
	domain.CaseOrder:    "CMD",
}

// nextReferenceCode PREFIX-YEAR-SEQ, SEQ монотонен в пределах префикса и года
func nextReferenceCode(ctx context.Context, cases repository.CaseRepository, kind domain.CaseKind, now time.Time) (string, error) {
	prefix := referencePrefixes[kind]
	seq, err := cases.NextSequence(ctx, prefix, now.Year())
	if err != nil {
		return "", storeError(err, "sequence", prefix)
	}
	return fmt.Sprintf("%s-%d-%04d", prefix, now.Year(), seq), nil
}
