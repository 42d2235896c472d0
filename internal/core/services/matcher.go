// internal/core/services/matcher.go
package services

import (
	"github.com/shopspring/decimal"

	"warebridge/internal/core/domain"
)

// matchOptions relax or tighten candidate selection.
type matchOptions struct {
	// allowAnyLine relaxes matching beyond lot/serial/location agreement.
	allowAnyLine bool
	// withLocations scopes tier-1 matching to the reported storage location.
	withLocations bool
}

// findCandidates selects the existing lines a reported quantity may be
// allocated to, using a tiered strategy where the first non-empty tier
// wins. Candidates keep store-native (ascending id) order. satisfied is
// set when the single exact match is already at full expected quantity:
// an idempotent re-submission that needs no further work.
func findCandidates(desc domain.TypeDescriptor, lines []*domain.DocumentLine, rl *domain.ReportedLine, tracking domain.Tracking, opts matchOptions) (candidates []*domain.DocumentLine, satisfied bool) {
	lotValue := rl.LotOrSerial(tracking)

	exact := filterLines(lines, func(l *domain.DocumentLine) bool {
		if l.ProductID != rl.ProductID || l.Picked {
			return false
		}
		if tracking != domain.TrackingNone && l.LotName != lotValue && l.ResolvedLot != lotValue {
			return false
		}
		if opts.withLocations && rl.StorageID != nil && l.EffectiveLocationID(desc) != *rl.StorageID {
			return false
		}
		return true
	})
	if len(exact) == 1 && exact[0].Fulfilled() {
		return nil, true
	}
	if len(exact) > 0 {
		return exact, false
	}

	if tracking != domain.TrackingNone {
		// Lines declared without any lot yet.
		unlabeled := filterLines(lines, func(l *domain.DocumentLine) bool {
			return l.ProductID == rl.ProductID && !l.HasLot() && !l.Picked
		})
		if len(unlabeled) > 0 {
			return unlabeled, false
		}
		if opts.allowAnyLine {
			// Zero-progress lines whose lot may be replaced.
			return filterLines(lines, func(l *domain.DocumentLine) bool {
				return l.ProductID == rl.ProductID && (l.Done.IsZero() || !l.Picked)
			}), false
		}
		return nil, false
	}

	if rl.BoundLineID != nil {
		bound := filterLines(lines, func(l *domain.DocumentLine) bool {
			return l.ProductID == rl.ProductID && l.MoveID != nil && *l.MoveID == *rl.BoundLineID
		})
		if len(bound) > 0 {
			return bound, false
		}
	}

	if opts.allowAnyLine {
		return filterLines(lines, func(l *domain.DocumentLine) bool {
			return l.ProductID == rl.ProductID
		}), false
	}
	return nil, false
}

// narrowCandidates applies the allocation-time filters: remaining capacity
// and, when location scoping is active, the reported storage location. The
// pool shrinks monotonically as the distributor consumes capacity.
func narrowCandidates(desc domain.TypeDescriptor, candidates []*domain.DocumentLine, rl *domain.ReportedLine, withLocations bool) []*domain.DocumentLine {
	pool := filterLines(candidates, func(l *domain.DocumentLine) bool {
		return l.Expected.GreaterThan(l.Done)
	})
	if withLocations && rl.StorageID != nil {
		pool = filterLines(pool, func(l *domain.DocumentLine) bool {
			return l.EffectiveLocationID(desc) == *rl.StorageID
		})
	}
	return pool
}

func filterLines(lines []*domain.DocumentLine, keep func(*domain.DocumentLine) bool) []*domain.DocumentLine {
	var out []*domain.DocumentLine
	for _, l := range lines {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}

// minDecimal returns the smaller of two decimals.
func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
