package domain

import (
	"errors"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidTierName   = errors.New("invalid_tier_name")
	ErrInvalidTierRange  = errors.New("invalid_tier_range")
	ErrInvalidMultiplier = errors.New("invalid_tier_multiplier")
	ErrTierOverlap       = errors.New("tier_overlap")
	ErrTierGap           = errors.New("tier_gap")
)

var one = decimal.NewFromInt(1)

// Resolve returns the first tier whose range contains amount, or nil.
// Amounts falling in a gap between misconfigured tiers resolve to nil.
func Resolve(amount int64, tiers []Tier) *Tier {
	for i := range tiers {
		if tiers[i].Contains(amount) {
			t := tiers[i]
			return &t
		}
	}
	return nil
}

// ResolveFunding picks the tier for an investment against a pitch with
// remaining left to raise. An amount that exactly closes a remainder smaller
// than every tier minimum takes the lowest tier, so a pitch can always finish.
func ResolveFunding(amount, remaining int64, tiers []Tier) (*Tier, bool) {
	if amount <= 0 {
		return nil, false
	}
	if len(tiers) == 0 {
		return nil, true
	}
	if t := Resolve(amount, tiers); t != nil {
		return t, true
	}
	if amount != remaining || remaining >= MinimumInvestment(tiers) {
		return nil, false
	}
	lowest := tiers[0]
	for _, t := range tiers[1:] {
		if t.MinAmount < lowest.MinAmount {
			lowest = t
		}
	}
	return &lowest, true
}

// MinimumInvestment is the smallest tier minimum, or 1 without tiers.
func MinimumInvestment(tiers []Tier) int64 {
	if len(tiers) == 0 {
		return 1
	}
	min := tiers[0].MinAmount
	for _, t := range tiers[1:] {
		if t.MinAmount < min {
			min = t.MinAmount
		}
	}
	if min < 1 {
		return 1
	}
	return min
}

// MaximumInvestment is the largest tier maximum capped by what is left to raise.
func MaximumInvestment(tiers []Tier, remaining int64) int64 {
	if remaining < 0 {
		remaining = 0
	}
	if len(tiers) == 0 {
		return remaining
	}
	max := tiers[0].MaxAmount
	for _, t := range tiers[1:] {
		if t.MaxAmount > max {
			max = t.MaxAmount
		}
	}
	if max < remaining {
		return max
	}
	return remaining
}

// Multiplier returns the tier multiplier, 1 for nil.
func Multiplier(t *Tier) decimal.Decimal {
	if t == nil || t.Multiplier.IsZero() {
		return one
	}
	return t.Multiplier
}

// Normalize trims names, orders tiers by minimum and assigns positions.
func Normalize(tiers []Tier) []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	for i := range out {
		out[i].Name = strings.TrimSpace(out[i].Name)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MinAmount < out[j].MinAmount
	})
	for i := range out {
		out[i].Position = i
	}
	return out
}

// Validate checks normalized tiers are well formed, non-overlapping and
// contiguous from the first tier's minimum, which acts as the minimum ticket.
func Validate(tiers []Tier) error {
	for i, t := range tiers {
		if t.Name == "" {
			return ErrInvalidTierName
		}
		if t.MinAmount < 0 || t.MaxAmount < t.MinAmount {
			return ErrInvalidTierRange
		}
		if !t.Multiplier.IsPositive() {
			return ErrInvalidMultiplier
		}
		if i == 0 {
			continue
		}
		prev := tiers[i-1]
		switch {
		case t.MinAmount <= prev.MaxAmount:
			return ErrTierOverlap
		case t.MinAmount != prev.MaxAmount+1:
			return ErrTierGap
		}
	}
	return nil
}
