package domain

import "sort"

// IncrementTier assigns Delta to every record whose name starts with Initial.
type IncrementTier struct {
	Initial rune
	Delta   int64
}

// TieredIncrement is a bulk update whose per-record delta depends on the
// first character of the record's name. Names matching no tier get Default.
type TieredIncrement struct {
	Tiers   []IncrementTier
	Default int64
}

// DefaultTieredIncrement: E +1, G +10, everything else +100.
func DefaultTieredIncrement() TieredIncrement {
	return TieredIncrement{
		Tiers: []IncrementTier{
			{Initial: 'E', Delta: 1},
			{Initial: 'G', Delta: 10},
		},
		Default: 100,
	}
}

// DeltaFor returns the delta for a record name.
func (t TieredIncrement) DeltaFor(name string) int64 {
	first, ok := FirstChar(name)
	if !ok {
		return t.Default
	}
	for _, tier := range t.Tiers {
		if tier.Initial == first {
			return tier.Delta
		}
	}
	return t.Default
}

// Apply returns the records with their deltas applied. It fails without
// returning partial results if any new value would leave the valid range.
func (t TieredIncrement) Apply(records []Employee) ([]Employee, error) {
	out := make([]Employee, 0, len(records))
	for _, rec := range records {
		next := rec.Value + t.DeltaFor(rec.Name)
		if next < MinValue || next > MaxValue {
			return nil, NewError(CodeInvariantViolation, "employee.increment", "value out of range for "+rec.Name, nil)
		}
		out = append(out, Employee{Name: rec.Name, Value: next})
	}
	return out, nil
}

// SortedTiers returns tiers ordered by initial, for deterministic query building.
func (t TieredIncrement) SortedTiers() []IncrementTier {
	tiers := append([]IncrementTier(nil), t.Tiers...)
	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].Initial < tiers[j].Initial })
	return tiers
}
