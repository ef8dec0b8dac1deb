package domain

// Initials is a case-sensitive set of leading characters.
type Initials map[rune]struct{}

// NewInitials builds a set from the given characters.
func NewInitials(chars ...rune) Initials {
	s := make(Initials, len(chars))
	for _, c := range chars {
		s[c] = struct{}{}
	}
	return s
}

func (s Initials) Contains(r rune) bool {
	_, ok := s[r]
	return ok
}

// DefaultAggregateInitials is the production configuration of the aggregate.
func DefaultAggregateInitials() Initials { return NewInitials('A', 'B', 'C') }

// SumByInitial sums Value over records whose name starts with one of initials.
// Records with an empty name never match.
func SumByInitial(records []Employee, initials Initials) int64 {
	var total int64
	for _, rec := range records {
		first, ok := FirstChar(rec.Name)
		if !ok || !initials.Contains(first) {
			continue
		}
		total += rec.Value
	}
	return total
}
