// Package difficulty holds the four-tier difficulty lattice and the
// threshold-driven adjustment state machine.
package difficulty

import "fmt"

// Tier is one level in the ordered difficulty lattice.
type Tier int

const (
	TierBeginner Tier = iota
	TierIntermediate
	TierAdvanced
	TierExpert
)

// AllTiers returns the tiers in ascending order.
func AllTiers() []Tier {
	return []Tier{TierBeginner, TierIntermediate, TierAdvanced, TierExpert}
}

// String returns the canonical tier name.
func (t Tier) String() string {
	switch t {
	case TierBeginner:
		return "beginner"
	case TierIntermediate:
		return "intermediate"
	case TierAdvanced:
		return "advanced"
	case TierExpert:
		return "expert"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// ParseTier maps a tier name back to its Tier value.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "beginner":
		return TierBeginner, nil
	case "intermediate":
		return TierIntermediate, nil
	case "advanced":
		return TierAdvanced, nil
	case "expert":
		return TierExpert, nil
	default:
		return TierBeginner, fmt.Errorf("unknown difficulty tier %q", s)
	}
}

// Promote returns the next tier up, clamped at expert.
func (t Tier) Promote() Tier {
	if t >= TierExpert {
		return TierExpert
	}
	return t + 1
}

// Demote returns the next tier down, clamped at beginner.
func (t Tier) Demote() Tier {
	if t <= TierBeginner {
		return TierBeginner
	}
	return t - 1
}
