package difficulty

import (
	"fmt"

	"github.com/rkodali/adept/internal/config"
	"github.com/rkodali/adept/internal/performance"
)

// Activity identifies the activity being evaluated for a tier change.
type Activity struct {
	ID        string
	SkillArea string
	Tier      Tier
}

// Decision is the outcome of one adjustment evaluation. When Changed is
// set, Suggestions carries advisory content-adaptation hints for the
// content-generation collaborator; this engine never generates content.
type Decision struct {
	Changed     bool
	From        Tier
	To          Tier
	Reason      string
	Suggestions []string
}

// Machine adjusts one coarse difficulty tier per evaluation. Stateless:
// the caller supplies the current profile and observed performance.
type Machine struct {
	cfg config.Tunables
}

// NewMachine creates a difficulty adjustment machine.
func NewMachine(cfg config.Tunables) *Machine {
	return &Machine{cfg: cfg}
}

// Adjust decides whether the activity's tier moves. At most one step per
// evaluation, never outside the four-tier lattice.
//
// Promotion needs both sustained skill accuracy and the observed single
// activity at or above the mastery threshold; demotion needs only the
// observed accuracy at or below the struggle threshold. The band between
// the two thresholds is a hysteresis zone where nothing changes, so a
// single noisy attempt cannot oscillate the tier.
func (m *Machine) Adjust(profile *performance.Profile, activity Activity, observed float64) Decision {
	current := activity.Tier

	skillAccuracy, tracked := profile.SkillAccuracy[activity.SkillArea]

	switch {
	case tracked && skillAccuracy >= m.cfg.MasteryThreshold && observed >= m.cfg.MasteryThreshold:
		to := current.Promote()
		if to == current {
			return unchanged(current, "already at expert tier")
		}
		return Decision{
			Changed: true,
			From:    current,
			To:      to,
			Reason: fmt.Sprintf("skill accuracy %.2f and observed %.2f at or above mastery threshold %.2f",
				skillAccuracy, observed, m.cfg.MasteryThreshold),
			Suggestions: promoteSuggestions(to),
		}

	case observed <= m.cfg.StruggleThreshold:
		to := current.Demote()
		if to == current {
			return unchanged(current, "already at beginner tier")
		}
		return Decision{
			Changed: true,
			From:    current,
			To:      to,
			Reason: fmt.Sprintf("observed accuracy %.2f at or below struggle threshold %.2f",
				observed, m.cfg.StruggleThreshold),
			Suggestions: demoteSuggestions(to),
		}

	default:
		return unchanged(current, "within hysteresis band")
	}
}

func unchanged(t Tier, reason string) Decision {
	return Decision{Changed: false, From: t, To: t, Reason: reason}
}

// promoteSuggestions tells the content collaborator how to harden the next
// round of activities.
func promoteSuggestions(to Tier) []string {
	s := []string{
		"reduce scaffolding",
		"add edge cases",
	}
	if to >= TierAdvanced {
		s = append(s, "combine multiple concepts per activity")
	}
	return s
}

// demoteSuggestions tells the content collaborator how to soften them.
func demoteSuggestions(to Tier) []string {
	s := []string{
		"add scaffolding",
		"break problems into smaller steps",
	}
	if to == TierBeginner {
		s = append(s, "include worked examples")
	}
	return s
}
