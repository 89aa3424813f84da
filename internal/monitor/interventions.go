package monitor

// InterventionType names an advisory signal the monitor can emit.
type InterventionType string

const (
	// InterventionTargetedExplanation fires when one (skill, error type)
	// pair keeps recurring at low accuracy.
	InterventionTargetedExplanation InterventionType = "targeted_explanation"

	// InterventionDifficultyReduction fires when accuracy drops well
	// below the struggle threshold.
	InterventionDifficultyReduction InterventionType = "difficulty_reduction"

	// InterventionHintSuggestion fires on slow mean response times.
	InterventionHintSuggestion InterventionType = "hint_suggestion"

	// InterventionMethodChange fires on a streak of wrong answers.
	InterventionMethodChange InterventionType = "method_change"

	// InterventionEngagementBoost fires after a long idle gap.
	InterventionEngagementBoost InterventionType = "engagement_boost"

	// InterventionBreakSuggestion fires on long low-accuracy sessions.
	InterventionBreakSuggestion InterventionType = "break_suggestion"
)

// Priority orders interventions for the consumer.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Intervention is one advisory signal. The consuming application decides
// how (and whether) to surface it.
type Intervention struct {
	Type      InterventionType
	Priority  Priority
	SkillArea string // set when the signal is skill-specific
	ErrorType string // set for targeted explanations
	Message   string
}
