// Package planner decides the next unit of work across an ordered
// curriculum, combining the mastery tracker's per-concept status with the
// learner's walk position through the path.
package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rkodali/adept/internal/config"
	"github.com/rkodali/adept/internal/curriculum"
	"github.com/rkodali/adept/internal/mastery"
	"github.com/rkodali/adept/internal/store"
)

// ActionType is the kind of next step the planner recommends.
type ActionType string

const (
	// ActionRetryConcept keeps the learner on the current concept.
	ActionRetryConcept ActionType = "retry_concept"

	// ActionNextConcept advances to the next concept in the module.
	ActionNextConcept ActionType = "next_concept"

	// ActionReinforcement schedules one more activity on the current
	// concept before advancing, to make learning durable.
	ActionReinforcement ActionType = "reinforcement"

	// ActionAdvanceSkill moves to the first concept of the next module.
	ActionAdvanceSkill ActionType = "advance_skill"

	// ActionComplete marks the path finished.
	ActionComplete ActionType = "complete"
)

// Decision names the next unit of work and how to present it. The content
// collaborator consumes these to parametrize generation; this engine never
// generates content itself.
type Decision struct {
	Action    ActionType
	SkillArea string
	ConceptID string

	// ReduceDifficulty asks the content collaborator to generate the next
	// activity one tier easier.
	ReduceDifficulty bool

	// AlternateApproach asks for a different instructional approach to
	// the same concept.
	AlternateApproach bool

	Reason string
}

// Planner walks learners through fixed path orderings.
type Planner struct {
	paths     store.PathRepo
	tracker   *mastery.Tracker
	curricula map[string]*curriculum.Path
	cfg       config.Tunables
	now       func() time.Time
}

// New creates a planner over the given path repo, tracker, and the loaded
// curriculum definitions.
func New(paths store.PathRepo, tracker *mastery.Tracker, curricula map[string]*curriculum.Path, cfg config.Tunables) *Planner {
	return &Planner{
		paths:     paths,
		tracker:   tracker,
		curricula: curricula,
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithClock overrides the planner's clock. For tests.
func (p *Planner) WithClock(now func() time.Time) *Planner {
	p.now = now
	return p
}

// NextAction decides the next unit of work for a learner on a path.
// lastPerformance, when supplied, is the accuracy ratio of the most recent
// attempt and only influences the difficulty hint on a retry.
//
// Callers must serialize calls per learner; the planner mutates and saves
// the learner's path state.
func (p *Planner) NextAction(ctx context.Context, learnerID, pathID string, lastPerformance *float64) (Decision, error) {
	cur, ok := p.curricula[pathID]
	if !ok {
		return Decision{}, fmt.Errorf("path %q: %w", pathID, curriculum.ErrUnknownPath)
	}

	state, err := p.loadOrCreate(ctx, learnerID, pathID, cur)
	if err != nil {
		return Decision{}, err
	}

	if state.Completed {
		return Decision{Action: ActionComplete, Reason: "path already complete"}, nil
	}

	skill, concept, ok := cur.ConceptAt(state.ModuleIndex, state.ConceptIndex[state.ModuleIndex])
	if !ok {
		// Stored indexes ran past the definition (curriculum shrank).
		return p.advance(ctx, cur, state, "walk position past end of module")
	}

	assessment, err := p.tracker.Assess(ctx, learnerID, skill, concept)
	if err != nil {
		return Decision{}, fmt.Errorf("assess %s/%s: %w", skill, concept, err)
	}

	switch assessment.Status {
	case mastery.StatusMastered:
		return p.advance(ctx, cur, state, fmt.Sprintf("concept %s mastered", concept))

	case mastery.StatusStruggling:
		return p.handleStruggling(ctx, cur, state, skill, concept, lastPerformance)

	case mastery.StatusProficient:
		return Decision{
			Action:    ActionReinforcement,
			SkillArea: skill,
			ConceptID: concept,
			Reason:    "proficient; one more activity before advancing",
		}, nil

	default:
		// learning, not_started, insufficient_data: keep instructing.
		d := Decision{
			Action:    ActionRetryConcept,
			SkillArea: skill,
			ConceptID: concept,
			Reason:    fmt.Sprintf("concept %s still %s", concept, assessment.Status),
		}
		return d, nil
	}
}

// handleStruggling applies the retry policy: retry with an alternate
// approach while under the cap, then force progression at a lowered tier.
// The cap is a deliberate escape hatch so one stubborn concept can never
// permanently block a learner.
func (p *Planner) handleStruggling(ctx context.Context, cur *curriculum.Path, state *store.PathStateData, skill, concept string, lastPerformance *float64) (Decision, error) {
	cm, err := p.tracker.State(ctx, state.LearnerID, skill, concept)
	if err != nil {
		return Decision{}, err
	}

	if cm.RetryCount < p.cfg.MaxRetriesPerConcept {
		d := Decision{
			Action:            ActionRetryConcept,
			SkillArea:         skill,
			ConceptID:         concept,
			AlternateApproach: true,
			Reason: fmt.Sprintf("struggling on %s (retry %d of %d)",
				concept, cm.RetryCount, p.cfg.MaxRetriesPerConcept),
		}
		if lastPerformance != nil && *lastPerformance < p.cfg.StruggleThreshold {
			d.ReduceDifficulty = true
		}
		return d, nil
	}

	d, err := p.advance(ctx, cur, state,
		fmt.Sprintf("retry cap reached on %s; forcing progression", concept))
	if err != nil {
		return Decision{}, err
	}
	d.ReduceDifficulty = true
	return d, nil
}

// advance moves the walk position forward one concept, rolling over into
// the next module or completion, and persists the new position.
func (p *Planner) advance(ctx context.Context, cur *curriculum.Path, state *store.PathStateData, reason string) (Decision, error) {
	state.ConceptIndex[state.ModuleIndex]++

	// Roll over exhausted modules.
	for state.ModuleIndex < len(cur.Modules) &&
		state.ConceptIndex[state.ModuleIndex] >= len(cur.Modules[state.ModuleIndex].Concepts) {
		state.ModuleIndex++
	}

	if state.ModuleIndex >= len(cur.Modules) {
		state.Completed = true
		if err := p.save(ctx, state); err != nil {
			return Decision{}, err
		}
		return Decision{Action: ActionComplete, Reason: reason + "; no modules remain"}, nil
	}

	skill, concept, _ := cur.ConceptAt(state.ModuleIndex, state.ConceptIndex[state.ModuleIndex])
	if err := p.save(ctx, state); err != nil {
		return Decision{}, err
	}

	action := ActionNextConcept
	if state.ConceptIndex[state.ModuleIndex] == 0 {
		action = ActionAdvanceSkill
	}
	return Decision{
		Action:    action,
		SkillArea: skill,
		ConceptID: concept,
		Reason:    reason,
	}, nil
}

func (p *Planner) loadOrCreate(ctx context.Context, learnerID, pathID string, cur *curriculum.Path) (*store.PathStateData, error) {
	state, err := p.paths.Load(ctx, learnerID, pathID)
	if errors.Is(err, store.ErrNotFound) {
		state = &store.PathStateData{
			LearnerID:    learnerID,
			PathID:       pathID,
			ConceptIndex: make([]int, len(cur.Modules)),
		}
		if err := p.save(ctx, state); err != nil {
			return nil, err
		}
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load path state: %w", err)
	}

	// Tolerate a curriculum that grew since the state was saved.
	for len(state.ConceptIndex) < len(cur.Modules) {
		state.ConceptIndex = append(state.ConceptIndex, 0)
	}
	return state, nil
}

func (p *Planner) save(ctx context.Context, state *store.PathStateData) error {
	state.UpdatedAt = p.now()
	if err := p.paths.Save(ctx, state); err != nil {
		return fmt.Errorf("save path state: %w", err)
	}
	return nil
}
