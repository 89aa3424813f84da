package spacedrep

import (
	"sort"
	"time"

	"github.com/rkodali/adept/internal/config"
	"github.com/rkodali/adept/internal/store"
)

// Entry is a derived, ephemeral view of one concept's practice history.
// Recomputed from attempt records on query; never persisted on its own.
type Entry struct {
	SkillArea        string
	ConceptID        string
	LastPracticedAt  time.Time
	PerformanceLevel float64 // accuracy ratio of the most recent practice
	RepetitionCount  int
}

// BuildEntries folds a learner's attempt records into per-concept entries.
// Attempts without a concept ID are skipped. Records must be ordered
// oldest first, as the attempt repo returns them.
func BuildEntries(attempts []store.AttemptRecord) []Entry {
	type key struct{ skill, concept string }
	byConcept := make(map[key]*Entry)
	var order []key

	for i := range attempts {
		rec := &attempts[i]
		if rec.ConceptID == "" {
			continue
		}
		k := key{rec.SkillArea, rec.ConceptID}
		e, ok := byConcept[k]
		if !ok {
			e = &Entry{SkillArea: rec.SkillArea, ConceptID: rec.ConceptID}
			byConcept[k] = e
			order = append(order, k)
		}
		e.RepetitionCount++
		e.LastPracticedAt = rec.CompletedAt
		e.PerformanceLevel = rec.AccuracyRatio()
	}

	entries := make([]Entry, 0, len(order))
	for _, k := range order {
		entries = append(entries, *byConcept[k])
	}
	return entries
}

// Due filters entries down to those due for review at now, most overdue
// first.
func Due(entries []Entry, now time.Time, cfg config.ReviewTunables) []Entry {
	var due []Entry
	for _, e := range entries {
		d := NextReview(e.LastPracticedAt, e.PerformanceLevel, e.RepetitionCount, now, cfg)
		if d.DueNow {
			due = append(due, e)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].LastPracticedAt.Equal(due[j].LastPracticedAt) {
			return due[i].LastPracticedAt.Before(due[j].LastPracticedAt)
		}
		return due[i].ConceptID < due[j].ConceptID
	})
	return due
}
