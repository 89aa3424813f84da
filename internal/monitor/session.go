// Package monitor consumes live interaction events during one learning
// session and emits intervention signals with low latency. Session state is
// in-memory only: created on start, destroyed on end, never persisted.
package monitor

import (
	"time"
)

// Event is one learner interaction inside an active session.
type Event struct {
	ActivityID       string
	SkillArea        string
	Correct          bool
	ResponseTimeSecs float64

	// ErrorType categorizes a wrong answer (empty when correct).
	ErrorType string

	// At is when the interaction happened; the zero value means "now".
	At time.Time
}

// errorTuple is one (skill area, error type) observation.
type errorTuple struct {
	SkillArea string
	ErrorType string
}

// session is the transient working set for one learner's active session.
// At most one exists per learner.
type session struct {
	id            string
	learnerID     string
	activityID    string
	startedAt     time.Time
	interactions  int
	correct       int
	incorrect     int
	responseTimes []float64
	errors        []errorTuple // bounded
	incorrectRun  int          // current consecutive-incorrect streak
	fired         []Intervention
	lastEventAt   time.Time
	skillCounts   map[string]int
}

func (s *session) accuracy() float64 {
	if s.interactions == 0 {
		return 0
	}
	return float64(s.correct) / float64(s.interactions)
}

func (s *session) meanResponseSecs() float64 {
	if len(s.responseTimes) == 0 {
		return 0
	}
	sum := 0.0
	for _, rt := range s.responseTimes {
		sum += rt
	}
	return sum / float64(len(s.responseTimes))
}

// recordError appends an error tuple, trimming to the bound.
func (s *session) recordError(t errorTuple, bound int) {
	s.errors = append(s.errors, t)
	if bound > 0 && len(s.errors) > bound {
		s.errors = s.errors[len(s.errors)-bound:]
	}
}

// repeatedError returns the first (skill, error type) pair seen at least
// min times in the bounded history, in observation order.
func (s *session) repeatedError(min int) (errorTuple, bool) {
	counts := make(map[errorTuple]int, len(s.errors))
	for _, t := range s.errors {
		counts[t]++
		if counts[t] >= min {
			return t, true
		}
	}
	return errorTuple{}, false
}

// dominantError returns the most frequent error tuple, or false when the
// session recorded no errors.
func (s *session) dominantError() (errorTuple, bool) {
	if len(s.errors) == 0 {
		return errorTuple{}, false
	}
	counts := make(map[errorTuple]int, len(s.errors))
	best := s.errors[0]
	bestCount := 0
	for _, t := range s.errors {
		counts[t]++
		if counts[t] > bestCount {
			best = t
			bestCount = counts[t]
		}
	}
	return best, true
}

// dominantSkill returns the skill area seen most often in the session's
// events, used when reconciling the session into the attempt history.
func (s *session) dominantSkill() string {
	best := ""
	bestCount := 0
	for skill, n := range s.skillCounts {
		if n > bestCount || (n == bestCount && skill < best) {
			best = skill
			bestCount = n
		}
	}
	return best
}
