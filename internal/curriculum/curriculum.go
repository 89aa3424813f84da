// Package curriculum defines learning paths: ordered skill modules, each an
// ordered list of concept IDs. Path generation is an external concern; this
// package owns the fixed ordering a generated path carries and the lookups
// the planner walks it with.
package curriculum

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrUnknownPath is returned when a path ID has no loaded definition.
var ErrUnknownPath = errors.New("unknown learning path")

// Path is one ordered curriculum a learner works through.
type Path struct {
	ID      string        `yaml:"id"`
	Name    string        `yaml:"name"`
	Modules []SkillModule `yaml:"modules"`
}

// SkillModule groups the concepts of one skill area, in teaching order.
type SkillModule struct {
	SkillArea string   `yaml:"skill"`
	Concepts  []string `yaml:"concepts"`
}

// ConceptAt returns the skill area and concept at the given position.
// ok is false when either index is out of range.
func (p *Path) ConceptAt(moduleIdx, conceptIdx int) (skillArea, conceptID string, ok bool) {
	if moduleIdx < 0 || moduleIdx >= len(p.Modules) {
		return "", "", false
	}
	m := p.Modules[moduleIdx]
	if conceptIdx < 0 || conceptIdx >= len(m.Concepts) {
		return "", "", false
	}
	return m.SkillArea, m.Concepts[conceptIdx], true
}

// TotalConcepts returns the number of concepts across all modules.
func (p *Path) TotalConcepts() int {
	total := 0
	for _, m := range p.Modules {
		total += len(m.Concepts)
	}
	return total
}

// Validate performs structural checks: a non-empty ID, at least one module,
// no empty modules, and no duplicate (skill, concept) pairs.
// Returns a combined error describing all problems found, or nil if valid.
func (p *Path) Validate() error {
	var errs []string

	if p.ID == "" {
		errs = append(errs, "path ID is empty")
	}
	if len(p.Modules) == 0 {
		errs = append(errs, fmt.Sprintf("path %q has no modules", p.ID))
	}

	seen := make(map[string]bool)
	for i, m := range p.Modules {
		if m.SkillArea == "" {
			errs = append(errs, fmt.Sprintf("module %d has no skill area", i))
		}
		if len(m.Concepts) == 0 {
			errs = append(errs, fmt.Sprintf("module %q has no concepts", m.SkillArea))
		}
		for _, c := range m.Concepts {
			key := m.SkillArea + "/" + c
			if seen[key] {
				errs = append(errs, fmt.Sprintf("duplicate concept %q in skill %q", c, m.SkillArea))
			}
			seen[key] = true
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid curriculum: %s", joinErrs(errs))
	}
	return nil
}

func joinErrs(errs []string) string {
	out := errs[0]
	for _, e := range errs[1:] {
		out += "; " + e
	}
	return out
}

// LoadFile reads and validates a single path definition from a YAML file.
func LoadFile(path string) (*Path, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read curriculum file: %w", err)
	}
	var p Path
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse curriculum %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &p, nil
}

// LoadDir loads every *.yaml path definition in dir, keyed by path ID.
// Duplicate path IDs across files are an error.
func LoadDir(dir string) (map[string]*Path, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("glob curriculum dir: %w", err)
	}
	sort.Strings(matches)

	paths := make(map[string]*Path, len(matches))
	for _, file := range matches {
		p, err := LoadFile(file)
		if err != nil {
			return nil, err
		}
		if _, dup := paths[p.ID]; dup {
			return nil, fmt.Errorf("duplicate path ID %q in %s", p.ID, file)
		}
		paths[p.ID] = p
	}
	return paths, nil
}
