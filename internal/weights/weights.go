// Package weights maps fine-grained catalog sections to the customer-facing
// display categories they roll up into, and carries each category's weight in
// the overall score.
//
// A Map is immutable after construction. Sections missing from the map are
// not errors: the scoring engine simply leaves their questions out.
package weights

import (
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// SectionWeightEntry assigns a section to a display category. Every entry of
// the same category carries the same Weight; that weight is the category's
// weight in the overall score.
type SectionWeightEntry struct {
	Section         string  `json:"section" yaml:"section"`
	DisplayCategory string  `json:"display_category" yaml:"display_category"`
	Weight          float64 `json:"weight" yaml:"weight"`
}

// CategoryWeight aggregates the sections of one display category.
type CategoryWeight struct {
	// Weight is the category weight used by the scoring engine.
	Weight float64 `json:"weight"`
	// TotalWeight is the sum of member section weights. It is reported for
	// diagnostics only; scoring does not use it.
	TotalWeight    float64  `json:"total_weight"`
	MemberSections []string `json:"member_sections"`
}

// Map is the static section → category lookup table.
type Map struct {
	entries    []SectionWeightEntry
	bySection  map[string]SectionWeightEntry
	categories []string // display categories in first-seen order
}

// New validates entries and builds a Map. Duplicated sections, weights
// outside [0,1], and categories whose members disagree on weight are rejected.
func New(entries []SectionWeightEntry) (*Map, error) {
	m := &Map{
		entries:   make([]SectionWeightEntry, 0, len(entries)),
		bySection: make(map[string]SectionWeightEntry, len(entries)),
	}
	catWeight := make(map[string]float64)

	for i, e := range entries {
		if e.Section == "" || e.DisplayCategory == "" {
			return nil, fmt.Errorf("weights: entry %d: section and display_category are required", i)
		}
		if e.Weight < 0 || e.Weight > 1 || math.IsNaN(e.Weight) {
			return nil, fmt.Errorf("weights: section %q: weight %v out of range [0,1]", e.Section, e.Weight)
		}
		if _, dup := m.bySection[e.Section]; dup {
			return nil, fmt.Errorf("weights: section %q listed twice", e.Section)
		}
		if w, ok := catWeight[e.DisplayCategory]; ok {
			if math.Abs(w-e.Weight) > 1e-9 {
				return nil, fmt.Errorf("weights: category %q: section %q weight %v differs from %v",
					e.DisplayCategory, e.Section, e.Weight, w)
			}
		} else {
			catWeight[e.DisplayCategory] = e.Weight
			m.categories = append(m.categories, e.DisplayCategory)
		}
		m.bySection[e.Section] = e
		m.entries = append(m.entries, e)
	}
	return m, nil
}

// Default returns the production weight table. Display category weights sum
// to 1.0; "Customer effort" is collected but carries no weight.
func Default() *Map {
	m, err := New(DefaultEntries())
	if err != nil {
		panic(err) // the literal table below is known-good
	}
	return m
}

// DefaultEntries returns a copy of the production table.
func DefaultEntries() []SectionWeightEntry {
	return []SectionWeightEntry{
		{Section: "Center Access", DisplayCategory: "Appearance", Weight: 0.05},
		{Section: "Facilities Parking", DisplayCategory: "Appearance", Weight: 0.05},
		{Section: "Premises Exterior", DisplayCategory: "Appearance", Weight: 0.05},
		{Section: "Premises Interior", DisplayCategory: "Appearance", Weight: 0.05},
		{Section: "Waiting Area", DisplayCategory: "Appearance", Weight: 0.05},
		{Section: "People of Determination", DisplayCategory: "Service Accessibility", Weight: 0.15},
		{Section: "Service Accessibility", DisplayCategory: "Service Accessibility", Weight: 0.15},
		{Section: "Professionalism of Staff", DisplayCategory: "Professionalism of Staff", Weight: 0.20},
		{Section: "Speed of Service", DisplayCategory: "Speed of Service", Weight: 0.20},
		{Section: "Ease of use", DisplayCategory: "Ease of use", Weight: 0.20},
		{Section: "Service Information Quality", DisplayCategory: "Service Information Quality", Weight: 0.15},
		{Section: "Customer privacy", DisplayCategory: "Customer privacy", Weight: 0.05},
		{Section: "Customer effort", DisplayCategory: "Customer effort", Weight: 0.0},
	}
}

// ─── YAML OVERRIDE ────────────────────────────────────────────────────────────

type yamlFile struct {
	Sections []SectionWeightEntry `yaml:"sections"`
}

// LoadYAML reads a weight table from path. The file shape is:
//
//	sections:
//	  - section: Center Access
//	    display_category: Appearance
//	    weight: 0.05
//
// The file goes through the same validation as New: every section of one
// display_category must carry the same weight, since that shared value is the
// category weight used in scoring. A file that gives two member sections
// different weights is rejected, not averaged.
func LoadYAML(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("weights: read %s: %w", path, err)
	}
	var f yamlFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("weights: parse %s: %w", path, err)
	}
	if len(f.Sections) == 0 {
		return nil, fmt.Errorf("weights: %s defines no sections", path)
	}
	return New(f.Sections)
}

// ─── LOOKUPS ──────────────────────────────────────────────────────────────────

// WeightFor returns the entry for section.
func (m *Map) WeightFor(section string) (SectionWeightEntry, bool) {
	e, ok := m.bySection[section]
	return e, ok
}

// CategoryFor returns the display category and its weight for section.
func (m *Map) CategoryFor(section string) (category string, weight float64, ok bool) {
	e, ok := m.WeightFor(section)
	if !ok {
		return "", 0, false
	}
	return e.DisplayCategory, e.Weight, true
}

// Entries returns the table in declaration order.
func (m *Map) Entries() []SectionWeightEntry {
	out := make([]SectionWeightEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Categories returns display categories in declaration order.
func (m *Map) Categories() []string {
	out := make([]string, len(m.categories))
	copy(out, m.categories)
	return out
}

// MainCategories aggregates sections by display category.
func (m *Map) MainCategories() map[string]CategoryWeight {
	out := make(map[string]CategoryWeight, len(m.categories))
	for _, e := range m.entries {
		cw := out[e.DisplayCategory]
		cw.Weight = e.Weight
		cw.TotalWeight += e.Weight
		cw.MemberSections = append(cw.MemberSections, e.Section)
		out[e.DisplayCategory] = cw
	}
	return out
}

// UnmappedSections returns the sections in names that have no entry, sorted
// and without duplicates.
func (m *Map) UnmappedSections(names []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, n := range names {
		if _, ok := m.bySection[n]; ok {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
