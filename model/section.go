package model

import "errors"

// SectionType identifies one of the eight A3 regions
type SectionType string

// A3 sections in layout order
const (
	SectionProjectInfo        SectionType = "project_info"
	SectionBackground         SectionType = "background"
	SectionCurrentCondition   SectionType = "current_condition"
	SectionGoal               SectionType = "goal"
	SectionRootCause          SectionType = "root_cause"
	SectionCountermeasures    SectionType = "countermeasures"
	SectionImplementationPlan SectionType = "implementation_plan"
	SectionFollowUp           SectionType = "follow_up"
)

// ErrInvalidSection is returned when a section type is unknown
var ErrInvalidSection = errors.New("invalid section type")

// GridColumns is the number of grid columns below the full-width row
const GridColumns = 3

// SectionSpec describes how a section is titled and laid out on the page.
// Span 0 means the section occupies the full row.
type SectionSpec struct {
	Type       SectionType `json:"type"`
	Title      string      `json:"title"`
	Span       int         `json:"span"`
	Columns    int         `json:"columns"`
	CharBudget int         `json:"char_budget"`
}

// FullWidth reports whether the section spans the whole page width
func (s SectionSpec) FullWidth() bool {
	return s.Span == 0
}

// SectionCatalog is the fixed A3 layout, in order
var SectionCatalog = []SectionSpec{
	{Type: SectionProjectInfo, Title: "Project Information", Span: 0, Columns: 1, CharBudget: 600},
	{Type: SectionBackground, Title: "Background", Span: 1, Columns: 1, CharBudget: 900},
	{Type: SectionCurrentCondition, Title: "Current Condition", Span: 1, Columns: 2, CharBudget: 1400},
	{Type: SectionGoal, Title: "Goal / Target Condition", Span: 1, Columns: 1, CharBudget: 700},
	{Type: SectionRootCause, Title: "Root Cause Analysis", Span: 2, Columns: 2, CharBudget: 1600},
	{Type: SectionCountermeasures, Title: "Countermeasures", Span: 1, Columns: 1, CharBudget: 1000},
	{Type: SectionImplementationPlan, Title: "Implementation Plan", Span: 1, Columns: 2, CharBudget: 1200},
	{Type: SectionFollowUp, Title: "Follow-up", Span: 1, Columns: 1, CharBudget: 800},
}

// LookupSection returns the catalog entry for a section type
func LookupSection(t SectionType) (SectionSpec, bool) {
	for _, s := range SectionCatalog {
		if s.Type == t {
			return s, true
		}
	}
	return SectionSpec{}, false
}

// ParseSectionType validates a section type string
func ParseSectionType(s string) (SectionType, error) {
	if _, ok := LookupSection(SectionType(s)); ok {
		return SectionType(s), nil
	}
	return "", ErrInvalidSection
}

// SectionOrder returns the catalog index of a section, or -1
func SectionOrder(t SectionType) int {
	for i, s := range SectionCatalog {
		if s.Type == t {
			return i
		}
	}
	return -1
}
