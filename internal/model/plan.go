package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// PlanStatus tracks a plan's lifecycle.
type PlanStatus string

const (
	PlanDraft     PlanStatus = "draft"
	PlanCompleted PlanStatus = "completed"
	PlanArchived  PlanStatus = "archived"
)

// Section identifies one part of the fixed plan document.
type Section string

const (
	SectionSituation  Section = "situation_analysis"
	SectionExternal   Section = "external_position"
	SectionInsights   Section = "elicited_insights"
	SectionObjectives Section = "objectives"
	SectionActions    Section = "action_items"
	SectionResources  Section = "resource_needs"
	SectionRisks      Section = "risks"
	SectionMetrics    Section = "success_metrics"
	SectionNextSteps  Section = "next_steps"
)

// SectionPlaceholder marks sections that received no supporting data.
// Rendering it instead of fabricated content is a hard invariant.
const SectionPlaceholder = "_Insufficient information to draft this section._"

// Sections returns the fixed document sections in render order.
func Sections() []Section {
	return []Section{
		SectionSituation,
		SectionExternal,
		SectionInsights,
		SectionObjectives,
		SectionActions,
		SectionResources,
		SectionRisks,
		SectionMetrics,
		SectionNextSteps,
	}
}

// Title returns the section heading used in the rendered document.
func (s Section) Title() string {
	switch s {
	case SectionSituation:
		return "Situation Analysis"
	case SectionExternal:
		return "External Position Analysis"
	case SectionInsights:
		return "Key Insights from Elicitation"
	case SectionObjectives:
		return "Strategic Objectives"
	case SectionActions:
		return "Action Items"
	case SectionResources:
		return "Resource Needs"
	case SectionRisks:
		return "Risk Assessment"
	case SectionMetrics:
		return "Success Metrics"
	case SectionNextSteps:
		return "Next Steps"
	default:
		return string(s)
	}
}

// ChangeEntry is one dated record in a plan's append-only change log.
type ChangeEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Summary   string    `json:"summary"`
	Author    string    `json:"author,omitempty"`
}

// Plan is the synthesized strategic document for one account.
type Plan struct {
	ID        int64              `json:"id"`
	AccountID int64              `json:"account_id"`
	Title     string             `json:"title"`
	Sections  map[Section]string `json:"sections"`
	Status    PlanStatus         `json:"status"`
	ChangeLog []ChangeEntry      `json:"change_log,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Render produces the plan as a Markdown document with the fixed
// section order and the change log appended.
func (p *Plan) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", p.Title)
	for i, s := range Sections() {
		body := p.Sections[s]
		if body == "" {
			body = SectionPlaceholder
		}
		fmt.Fprintf(&b, "\n## %d. %s\n\n%s\n", i+1, s.Title(), strings.TrimSpace(body))
	}
	if len(p.ChangeLog) > 0 {
		b.WriteString("\n---\n\n## Change Log\n\n")
		entries := make([]ChangeEntry, len(p.ChangeLog))
		copy(entries, p.ChangeLog)
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Timestamp.Before(entries[j].Timestamp)
		})
		for _, e := range entries {
			line := fmt.Sprintf("- %s — %s", e.Timestamp.UTC().Format("2006-01-02 15:04"), e.Summary)
			if e.Author != "" {
				line += fmt.Sprintf(" (%s)", e.Author)
			}
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}
