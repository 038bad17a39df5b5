// Package selector picks the next question to ask from the catalog,
// driven entirely by the completeness evaluator's status mapping.
package selector

import (
	"github.com/harry720320/account-plan-agent/internal/catalog"
	"github.com/harry720320/account-plan-agent/internal/model"
)

// statusPriority orders candidate categories: unanswered before stale
// before conflicting. Answered categories are never candidates.
var statusPriority = map[model.CategoryStatus]int{
	model.StatusUnanswered:  0,
	model.StatusStale:       1,
	model.StatusConflicting: 2,
}

// Selector chooses the next question template.
type Selector struct {
	catalog *catalog.Catalog
}

// New creates a selector over the given catalog.
func New(cat *catalog.Catalog) *Selector {
	return &Selector{catalog: cat}
}

// Next returns the highest-priority template, or nil when every active
// category is answered (or already covered this session). Within equal
// status, catalog rank decides; ties fall back to insertion order,
// which the catalog's ordering already guarantees.
func (s *Selector) Next(statuses map[model.Category]model.CategoryStatus, covered map[model.Category]bool) *model.QuestionTemplate {
	var best *model.QuestionTemplate
	bestPriority := 0

	for _, t := range s.catalog.Active() {
		if covered[t.Category] {
			continue
		}
		status, ok := statuses[t.Category]
		if !ok || status == model.StatusAnswered {
			continue
		}
		priority, candidate := statusPriority[status]
		if !candidate {
			continue
		}
		if best == nil || priority < bestPriority {
			best = t
			bestPriority = priority
		}
	}
	return best
}
