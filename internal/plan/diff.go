package plan

import (
	"fmt"
	"strings"

	"github.com/harry720320/account-plan-agent/internal/model"
)

// DiffSections summarizes how a new set of sections differs from the
// prior plan. The result becomes the change-log entry for the new
// version, so re-running synthesis on unchanged inputs still leaves a
// dated "no material changes" trace.
func DiffSections(prior *model.Plan, next map[model.Section]string) string {
	if prior == nil {
		return "Initial plan created"
	}

	var updated, added, emptied []string
	for _, section := range model.Sections() {
		before := normalizeSection(prior.Sections[section])
		after := normalizeSection(next[section])
		switch {
		case before == after:
		case before == "":
			added = append(added, section.Title())
		case after == "":
			emptied = append(emptied, section.Title())
		default:
			updated = append(updated, section.Title())
		}
	}

	if len(updated)+len(added)+len(emptied) == 0 {
		return "Plan regenerated, no material changes"
	}
	var parts []string
	if len(added) > 0 {
		parts = append(parts, fmt.Sprintf("drafted %s", joinTitles(added)))
	}
	if len(updated) > 0 {
		parts = append(parts, fmt.Sprintf("updated %s", joinTitles(updated)))
	}
	if len(emptied) > 0 {
		parts = append(parts, fmt.Sprintf("cleared %s", joinTitles(emptied)))
	}
	summary := strings.Join(parts, "; ")
	return strings.ToUpper(summary[:1]) + summary[1:]
}

// normalizeSection treats the placeholder as absent so swapping a
// placeholder for real content reads as "drafted", not "updated".
func normalizeSection(body string) string {
	body = strings.TrimSpace(body)
	if body == model.SectionPlaceholder {
		return ""
	}
	return body
}

func joinTitles(titles []string) string {
	switch len(titles) {
	case 1:
		return titles[0]
	case 2:
		return titles[0] + " and " + titles[1]
	}
	return strings.Join(titles[:len(titles)-1], ", ") + " and " + titles[len(titles)-1]
}
