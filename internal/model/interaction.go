package model

import "time"

// Category is a fixed topic of internally elicited knowledge. Like
// evidence types, the set is closed and unknown tags are rejected.
type Category string

const (
	CategoryCooperationHistory Category = "cooperation_history"
	CategoryProductsServices   Category = "products_services"
	CategoryChallenges         Category = "challenges"
	CategoryKeyContacts        Category = "key_contacts"
	CategoryFuturePlans        Category = "future_plans"
	CategoryResourceNeeds      Category = "resource_needs"
)

// Categories returns all recognized categories in catalog order.
func Categories() []Category {
	return []Category{
		CategoryCooperationHistory,
		CategoryProductsServices,
		CategoryChallenges,
		CategoryKeyContacts,
		CategoryFuturePlans,
		CategoryResourceNeeds,
	}
}

// ParseCategory validates a raw tag against the recognized set.
func ParseCategory(raw string) (Category, error) {
	for _, c := range Categories() {
		if Category(raw) == c {
			return c, nil
		}
	}
	return "", Validationf("unknown category %q", raw)
}

func (c Category) String() string { return string(c) }

// Classification is the change detector's verdict on a new answer
// relative to the most recent prior answer in the same category.
type Classification string

const (
	ClassificationNew         Classification = "new"         // No prior answer, or comparison unavailable
	ClassificationConfirms    Classification = "confirms"    // Restates the prior answer
	ClassificationContradicts Classification = "contradicts" // Conflicts with the prior answer
)

// InteractionTurn is one question/answer exchange. Turns are append-only;
// after creation only the derived structured extraction and the session
// summary may be attached.
type InteractionTurn struct {
	ID             int64             `json:"id"`
	AccountID      int64             `json:"account_id"`
	PlanID         *int64            `json:"plan_id,omitempty"` // Plan this turn informed, if any
	Category       Category          `json:"category"`
	Question       string            `json:"question"`
	Answer         string            `json:"answer"`
	Structured     map[string]string `json:"structured,omitempty"` // LLM-extracted fields
	Classification Classification    `json:"classification"`
	ChangeNote     string            `json:"change_note,omitempty"` // Delta description on contradicts
	Summary        string            `json:"summary,omitempty"`     // Session summary, attached at session end
	FollowUp       bool              `json:"follow_up"`             // Whether this was a follow-up within the category
	CreatedAt      time.Time         `json:"created_at"`
}

// CategoryStatus is the completeness evaluator's verdict for one category.
type CategoryStatus string

const (
	StatusUnanswered  CategoryStatus = "unanswered"
	StatusStale       CategoryStatus = "stale"
	StatusAnswered    CategoryStatus = "answered"
	StatusConflicting CategoryStatus = "conflicting"
)
