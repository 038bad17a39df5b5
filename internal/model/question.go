package model

import "time"

// QuestionTemplate is one catalog entry. Templates are process-wide
// reference data: mutated only by catalog management, consumed read-only
// by the elicitation engine.
type QuestionTemplate struct {
	ID          int64     `json:"id"`
	Category    Category  `json:"category"`
	Question    string    `json:"question"`
	Description string    `json:"description,omitempty"`
	IsCore      bool      `json:"is_core"`
	FollowUps   []string  `json:"follow_ups,omitempty"` // Canned follow-up texts, used before LLM-generated ones
	Rank        int       `json:"rank"`                 // Catalog ordering within equal status
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}
