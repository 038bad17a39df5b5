// Package conversation implements the elicitation state machine. A
// session walks AwaitingQuestion → AwaitingAnswer → Summarizing and
// back, or terminates in Exhausted when no questions remain. Every
// transition appends exactly one interaction turn; cancellation leaves
// all recorded turns intact.
package conversation

import (
	"github.com/google/uuid"

	"github.com/harry720320/account-plan-agent/internal/model"
)

// State names one position in the session loop.
type State string

const (
	StateAwaitingQuestion State = "awaiting_question"
	StateAwaitingAnswer   State = "awaiting_answer"
	StateSummarizing      State = "summarizing"
	StateExhausted        State = "exhausted" // Terminal
)

// Session is the ephemeral aggregate over one elicitation pass. It
// lives only for the duration of the pass; the final summary is
// persisted onto the turns it covers, then the session is discarded.
type Session struct {
	ID        string
	AccountID int64

	state           State
	summary         string
	currentTemplate *model.QuestionTemplate
	currentQuestion string
	followUpDepth   int
	covered         map[model.Category]bool
	categoryQA      []string // Q/A lines of the category being elicited
	turnIDs         []int64
}

func newSession(accountID int64) *Session {
	return &Session{
		ID:        uuid.NewString(),
		AccountID: accountID,
		state:     StateAwaitingQuestion,
		covered:   make(map[model.Category]bool),
	}
}

// State returns the session's current state.
func (s *Session) State() State { return s.state }

// Summary returns the running session summary.
func (s *Session) Summary() string { return s.summary }

// CurrentQuestion returns the question awaiting an answer, if any.
func (s *Session) CurrentQuestion() string { return s.currentQuestion }

// CurrentCategory returns the category being elicited, or "".
func (s *Session) CurrentCategory() model.Category {
	if s.currentTemplate == nil {
		return ""
	}
	return s.currentTemplate.Category
}

// TurnIDs returns the ids of all turns recorded by this session.
func (s *Session) TurnIDs() []int64 { return s.turnIDs }

// Exhausted reports whether the session reached its terminal state.
func (s *Session) Exhausted() bool { return s.state == StateExhausted }
