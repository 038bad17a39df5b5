package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/harry720320/account-plan-agent/internal/completeness"
	"github.com/harry720320/account-plan-agent/internal/history"
	"github.com/harry720320/account-plan-agent/internal/llm"
	"github.com/harry720320/account-plan-agent/internal/model"
	"github.com/harry720320/account-plan-agent/internal/selector"
	"github.com/harry720320/account-plan-agent/internal/store"
)

const (
	managerRole = "You are a professional account manager gathering information about a " +
		"business relationship. Ask one focused, open-ended question at a time."
	extractionRole = "You extract structured facts from an interview answer. Return a " +
		"flat JSON object mapping short snake_case field names to string values: key " +
		"people, products or services, dates, amounts, project names, challenges, " +
		"plans. Include only fields the answer supports. Output JSON only."
	summaryRole = "You maintain a running summary of an information-gathering " +
		"conversation. Merge the previous summary with the new exchange into a concise " +
		"updated summary. Keep every fact still believed true; drop nothing silently."
)

// ambiguityMarkers signal an answer that likely needs a follow-up.
var ambiguityMarkers = []string{"not sure", "don't know", "dont know", "maybe", "unsure", "can't recall", "no idea"}

// Machine drives elicitation sessions.
type Machine struct {
	store     *store.Store
	client    *llm.Client
	evaluator *completeness.Evaluator
	selector  *selector.Selector
	detector  *history.Detector
	cfg       model.ElicitationConfig
	logger    *zap.Logger
}

// NewMachine wires the state machine to its collaborators.
func NewMachine(st *store.Store, client *llm.Client, evaluator *completeness.Evaluator,
	sel *selector.Selector, detector *history.Detector, cfg model.ElicitationConfig, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFollowUps < 0 {
		cfg.MaxFollowUps = 0
	}
	return &Machine{
		store:     st,
		client:    client,
		evaluator: evaluator,
		selector:  sel,
		detector:  detector,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start opens a session for an account.
func (m *Machine) Start(accountID int64) (*Session, error) {
	if _, err := m.store.GetAccount(accountID); err != nil {
		return nil, err
	}
	return newSession(accountID), nil
}

// NextQuestion advances AwaitingQuestion. It returns the next question
// text, or ok=false after moving the session to Exhausted because every
// active category is answered.
func (m *Machine) NextQuestion(sess *Session) (question string, ok bool, err error) {
	if sess.state != StateAwaitingQuestion {
		return "", false, model.Validationf("session %s is %s, not awaiting a question", sess.ID, sess.state)
	}

	statuses, err := m.evaluator.Evaluate(sess.AccountID)
	if err != nil {
		return "", false, err
	}
	template := m.selector.Next(statuses, sess.covered)
	if template == nil {
		sess.state = StateExhausted
		sess.currentTemplate = nil
		sess.currentQuestion = ""
		return "", false, nil
	}

	sess.currentTemplate = template
	sess.currentQuestion = template.Question
	sess.followUpDepth = 0
	sess.categoryQA = nil
	sess.state = StateAwaitingAnswer
	return template.Question, true, nil
}

// TurnResult reports what SubmitAnswer recorded and what comes next.
type TurnResult struct {
	Turn           *model.InteractionTurn
	FollowUp       string // Next follow-up question; empty when the category closed
	CategoryClosed bool
}

// SubmitAnswer consumes the caller's raw answer while AwaitingAnswer.
// The answer is classified against history, structured fields are
// extracted, and exactly one turn is appended. Short or ambiguous
// answers trigger one follow-up question for the same category, up to
// the configured maximum depth. When the category closes, the running
// summary is regenerated; a summary failure is returned after the turn
// is already safely recorded.
func (m *Machine) SubmitAnswer(ctx context.Context, sess *Session, answer string) (*TurnResult, error) {
	if sess.state != StateAwaitingAnswer {
		return nil, model.Validationf("session %s is %s, not awaiting an answer", sess.ID, sess.state)
	}
	if strings.TrimSpace(answer) == "" {
		return nil, model.Validationf("answer must not be empty")
	}
	template := sess.currentTemplate
	category := template.Category

	// Classification degrades internally; only storage errors surface.
	verdict, err := m.detector.Classify(ctx, sess.AccountID, category, answer)
	if err != nil {
		return nil, err
	}

	// Extraction failures surface before anything is recorded, so a
	// refused completion never produces a half-written turn.
	structured, err := m.extract(ctx, template, answer)
	if err != nil {
		return nil, err
	}

	turn := &model.InteractionTurn{
		AccountID:      sess.AccountID,
		Category:       category,
		Question:       sess.currentQuestion,
		Answer:         answer,
		Structured:     structured,
		Classification: verdict.Classification,
		ChangeNote:     verdict.ChangeNote,
		FollowUp:       sess.followUpDepth > 0,
	}
	if err := m.store.AppendTurn(turn); err != nil {
		return nil, err
	}
	sess.turnIDs = append(sess.turnIDs, turn.ID)
	sess.categoryQA = append(sess.categoryQA,
		fmt.Sprintf("Q: %s\nA: %s", sess.currentQuestion, answer))

	if sess.followUpDepth < m.cfg.MaxFollowUps && m.needsFollowUp(answer) {
		if followUp := m.followUpQuestion(ctx, sess, answer); followUp != "" {
			sess.followUpDepth++
			sess.currentQuestion = followUp
			return &TurnResult{Turn: turn, FollowUp: followUp}, nil
		}
	}

	// Category closed: regenerate the running summary and loop back.
	sess.state = StateSummarizing
	summaryErr := m.refreshSummary(ctx, sess)
	sess.covered[category] = true
	sess.currentTemplate = nil
	sess.currentQuestion = ""
	sess.state = StateAwaitingQuestion

	result := &TurnResult{Turn: turn, CategoryClosed: true}
	if summaryErr != nil {
		return result, fmt.Errorf("summarize: %w", summaryErr)
	}
	return result, nil
}

// Skip abandons the current question without recording a turn. The
// category is excluded for the rest of the session so the selector
// moves on.
func (m *Machine) Skip(sess *Session) error {
	if sess.state != StateAwaitingAnswer {
		return model.Validationf("session %s is %s, nothing to skip", sess.ID, sess.state)
	}
	sess.covered[sess.currentTemplate.Category] = true
	sess.currentTemplate = nil
	sess.currentQuestion = ""
	sess.state = StateAwaitingQuestion
	return nil
}

// End closes the session at any point. The final summary is persisted
// onto every turn the session recorded; there is no rollback.
func (m *Machine) End(sess *Session) error {
	if sess.state == StateExhausted && len(sess.turnIDs) == 0 {
		return nil
	}
	if err := m.store.AttachSummary(sess.turnIDs, sess.summary); err != nil {
		return err
	}
	sess.state = StateExhausted
	sess.currentTemplate = nil
	sess.currentQuestion = ""
	return nil
}

// needsFollowUp applies the incompleteness heuristic: very short
// answers or explicit hedging.
func (m *Machine) needsFollowUp(answer string) bool {
	trimmed := strings.TrimSpace(answer)
	if m.cfg.MinAnswerRunes > 0 && utf8.RuneCountInString(trimmed) < m.cfg.MinAnswerRunes {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, marker := range ambiguityMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return strings.HasSuffix(trimmed, "?")
}

// followUpQuestion prefers the template's canned follow-ups, then asks
// the completion service for one. Generation failure skips the
// follow-up rather than blocking the session.
func (m *Machine) followUpQuestion(ctx context.Context, sess *Session, answer string) string {
	template := sess.currentTemplate
	if sess.followUpDepth < len(template.FollowUps) {
		return template.FollowUps[sess.followUpDepth]
	}
	if !m.client.Enabled() {
		return ""
	}
	prompt := fmt.Sprintf(
		"Topic: %s\nQuestion asked: %s\nAnswer received: %s\n\n"+
			"The answer seems incomplete. Write exactly one short follow-up question "+
			"to fill the gap. Output only the question.",
		template.Category, sess.currentQuestion, answer,
	)
	followUp, err := m.client.Complete(ctx, managerRole, prompt, llm.Options{MaxTokens: 150})
	if err != nil {
		m.logger.Warn("follow-up generation failed, closing category",
			zap.String("session", sess.ID),
			zap.String("category", string(template.Category)),
			zap.Error(err))
		return ""
	}
	return strings.TrimSpace(followUp)
}

// extract pulls structured fields out of the answer. Unparseable
// output keeps the raw answer only; a failed completion call is
// surfaced.
func (m *Machine) extract(ctx context.Context, template *model.QuestionTemplate, answer string) (map[string]string, error) {
	if !m.client.Enabled() {
		return nil, nil
	}
	prompt := fmt.Sprintf("Topic: %s\nQuestion: %s\nAnswer: %s", template.Category, template.Question, answer)
	if template.Description != "" {
		prompt += fmt.Sprintf("\nExpected fields: %s", template.Description)
	}
	raw, err := m.client.Complete(ctx, extractionRole, prompt, llm.Options{MaxTokens: 500})
	if err != nil {
		return nil, fmt.Errorf("extract structured fields: %w", err)
	}

	fields := make(map[string]string)
	if err := json.Unmarshal([]byte(stripFences(raw)), &fields); err != nil {
		m.logger.Debug("unparseable extraction output", zap.Error(err))
		return nil, nil
	}
	return fields, nil
}

// refreshSummary merges the previous running summary with the turns of
// the just-closed category.
func (m *Machine) refreshSummary(ctx context.Context, sess *Session) error {
	if !m.client.Enabled() {
		return nil
	}
	previous := sess.summary
	if previous == "" {
		previous = "(none yet)"
	}
	prompt := fmt.Sprintf("Previous summary:\n%s\n\nNew exchange:\n%s",
		previous, strings.Join(sess.categoryQA, "\n\n"))
	merged, err := m.client.Complete(ctx, summaryRole, prompt, llm.Options{MaxTokens: 700})
	if err != nil {
		return err
	}
	sess.summary = strings.TrimSpace(merged)
	return nil
}

func stripFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
