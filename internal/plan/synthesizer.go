// Package plan synthesizes versioned strategic account plans from
// recorded interaction turns and cached evidence. Synthesis never
// fabricates: a section with no supporting input renders the standard
// placeholder, and an account with no knowledge at all refuses to
// produce a plan.
package plan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/harry720320/account-plan-agent/internal/evidence"
	"github.com/harry720320/account-plan-agent/internal/llm"
	"github.com/harry720320/account-plan-agent/internal/model"
	"github.com/harry720320/account-plan-agent/internal/store"
)

const plannerRole = "You are a strategic account planner. Draft one section of an " +
	"account plan using only the supplied source material. Never invent facts that " +
	"the material does not support. Write tight professional prose, 1-3 paragraphs " +
	"or a short bullet list. Output the section body only, no heading."

var nowFunc = time.Now

// Synthesizer builds plan documents.
type Synthesizer struct {
	store  *store.Store
	cache  *evidence.Cache
	client *llm.Client
	cfg    model.PlanConfig
	logger *zap.Logger
}

// NewSynthesizer wires the synthesizer to its collaborators.
func NewSynthesizer(st *store.Store, cache *evidence.Cache, client *llm.Client, cfg model.PlanConfig, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.KeepLatest <= 0 {
		cfg.KeepLatest = 3
	}
	return &Synthesizer{store: st, cache: cache, client: client, cfg: cfg, logger: logger}
}

// Synthesize produces a new plan version for the account. It gathers
// the latest turn per category plus fresh evidence, drafts every
// section from section-scoped material, diffs the result against the
// latest prior plan into a change-log entry, and archives versions
// beyond the configured keep window. With zero turns and zero fresh
// evidence it returns a consistency error instead of an empty plan.
func (s *Synthesizer) Synthesize(ctx context.Context, accountID int64) (*model.Plan, error) {
	account, err := s.store.GetAccount(accountID)
	if err != nil {
		return nil, err
	}
	turns, err := s.store.ListTurns(accountID)
	if err != nil {
		return nil, err
	}
	fresh, err := s.cache.ListFresh(accountID)
	if err != nil {
		return nil, err
	}
	if len(turns) == 0 && len(fresh) == 0 {
		return nil, model.Consistencyf("account %d has no interactions and no fresh evidence to plan from", accountID)
	}
	prior, err := s.store.LatestPlan(accountID)
	if err != nil {
		return nil, err
	}

	material := collectMaterial(account, turns, fresh)
	sections := make(map[model.Section]string, len(model.Sections()))
	for _, section := range model.Sections() {
		body, err := s.draftSection(ctx, account, section, material[section], prior)
		if err != nil {
			return nil, fmt.Errorf("draft %s: %w", section, err)
		}
		sections[section] = body
	}

	next := &model.Plan{
		AccountID: accountID,
		Title:     fmt.Sprintf("%s Strategic Account Plan", account.CompanyName),
		Sections:  sections,
		Status:    model.PlanDraft,
	}
	if prior != nil {
		next.Title = prior.Title
		next.ChangeLog = append(next.ChangeLog, prior.ChangeLog...)
	}
	summary := DiffSections(prior, sections)
	if notes := pendingChangeNotes(turns); len(notes) > 0 {
		summary = fmt.Sprintf("%s. Reported changes: %s", summary, strings.Join(notes, "; "))
	}
	next.ChangeLog = append(next.ChangeLog, model.ChangeEntry{
		Timestamp: nowFunc().UTC(),
		Summary:   summary,
		Author:    s.cfg.Author,
	})

	if err := s.store.CreatePlan(next); err != nil {
		return nil, err
	}
	if ids := unlinkedTurnIDs(turns); len(ids) > 0 {
		if err := s.store.LinkTurnsToPlan(ids, next.ID); err != nil {
			return nil, err
		}
	}
	archived, err := s.store.ArchiveOldPlans(accountID, s.cfg.KeepLatest)
	if err != nil {
		return nil, err
	}
	if len(archived) > 0 {
		s.logger.Info("archived superseded plans",
			zap.Int64("account_id", accountID),
			zap.Int64s("plan_ids", archived))
	}
	return next, nil
}

// draftSection turns section-scoped material into prose. Sections
// without material fall back to the prior plan's section, then to the
// placeholder. A failed completion call aborts the whole synthesis so
// no partially drafted plan version is ever stored.
func (s *Synthesizer) draftSection(ctx context.Context, account *model.Account, section model.Section, inputs []string, prior *model.Plan) (string, error) {
	if len(inputs) == 0 {
		if prior != nil && prior.Sections[section] != "" && prior.Sections[section] != model.SectionPlaceholder {
			return prior.Sections[section], nil
		}
		return model.SectionPlaceholder, nil
	}
	if !s.client.Enabled() {
		// Deterministic fallback keeps synthesis usable offline.
		return "- " + strings.Join(inputs, "\n- "), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\nSection to draft: %s\n\nSource material:\n", account.CompanyName, section.Title())
	for _, in := range inputs {
		fmt.Fprintf(&b, "- %s\n", in)
	}
	if prior != nil && prior.Sections[section] != "" && prior.Sections[section] != model.SectionPlaceholder {
		fmt.Fprintf(&b, "\nPrevious version of this section:\n%s\n", prior.Sections[section])
	}
	body, err := s.client.Complete(ctx, plannerRole, b.String(), llm.Options{})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(body), nil
}

// sectionCategories scopes interview categories to plan sections.
var sectionCategories = map[model.Section][]model.Category{
	model.SectionSituation:  {model.CategoryCooperationHistory, model.CategoryProductsServices, model.CategoryChallenges},
	model.SectionInsights:   {}, // Receives every category
	model.SectionObjectives: {model.CategoryFuturePlans},
	model.SectionActions:    {model.CategoryFuturePlans, model.CategoryChallenges},
	model.SectionResources:  {model.CategoryResourceNeeds},
	model.SectionRisks:      {model.CategoryChallenges},
	model.SectionMetrics:    {model.CategoryFuturePlans, model.CategoryCooperationHistory},
	model.SectionNextSteps:  {model.CategoryFuturePlans, model.CategoryResourceNeeds, model.CategoryKeyContacts},
}

// collectMaterial assembles per-section source lines. Per category only
// the latest turn speaks; a contradiction's change note is carried next
// to the answer so drafting sees the correction, not just the text.
// Elicited answers rank above cached evidence, which ranks above
// whatever a prior plan said (the prior section is only a fallback).
func collectMaterial(account *model.Account, turns []*model.InteractionTurn, fresh []*model.EvidenceRecord) map[model.Section][]string {
	latest := make(map[model.Category]*model.InteractionTurn)
	for _, t := range turns {
		latest[t.Category] = t // ListTurns is ordered, last wins
	}

	material := make(map[model.Section][]string)
	add := func(section model.Section, line string) {
		material[section] = append(material[section], line)
	}
	seenSummaries := make(map[string]bool)

	for _, category := range model.Categories() {
		t, ok := latest[category]
		if !ok {
			continue
		}
		line := fmt.Sprintf("[%s] Q: %s A: %s", category, t.Question, t.Answer)
		if t.Classification == model.ClassificationContradicts && t.ChangeNote != "" {
			line = fmt.Sprintf("[%s] CHANGED: %s. Current answer to %q: %s", category, t.ChangeNote, t.Question, t.Answer)
		}
		add(model.SectionInsights, line)
		for section, categories := range sectionCategories {
			for _, c := range categories {
				if c == category {
					add(section, line)
				}
			}
		}
		if t.Summary != "" && !seenSummaries[t.Summary] {
			seenSummaries[t.Summary] = true
			add(model.SectionInsights, fmt.Sprintf("Session summary: %s", t.Summary))
		}
	}

	if account.Description != "" {
		add(model.SectionSituation, fmt.Sprintf("Account description: %s", account.Description))
	}
	if account.Industry != "" {
		add(model.SectionSituation, fmt.Sprintf("Industry: %s", account.Industry))
	}
	for _, rec := range fresh {
		line := fmt.Sprintf("%s (collected %s): %s",
			rec.Type.Describe(), rec.CollectedAt.UTC().Format("2006-01-02"), rec.Content)
		switch rec.Type {
		case model.EvidenceProfile:
			add(model.SectionSituation, line)
		case model.EvidenceNews, model.EvidenceMarket:
			add(model.SectionExternal, line)
		}
	}
	return material
}

// pendingChangeNotes gathers contradiction notes from turns not yet
// covered by an earlier plan version, so the correction shows up in the
// change log and not only inside the redrafted sections.
func pendingChangeNotes(turns []*model.InteractionTurn) []string {
	var notes []string
	for _, t := range turns {
		if t.PlanID == nil && t.Classification == model.ClassificationContradicts && t.ChangeNote != "" {
			notes = append(notes, t.ChangeNote)
		}
	}
	return notes
}

func unlinkedTurnIDs(turns []*model.InteractionTurn) []int64 {
	var ids []int64
	for _, t := range turns {
		if t.PlanID == nil {
			ids = append(ids, t.ID)
		}
	}
	return ids
}
