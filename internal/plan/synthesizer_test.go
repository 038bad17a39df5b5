package plan

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/harry720320/account-plan-agent/internal/evidence"
	"github.com/harry720320/account-plan-agent/internal/llm"
	"github.com/harry720320/account-plan-agent/internal/model"
	"github.com/harry720320/account-plan-agent/internal/store"
)

type fixedProvider struct {
	response string
	err      error
}

func (p *fixedProvider) Name() string { return "fixed" }

func (p *fixedProvider) IsAvailable(ctx context.Context) bool { return true }

func (p *fixedProvider) Complete(ctx context.Context, role, prompt string, opts llm.Options) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}

func testLLMConfig() model.LLMConfig {
	return model.LLMConfig{Timeout: 5, RequestsPerSecond: 1000, Burst: 1000}
}

func newTestSynthesizer(t *testing.T, client *llm.Client) (*Synthesizer, *store.Store, int64) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	account := &model.Account{CompanyName: "Acme Corp", Industry: "Manufacturing", Country: "US"}
	if err := st.CreateAccount(account); err != nil {
		t.Fatalf("create account: %v", err)
	}
	cache := evidence.NewCache(st, model.EvidenceConfig{StalenessHorizon: 30 * 24 * time.Hour, MemoryTTL: time.Minute})
	synth := NewSynthesizer(st, cache, client, model.PlanConfig{Author: "tester", KeepLatest: 3}, zap.NewNop())
	return synth, st, account.ID
}

func disabledClient() *llm.Client {
	return llm.NewClient(nil, testLLMConfig())
}

func addTurn(t *testing.T, st *store.Store, accountID int64, category model.Category, answer string) *model.InteractionTurn {
	t.Helper()
	turn := &model.InteractionTurn{
		AccountID:      accountID,
		Category:       category,
		Question:       "question",
		Answer:         answer,
		Classification: model.ClassificationNew,
	}
	if err := st.AppendTurn(turn); err != nil {
		t.Fatalf("append turn: %v", err)
	}
	return turn
}

func TestSynthesize_RefusesWithNoKnowledge(t *testing.T) {
	synth, _, accountID := newTestSynthesizer(t, disabledClient())

	_, err := synth.Synthesize(context.Background(), accountID)
	if !errors.Is(err, model.ErrConsistency) {
		t.Fatalf("err = %v, want consistency error", err)
	}
}

func TestSynthesize_PlaceholdersForUnsupportedSections(t *testing.T) {
	synth, st, accountID := newTestSynthesizer(t, disabledClient())
	addTurn(t, st, accountID, model.CategoryResourceNeeds, "We need two more support engineers on site.")

	p, err := synth.Synthesize(context.Background(), accountID)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if p.Title != "Acme Corp Strategic Account Plan" {
		t.Fatalf("title = %q", p.Title)
	}
	if !strings.Contains(p.Sections[model.SectionResources], "support engineers") {
		t.Fatalf("resource section = %q", p.Sections[model.SectionResources])
	}
	if p.Sections[model.SectionExternal] != model.SectionPlaceholder {
		t.Fatalf("external section = %q, want placeholder", p.Sections[model.SectionExternal])
	}
	if p.Sections[model.SectionRisks] != model.SectionPlaceholder {
		t.Fatalf("risks section = %q, want placeholder", p.Sections[model.SectionRisks])
	}
	if len(p.ChangeLog) != 1 || p.ChangeLog[0].Summary != "Initial plan created" {
		t.Fatalf("change log = %+v", p.ChangeLog)
	}
	if p.ChangeLog[0].Author != "tester" {
		t.Fatalf("author = %q", p.ChangeLog[0].Author)
	}
}

func TestSynthesize_EvidenceOnly(t *testing.T) {
	synth, st, accountID := newTestSynthesizer(t, disabledClient())
	if err := st.UpsertEvidence(&model.EvidenceRecord{
		AccountID: accountID,
		Type:      model.EvidenceNews,
		Content:   "Acme announced a new plant in Ohio.",
	}); err != nil {
		t.Fatalf("upsert evidence: %v", err)
	}

	p, err := synth.Synthesize(context.Background(), accountID)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if !strings.Contains(p.Sections[model.SectionExternal], "new plant in Ohio") {
		t.Fatalf("external section = %q", p.Sections[model.SectionExternal])
	}
	if p.Sections[model.SectionResources] != model.SectionPlaceholder {
		t.Fatalf("resources section = %q, want placeholder", p.Sections[model.SectionResources])
	}
}

func TestSynthesize_SituationCombinesEvidenceAndChallenges(t *testing.T) {
	synth, st, accountID := newTestSynthesizer(t, disabledClient())
	if err := st.UpsertEvidence(&model.EvidenceRecord{
		AccountID: accountID,
		Type:      model.EvidenceProfile,
		Content:   "B2B software, 500 employees",
	}); err != nil {
		t.Fatalf("upsert evidence: %v", err)
	}
	addTurn(t, st, accountID, model.CategoryChallenges, "Onboarding new customers is slow.")

	p, err := synth.Synthesize(context.Background(), accountID)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	situation := p.Sections[model.SectionSituation]
	if !strings.Contains(situation, "500 employees") {
		t.Fatalf("situation section missing profile evidence: %q", situation)
	}
	if !strings.Contains(situation, "Onboarding new customers is slow") {
		t.Fatalf("situation section missing challenges answer: %q", situation)
	}
	if p.Sections[model.SectionResources] != model.SectionPlaceholder {
		t.Fatalf("resources section = %q, want placeholder", p.Sections[model.SectionResources])
	}
}

func TestSynthesize_SecondRunNoMaterialChanges(t *testing.T) {
	synth, st, accountID := newTestSynthesizer(t, disabledClient())
	addTurn(t, st, accountID, model.CategoryChallenges, "Lead times on custom parts keep slipping.")

	first, err := synth.Synthesize(context.Background(), accountID)
	if err != nil {
		t.Fatalf("first synthesize: %v", err)
	}
	second, err := synth.Synthesize(context.Background(), accountID)
	if err != nil {
		t.Fatalf("second synthesize: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("second run should create a new plan version")
	}
	if len(second.ChangeLog) != 2 {
		t.Fatalf("change log has %d entries, want prior entry plus new one", len(second.ChangeLog))
	}
	last := second.ChangeLog[len(second.ChangeLog)-1]
	if last.Summary != "Plan regenerated, no material changes" {
		t.Fatalf("last change entry = %q", last.Summary)
	}
}

func TestSynthesize_ContradictionSurfacesChangeNote(t *testing.T) {
	provider := &fixedProvider{response: "drafted section"}
	synth, st, accountID := newTestSynthesizer(t, llm.NewClient(provider, testLLMConfig()))
	turn := &model.InteractionTurn{
		AccountID:      accountID,
		Category:       model.CategoryKeyContacts,
		Question:       "Who is the main contact?",
		Answer:         "Dana Li took over as procurement lead.",
		Classification: model.ClassificationContradicts,
		ChangeNote:     "procurement lead changed from Sam Park to Dana Li",
	}
	if err := st.AppendTurn(turn); err != nil {
		t.Fatalf("append turn: %v", err)
	}

	material := collectMaterial(&model.Account{CompanyName: "Acme Corp"},
		[]*model.InteractionTurn{turn}, nil)
	insights := strings.Join(material[model.SectionInsights], "\n")
	if !strings.Contains(insights, "CHANGED: procurement lead changed from Sam Park to Dana Li") {
		t.Fatalf("insights material = %q", insights)
	}

	p, err := synth.Synthesize(context.Background(), accountID)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	entry := p.ChangeLog[len(p.ChangeLog)-1].Summary
	if !strings.Contains(entry, "procurement lead changed from Sam Park to Dana Li") {
		t.Fatalf("change log entry %q missing the contradiction note", entry)
	}
}

func TestSynthesize_DraftFailureStoresNothing(t *testing.T) {
	provider := &fixedProvider{err: model.Permanentf("refused")}
	synth, st, accountID := newTestSynthesizer(t, llm.NewClient(provider, testLLMConfig()))
	addTurn(t, st, accountID, model.CategoryChallenges, "Budget approvals move slowly.")

	if _, err := synth.Synthesize(context.Background(), accountID); err == nil {
		t.Fatal("expected draft error")
	}
	plans, err := st.ListPlans(accountID)
	if err != nil {
		t.Fatalf("list plans: %v", err)
	}
	if len(plans) != 0 {
		t.Fatalf("stored %d plans, want none after a failed draft", len(plans))
	}
}

func TestSynthesize_LinksTurnsAndArchives(t *testing.T) {
	synth, st, accountID := newTestSynthesizer(t, disabledClient())
	synth.cfg.KeepLatest = 2
	turn := addTurn(t, st, accountID, model.CategoryFuturePlans, "Acme wants to expand into Canada next year.")

	var latest *model.Plan
	for i := 0; i < 3; i++ {
		p, err := synth.Synthesize(context.Background(), accountID)
		if err != nil {
			t.Fatalf("synthesize %d: %v", i, err)
		}
		latest = p
	}

	turns, err := st.ListTurns(accountID)
	if err != nil {
		t.Fatalf("list turns: %v", err)
	}
	if turns[0].PlanID == nil {
		t.Fatal("turn should be linked to the first plan that used it")
	}
	if *turns[0].PlanID == latest.ID {
		t.Fatalf("turn %d relinked to latest plan, want first link kept", turn.ID)
	}

	plans, err := st.ListPlans(accountID)
	if err != nil {
		t.Fatalf("list plans: %v", err)
	}
	if len(plans) != 3 {
		t.Fatalf("have %d plan versions, want 3", len(plans))
	}
	archived := 0
	for _, p := range plans {
		if p.Status == model.PlanArchived {
			archived++
		}
	}
	if archived != 1 {
		t.Fatalf("archived %d plans, want the oldest only", archived)
	}
}

func TestDiffSections(t *testing.T) {
	prior := &model.Plan{Sections: map[model.Section]string{
		model.SectionRisks:     "Supply risk.",
		model.SectionResources: model.SectionPlaceholder,
	}}

	cases := []struct {
		name string
		next map[model.Section]string
		want string
	}{
		{
			name: "identical",
			next: map[model.Section]string{model.SectionRisks: "Supply risk."},
			want: "Plan regenerated, no material changes",
		},
		{
			name: "updated",
			next: map[model.Section]string{model.SectionRisks: "Supply and currency risk."},
			want: "Updated Risk Assessment",
		},
		{
			name: "drafted from placeholder",
			next: map[model.Section]string{
				model.SectionRisks:     "Supply risk.",
				model.SectionResources: "Two engineers.",
			},
			want: "Drafted Resource Needs",
		},
		{
			name: "cleared",
			next: map[model.Section]string{model.SectionRisks: model.SectionPlaceholder},
			want: "Cleared Risk Assessment",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DiffSections(prior, tc.next); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}

	if got := DiffSections(nil, nil); got != "Initial plan created" {
		t.Fatalf("nil prior diff = %q", got)
	}
}
