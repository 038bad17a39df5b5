package history

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/harry720320/account-plan-agent/internal/llm"
	"github.com/harry720320/account-plan-agent/internal/model"
	"github.com/harry720320/account-plan-agent/internal/store"
)

type verdictProvider struct {
	verdict string
	err     error
	calls   int
}

func (p *verdictProvider) Name() string { return "verdict" }

func (p *verdictProvider) IsAvailable(ctx context.Context) bool { return true }

func (p *verdictProvider) Complete(ctx context.Context, role, prompt string, opts llm.Options) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.verdict, nil
}

func newTestDetector(t *testing.T, provider llm.Provider) (*Detector, *store.Store, int64) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	account := &model.Account{CompanyName: "Acme Corp", Country: "US"}
	if err := st.CreateAccount(account); err != nil {
		t.Fatalf("create account: %v", err)
	}

	var client *llm.Client
	if provider != nil {
		client = llm.NewClient(provider, model.LLMConfig{Timeout: 5, RequestsPerSecond: 1000, Burst: 1000})
	}
	return NewDetector(client, st, zap.NewNop()), st, account.ID
}

func recordAnswer(t *testing.T, st *store.Store, accountID int64, answer string) {
	t.Helper()
	if err := st.AppendTurn(&model.InteractionTurn{
		AccountID: accountID,
		Category:  model.CategoryKeyContacts,
		Question:  "Who is the main contact?",
		Answer:    answer,
	}); err != nil {
		t.Fatalf("append turn: %v", err)
	}
}

func TestClassify_NoPriorAnswerIsNew(t *testing.T) {
	provider := &verdictProvider{verdict: "CONFIRMS: same"}
	d, _, accountID := newTestDetector(t, provider)

	result, err := d.Classify(context.Background(), accountID, model.CategoryKeyContacts, "Sam Park")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if result.Classification != model.ClassificationNew {
		t.Fatalf("classification = %s", result.Classification)
	}
	if provider.calls != 0 {
		t.Fatalf("comparison called %d times with no prior answer", provider.calls)
	}
}

func TestClassify_Contradiction(t *testing.T) {
	provider := &verdictProvider{verdict: "CONTRADICTS: procurement lead changed from Sam Park to Dana Li"}
	d, st, accountID := newTestDetector(t, provider)
	recordAnswer(t, st, accountID, "Sam Park is the procurement lead.")

	result, err := d.Classify(context.Background(), accountID, model.CategoryKeyContacts, "Dana Li is the procurement lead now.")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if result.Classification != model.ClassificationContradicts {
		t.Fatalf("classification = %s", result.Classification)
	}
	if result.ChangeNote != "procurement lead changed from Sam Park to Dana Li" {
		t.Fatalf("change note = %q", result.ChangeNote)
	}
}

func TestClassify_FailureDegradesToNew(t *testing.T) {
	provider := &verdictProvider{err: model.Permanentf("refused")}
	d, st, accountID := newTestDetector(t, provider)
	recordAnswer(t, st, accountID, "Sam Park")

	result, err := d.Classify(context.Background(), accountID, model.CategoryKeyContacts, "Dana Li")
	if err != nil {
		t.Fatalf("classification failure must not surface: %v", err)
	}
	if result.Classification != model.ClassificationNew {
		t.Fatalf("classification = %s, want conservative new", result.Classification)
	}
}

func TestClassify_UnparseableVerdictDegradesToNew(t *testing.T) {
	provider := &verdictProvider{verdict: "I think they broadly agree with each other."}
	d, st, accountID := newTestDetector(t, provider)
	recordAnswer(t, st, accountID, "Sam Park")

	result, err := d.Classify(context.Background(), accountID, model.CategoryKeyContacts, "Dana Li")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if result.Classification != model.ClassificationNew {
		t.Fatalf("classification = %s", result.Classification)
	}
}

func TestClassify_DisabledClientIsNew(t *testing.T) {
	d, st, accountID := newTestDetector(t, nil)
	recordAnswer(t, st, accountID, "Sam Park")

	result, err := d.Classify(context.Background(), accountID, model.CategoryKeyContacts, "Dana Li")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if result.Classification != model.ClassificationNew {
		t.Fatalf("classification = %s", result.Classification)
	}
}

func TestParseVerdict(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Result
		ok   bool
	}{
		{"confirms", "CONFIRMS: same ground", Result{Classification: model.ClassificationConfirms}, true},
		{"confirms bare", "confirms", Result{Classification: model.ClassificationConfirms}, true},
		{"new", "NEW: covers different ground", Result{Classification: model.ClassificationNew}, true},
		{
			"contradicts with note",
			"CONTRADICTS: the lead changed",
			Result{Classification: model.ClassificationContradicts, ChangeNote: "the lead changed"},
			true,
		},
		{
			"contradicts dash separator",
			"CONTRADICTS - budget figure differs",
			Result{Classification: model.ClassificationContradicts, ChangeNote: "budget figure differs"},
			true,
		},
		{
			"multiline keeps first line",
			"CONFIRMS: same\nAdditional rambling below.",
			Result{Classification: model.ClassificationConfirms},
			true,
		},
		{"unparseable", "hard to say really", Result{}, false},
		{"empty", "", Result{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := parseVerdict(tc.raw)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("parseVerdict(%q) = %+v, %v; want %+v, %v", tc.raw, got, ok, tc.want, tc.ok)
			}
		})
	}
}
