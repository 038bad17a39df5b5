package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/harry720320/account-plan-agent/internal/catalog"
	"github.com/harry720320/account-plan-agent/internal/model"
)

func testConfig(t *testing.T) *model.Config {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "test.db")
	cfg.LLM.Provider = "" // Completions disabled
	cfg.Elicitation.MinAnswerRunes = 5
	cfg.Elicitation.FreshnessHorizon = time.Hour
	return cfg
}

func newTestPipeline(t *testing.T) (*Pipeline, int64) {
	t.Helper()
	p, err := New(testConfig(t), zap.NewNop())
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	t.Cleanup(func() { p.Close() })

	if err := catalog.Seed(p.Store(), model.CatalogConfig{}); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	account := &model.Account{CompanyName: "Acme Corp", Country: "US"}
	if err := p.Store().CreateAccount(account); err != nil {
		t.Fatalf("create account: %v", err)
	}
	return p, account.ID
}

func TestPipeline_AccountClaimedDuringSession(t *testing.T) {
	p, accountID := newTestPipeline(t)

	sess, err := p.StartSession(accountID)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if _, err := p.Synthesize(context.Background(), accountID); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("err = %v, want busy validation error", err)
	}
	if _, err := p.StartSession(accountID); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("err = %v, want busy validation error for second session", err)
	}

	if err := sess.End(); err != nil {
		t.Fatalf("end session: %v", err)
	}
	// Released: the next exclusive operation reaches its own logic.
	if _, err := p.Synthesize(context.Background(), accountID); !errors.Is(err, model.ErrConsistency) {
		t.Fatalf("err = %v, want consistency error from empty account", err)
	}
}

func TestPipeline_SessionToPlan(t *testing.T) {
	p, accountID := newTestPipeline(t)
	ctx := context.Background()

	sess, err := p.StartSession(accountID)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	question, ok, err := sess.NextQuestion()
	if err != nil || !ok {
		t.Fatalf("next question: ok=%v err=%v", ok, err)
	}
	if question == "" {
		t.Fatal("seeded catalog should supply a question")
	}
	result, err := sess.SubmitAnswer(ctx, "The partnership started with a pilot integration in 2021 and expanded since.")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.CategoryClosed {
		t.Fatal("full answer should close the category")
	}
	if err := sess.End(); err != nil {
		t.Fatalf("end session: %v", err)
	}

	plan, err := p.Synthesize(ctx, accountID)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if plan.Title != "Acme Corp Strategic Account Plan" {
		t.Fatalf("title = %q", plan.Title)
	}

	status, err := p.Status(accountID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.PlanCount != 1 || status.LatestPlan == nil {
		t.Fatalf("status plans = %d latest=%v", status.PlanCount, status.LatestPlan)
	}
	answered := 0
	for _, s := range status.Categories {
		if s == model.StatusAnswered {
			answered++
		}
	}
	if answered != 1 {
		t.Fatalf("answered categories = %d, want 1", answered)
	}
}

func TestPipeline_StatusUnknownAccount(t *testing.T) {
	p, _ := newTestPipeline(t)
	if _, err := p.Status(9999); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("err = %v, want not-found", err)
	}
}
