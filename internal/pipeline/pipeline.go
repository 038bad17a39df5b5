// Package pipeline wires the storage, evidence, elicitation and
// synthesis collaborators into one orchestrator behind the CLI.
package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/harry720320/account-plan-agent/internal/catalog"
	"github.com/harry720320/account-plan-agent/internal/completeness"
	"github.com/harry720320/account-plan-agent/internal/conversation"
	"github.com/harry720320/account-plan-agent/internal/evidence"
	"github.com/harry720320/account-plan-agent/internal/history"
	"github.com/harry720320/account-plan-agent/internal/llm"
	"github.com/harry720320/account-plan-agent/internal/model"
	"github.com/harry720320/account-plan-agent/internal/plan"
	"github.com/harry720320/account-plan-agent/internal/selector"
	"github.com/harry720320/account-plan-agent/internal/store"
)

// Pipeline orchestrates the full account-plan workflow: evidence
// collection, elicitation sessions, and plan synthesis. Elicitation
// and synthesis are serialized per account; concurrent work on
// different accounts proceeds independently.
type Pipeline struct {
	store     *store.Store
	client    *llm.Client
	cache     *evidence.Cache
	collector *evidence.Collector
	config    *model.Config
	logger    *zap.Logger

	mu   sync.Mutex
	busy map[int64]string // account id -> operation holding it
}

// New builds a pipeline from configuration. The completion provider is
// optional: with none configured, evidence collection and section
// drafting degrade rather than fail.
func New(cfg *model.Config, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	st, err := store.New(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	client, err := llm.NewClientFromConfig(cfg.LLM)
	if err != nil {
		st.Close()
		return nil, err
	}
	cache := evidence.NewCache(st, cfg.Evidence)
	fetcher := evidence.NewFetcher(cfg.Evidence)
	return &Pipeline{
		store:     st,
		client:    client,
		cache:     cache,
		collector: evidence.NewCollector(client, cache, fetcher, logger),
		config:    cfg,
		logger:    logger,
		busy:      make(map[int64]string),
	}, nil
}

// Close releases the storage handle.
func (p *Pipeline) Close() error { return p.store.Close() }

// Store exposes storage for account and catalog management commands.
func (p *Pipeline) Store() *store.Store { return p.store }

// Evidence exposes the evidence cache for read-only inspection.
func (p *Pipeline) Evidence() *evidence.Cache { return p.cache }

// acquire claims an account for one exclusive operation.
func (p *Pipeline) acquire(accountID int64, op string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if holder, ok := p.busy[accountID]; ok {
		return model.Validationf("account %d is busy: %s in progress", accountID, holder)
	}
	p.busy[accountID] = op
	return nil
}

func (p *Pipeline) release(accountID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.busy, accountID)
}

// CollectEvidence refreshes all evidence types for an account.
// Per-type failures are logged and skipped; the successful records are
// returned alongside the joined failure, if any.
func (p *Pipeline) CollectEvidence(ctx context.Context, accountID int64) ([]*model.EvidenceRecord, error) {
	account, err := p.store.GetAccount(accountID)
	if err != nil {
		return nil, err
	}
	return p.collector.CollectAll(ctx, account)
}

// CollectOne refreshes a single evidence type.
func (p *Pipeline) CollectOne(ctx context.Context, accountID int64, typ model.EvidenceType) (*model.EvidenceRecord, error) {
	account, err := p.store.GetAccount(accountID)
	if err != nil {
		return nil, err
	}
	return p.collector.Collect(ctx, account, typ)
}

// Session is a running elicitation pass holding its account's
// exclusive claim. Callers must End it, even on early exit.
type Session struct {
	*conversation.Session
	machine  *conversation.Machine
	pipeline *Pipeline
}

// StartSession opens an elicitation session. The account stays claimed
// until End is called.
func (p *Pipeline) StartSession(accountID int64) (*Session, error) {
	if err := p.acquire(accountID, "elicitation"); err != nil {
		return nil, err
	}
	machine, err := p.machine()
	if err != nil {
		p.release(accountID)
		return nil, err
	}
	sess, err := machine.Start(accountID)
	if err != nil {
		p.release(accountID)
		return nil, err
	}
	return &Session{Session: sess, machine: machine, pipeline: p}, nil
}

// NextQuestion asks the machine for the next question to pose.
func (s *Session) NextQuestion() (string, bool, error) {
	return s.machine.NextQuestion(s.Session)
}

// SubmitAnswer records the caller's answer.
func (s *Session) SubmitAnswer(ctx context.Context, answer string) (*conversation.TurnResult, error) {
	return s.machine.SubmitAnswer(ctx, s.Session, answer)
}

// Skip abandons the current question and moves to the next topic.
func (s *Session) Skip() error {
	return s.machine.Skip(s.Session)
}

// End persists the session summary and releases the account.
func (s *Session) End() error {
	defer s.pipeline.release(s.AccountID)
	return s.machine.End(s.Session)
}

// machine assembles a state machine over the current question catalog.
// The catalog is reloaded per session so template changes take effect
// without restarting.
func (p *Pipeline) machine() (*conversation.Machine, error) {
	cat, err := catalog.Load(p.store)
	if err != nil {
		return nil, err
	}
	return conversation.NewMachine(
		p.store,
		p.client,
		completeness.NewEvaluator(p.store, cat, p.config.Elicitation),
		selector.New(cat),
		history.NewDetector(p.client, p.store, p.logger),
		p.config.Elicitation,
		p.logger,
	), nil
}

// Synthesize produces a new plan version for the account while holding
// its exclusive claim.
func (p *Pipeline) Synthesize(ctx context.Context, accountID int64) (*model.Plan, error) {
	if err := p.acquire(accountID, "synthesis"); err != nil {
		return nil, err
	}
	defer p.release(accountID)
	synth := plan.NewSynthesizer(p.store, p.cache, p.client, p.config.Plan, p.logger)
	return synth.Synthesize(ctx, accountID)
}

// AccountStatus is the per-account knowledge overview.
type AccountStatus struct {
	Account    *model.Account
	Categories map[model.Category]model.CategoryStatus
	Evidence   []*model.EvidenceRecord
	LatestPlan *model.Plan
	PlanCount  int
}

// Status reports category completeness, cached evidence and the latest
// plan for an account.
func (p *Pipeline) Status(accountID int64) (*AccountStatus, error) {
	account, err := p.store.GetAccount(accountID)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Load(p.store)
	if err != nil {
		return nil, err
	}
	statuses, err := completeness.NewEvaluator(p.store, cat, p.config.Elicitation).Evaluate(accountID)
	if err != nil {
		return nil, err
	}
	records, err := p.cache.List(accountID)
	if err != nil {
		return nil, err
	}
	latest, err := p.store.LatestPlan(accountID)
	if err != nil {
		return nil, err
	}
	plans, err := p.store.ListPlans(accountID)
	if err != nil {
		return nil, err
	}
	return &AccountStatus{
		Account:    account,
		Categories: statuses,
		Evidence:   records,
		LatestPlan: latest,
		PlanCount:  len(plans),
	}, nil
}
