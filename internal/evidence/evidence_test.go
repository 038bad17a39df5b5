package evidence

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/harry720320/account-plan-agent/internal/llm"
	"github.com/harry720320/account-plan-agent/internal/model"
	"github.com/harry720320/account-plan-agent/internal/store"
)

type stubProvider struct {
	respond func(role, prompt string) (string, error)
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) IsAvailable(ctx context.Context) bool { return true }

func (p *stubProvider) Complete(ctx context.Context, role, prompt string, opts llm.Options) (string, error) {
	return p.respond(role, prompt)
}

func newTestStore(t *testing.T) (*store.Store, int64) {
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
	return st, account.ID
}

func evidenceConfig() model.EvidenceConfig {
	return model.EvidenceConfig{
		StalenessHorizon: 30 * 24 * time.Hour,
		MemoryTTL:        time.Minute,
		FetchTimeout:     5 * time.Second,
		UserAgent:        "account-plan-test/0.1",
		MaxBodyBytes:     1_000_000,
	}
}

func TestCache_UpsertReplacesPerType(t *testing.T) {
	st, accountID := newTestStore(t)
	cache := NewCache(st, evidenceConfig())

	if _, err := cache.Upsert(accountID, model.EvidenceNews, "old news", ""); err != nil {
		t.Fatalf("upsert 1: %v", err)
	}
	if _, err := cache.Upsert(accountID, model.EvidenceNews, "fresh news", ""); err != nil {
		t.Fatalf("upsert 2: %v", err)
	}

	rec, err := cache.Get(accountID, model.EvidenceNews)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Content != "fresh news" {
		t.Fatalf("content = %q", rec.Content)
	}

	records, err := cache.List(accountID)
	if err != nil || len(records) != 1 {
		t.Fatalf("list: %d records err=%v", len(records), err)
	}
}

func TestCache_GetReturnsStaleVerbatim(t *testing.T) {
	st, accountID := newTestStore(t)
	cfg := evidenceConfig()
	cache := NewCache(st, cfg)

	if _, err := cache.Upsert(accountID, model.EvidenceMarket, "old market view", ""); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Move the clock past the staleness horizon.
	old := nowFunc
	nowFunc = func() time.Time { return time.Now().Add(cfg.StalenessHorizon + time.Hour) }
	defer func() { nowFunc = old }()

	rec, err := cache.Get(accountID, model.EvidenceMarket)
	if err != nil || rec == nil || rec.Content != "old market view" {
		t.Fatalf("stale get: %+v err=%v", rec, err)
	}

	fresh, err := cache.ListFresh(accountID)
	if err != nil {
		t.Fatalf("list fresh: %v", err)
	}
	if len(fresh) != 0 {
		t.Fatalf("stale record counted as fresh: %v", fresh)
	}
}

func TestCache_GetAbsent(t *testing.T) {
	st, accountID := newTestStore(t)
	cache := NewCache(st, evidenceConfig())

	rec, err := cache.Get(accountID, model.EvidenceProfile)
	if err != nil || rec != nil {
		t.Fatalf("absent get: %+v err=%v", rec, err)
	}
}

func TestFetchSiteSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Acme Corp</title>
			<meta name="description" content="Industrial widgets since 1952"></head>
			<body>hello</body></html>`))
	}))
	defer srv.Close()

	fetcher := NewFetcher(evidenceConfig())
	summary, err := fetcher.FetchSiteSummary(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if summary.Title != "Acme Corp" {
		t.Fatalf("title = %q", summary.Title)
	}
	if summary.Description != "Industrial widgets since 1952" {
		t.Fatalf("description = %q", summary.Description)
	}
}

func TestFetchSiteSummary_RobotsDisallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte("User-agent: *\nDisallow: /\n"))
			return
		}
		t.Error("page fetched despite robots.txt disallow")
	}))
	defer srv.Close()

	fetcher := NewFetcher(evidenceConfig())
	if _, err := fetcher.FetchSiteSummary(context.Background(), srv.URL+"/about"); err == nil {
		t.Fatal("expected robots.txt refusal")
	}
}

func TestCollector_ProfileUsesSiteSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`<html><head><title>Acme Corp - Widgets</title></head></html>`))
	}))
	defer srv.Close()

	st, accountID := newTestStore(t)
	account, err := st.GetAccount(accountID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	account.Website = srv.URL
	if err := st.UpdateAccount(account); err != nil {
		t.Fatalf("update account: %v", err)
	}

	var sawPrompt string
	provider := &stubProvider{respond: func(role, prompt string) (string, error) {
		sawPrompt = prompt
		return "Acme Corp makes industrial widgets.", nil
	}}
	client := llm.NewClient(provider, model.LLMConfig{Timeout: 5, RequestsPerSecond: 1000, Burst: 1000})
	cache := NewCache(st, evidenceConfig())
	collector := NewCollector(client, cache, NewFetcher(evidenceConfig()), zap.NewNop())

	rec, err := collector.Collect(context.Background(), account, model.EvidenceProfile)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if !strings.Contains(sawPrompt, "Acme Corp - Widgets") {
		t.Fatalf("prompt missing site title:\n%s", sawPrompt)
	}
	if rec.SourceURL == "" {
		t.Fatal("source URL not recorded from the scrape")
	}
	if rec.Content != "Acme Corp makes industrial widgets." {
		t.Fatalf("content = %q", rec.Content)
	}
}

func TestCollector_CollectAllSkipsFailures(t *testing.T) {
	st, accountID := newTestStore(t)
	account, err := st.GetAccount(accountID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}

	provider := &stubProvider{respond: func(role, prompt string) (string, error) {
		if strings.Contains(prompt, "recent developments") {
			return "", model.Permanentf("refused")
		}
		return "briefing", nil
	}}
	client := llm.NewClient(provider, model.LLMConfig{Timeout: 5, RequestsPerSecond: 1000, Burst: 1000})
	cache := NewCache(st, evidenceConfig())
	collector := NewCollector(client, cache, nil, zap.NewNop())

	records, err := collector.CollectAll(context.Background(), account)
	if err == nil {
		t.Fatal("expected joined error for the failed type")
	}
	if len(records) != 2 {
		t.Fatalf("collected %d records, want profile and market", len(records))
	}
	for _, rec := range records {
		if rec.Type == model.EvidenceNews {
			t.Fatal("failed type present in results")
		}
	}
}

func TestCollector_DisabledClient(t *testing.T) {
	st, accountID := newTestStore(t)
	account, err := st.GetAccount(accountID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	cache := NewCache(st, evidenceConfig())
	collector := NewCollector(nil, cache, nil, zap.NewNop())

	if _, err := collector.Collect(context.Background(), account, model.EvidenceProfile); err == nil {
		t.Fatal("expected error without a completion provider")
	}
}
