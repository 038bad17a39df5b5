package evidence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/harry720320/account-plan-agent/internal/llm"
	"github.com/harry720320/account-plan-agent/internal/model"
)

const analystRole = "You are a business analyst who compiles concise, factual briefings " +
	"about companies. State only what is supported by the provided context or widely " +
	"known; say explicitly when information is unavailable."

// Collector gathers external evidence through the completion service
// and stores it in the cache.
type Collector struct {
	client  *llm.Client
	cache   *Cache
	fetcher *Fetcher
	logger  *zap.Logger
}

// NewCollector creates a collector. fetcher may be nil to disable
// website scraping.
func NewCollector(client *llm.Client, cache *Cache, fetcher *Fetcher, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{client: client, cache: cache, fetcher: fetcher, logger: logger}
}

// Collect gathers one evidence type for an account and upserts it,
// replacing any prior record of that type.
func (c *Collector) Collect(ctx context.Context, account *model.Account, typ model.EvidenceType) (*model.EvidenceRecord, error) {
	if _, err := model.ParseEvidenceType(string(typ)); err != nil {
		return nil, err
	}
	if !c.client.Enabled() {
		return nil, model.Permanentf("evidence collection requires a completion provider")
	}

	sourceURL := ""
	var site *SiteSummary
	if typ == model.EvidenceProfile && c.fetcher != nil && account.Website != "" {
		var err error
		site, err = c.fetcher.FetchSiteSummary(ctx, account.Website)
		if err != nil {
			// The scrape is an enrichment, not a requirement.
			c.logger.Warn("website fetch failed",
				zap.String("company", account.CompanyName),
				zap.Error(err))
		} else {
			sourceURL = site.FinalURL
		}
	}

	prompt := buildEvidencePrompt(account, typ, site)
	content, err := c.client.Complete(ctx, analystRole, prompt, llm.Options{})
	if err != nil {
		return nil, fmt.Errorf("collect %s: %w", typ, err)
	}

	return c.cache.Upsert(account.ID, typ, content, sourceURL)
}

// CollectAll gathers every recognized evidence type. Failed types are
// skipped; already-collected records are kept.
func (c *Collector) CollectAll(ctx context.Context, account *model.Account) ([]*model.EvidenceRecord, error) {
	var records []*model.EvidenceRecord
	var errs []error
	for _, typ := range model.EvidenceTypes() {
		rec, err := c.Collect(ctx, account, typ)
		if err != nil {
			c.logger.Warn("evidence collection failed",
				zap.String("company", account.CompanyName),
				zap.String("type", string(typ)),
				zap.Error(err))
			errs = append(errs, err)
			continue
		}
		records = append(records, rec)
	}
	return records, errors.Join(errs...)
}

func buildEvidencePrompt(account *model.Account, typ model.EvidenceType, site *SiteSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\n", account.CompanyName)
	if account.Industry != "" {
		fmt.Fprintf(&b, "Industry: %s\n", account.Industry)
	}
	if account.CompanySize != "" {
		fmt.Fprintf(&b, "Company size: %s\n", account.CompanySize)
	}
	fmt.Fprintf(&b, "Country: %s\n", account.Country)
	if account.Description != "" {
		fmt.Fprintf(&b, "Known description: %s\n", account.Description)
	}
	if site != nil {
		fmt.Fprintf(&b, "Website title: %s\n", site.Title)
		if site.Description != "" {
			fmt.Fprintf(&b, "Website description: %s\n", site.Description)
		}
	}
	b.WriteString("\n")

	switch typ {
	case model.EvidenceProfile:
		b.WriteString("Write a short company profile covering industry, size, main " +
			"products or services, and market position. If a detail is unknown, say so.")
	case model.EvidenceNews:
		b.WriteString("Summarize notable recent developments about this company that " +
			"are relevant to a business relationship. If nothing is known, say so.")
	case model.EvidenceMarket:
		b.WriteString("Summarize the market this company operates in: trends, main " +
			"competitors, opportunities, and risks. If a detail is unknown, say so.")
	}
	return b.String()
}
