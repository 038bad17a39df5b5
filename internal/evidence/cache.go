// Package evidence implements the external-evidence cache and the
// collector that populates it. The cache holds at most one current
// record per (account, evidence-type); a new collection replaces the
// prior record for that type.
package evidence

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/harry720320/account-plan-agent/internal/model"
	"github.com/harry720320/account-plan-agent/internal/store"
)

// nowFunc is a package-level var to allow test injection.
var nowFunc = time.Now

// Cache is a read-through memory layer over the persistent store.
type Cache struct {
	store   *store.Store
	memory  *gocache.Cache
	horizon time.Duration
}

// NewCache creates the evidence cache.
func NewCache(st *store.Store, cfg model.EvidenceConfig) *Cache {
	ttl := cfg.MemoryTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{
		store:   st,
		memory:  gocache.New(ttl, 2*ttl),
		horizon: cfg.StalenessHorizon,
	}
}

func cacheKey(accountID int64, typ model.EvidenceType) string {
	return fmt.Sprintf("%d:%s", accountID, typ)
}

// Upsert replaces any existing record for (account, type) and returns
// the new record. Unrecognized types fail with a validation error.
func (c *Cache) Upsert(accountID int64, typ model.EvidenceType, content, sourceURL string) (*model.EvidenceRecord, error) {
	rec := &model.EvidenceRecord{
		AccountID: accountID,
		Type:      typ,
		Content:   content,
		SourceURL: sourceURL,
	}
	if err := c.store.UpsertEvidence(rec); err != nil {
		return nil, err
	}
	c.memory.Set(cacheKey(accountID, typ), rec, gocache.DefaultExpiration)
	return rec, nil
}

// Get returns the current record for (account, type) verbatim, or nil
// when absent. Staleness does not affect Get.
func (c *Cache) Get(accountID int64, typ model.EvidenceType) (*model.EvidenceRecord, error) {
	if val, found := c.memory.Get(cacheKey(accountID, typ)); found {
		return val.(*model.EvidenceRecord), nil
	}
	rec, err := c.store.GetEvidence(accountID, typ)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		c.memory.Set(cacheKey(accountID, typ), rec, gocache.DefaultExpiration)
	}
	return rec, nil
}

// List returns all current records for an account, one per type. No
// ordering guarantee beyond per-type uniqueness.
func (c *Cache) List(accountID int64) ([]*model.EvidenceRecord, error) {
	return c.store.ListEvidence(accountID)
}

// ListFresh returns current records younger than the staleness
// horizon. Records older than the horizon are treated as absent for
// planning purposes.
func (c *Cache) ListFresh(accountID int64) ([]*model.EvidenceRecord, error) {
	records, err := c.store.ListEvidence(accountID)
	if err != nil {
		return nil, err
	}
	now := nowFunc()
	fresh := records[:0]
	for _, rec := range records {
		if !rec.Stale(c.horizon, now) {
			fresh = append(fresh, rec)
		}
	}
	return fresh, nil
}
