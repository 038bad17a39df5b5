// Package completeness scores catalog categories against the collected
// answers. Its mapping is the sole signal the question selector
// consumes; the selector never re-derives completeness itself.
package completeness

import (
	"time"

	"github.com/harry720320/account-plan-agent/internal/catalog"
	"github.com/harry720320/account-plan-agent/internal/model"
	"github.com/harry720320/account-plan-agent/internal/store"
)

// nowFunc is a package-level var to allow test injection.
var nowFunc = time.Now

// Evaluator inspects the latest turn per category.
type Evaluator struct {
	store   *store.Store
	catalog *catalog.Catalog
	horizon time.Duration
}

// NewEvaluator creates an evaluator over the given catalog.
func NewEvaluator(st *store.Store, cat *catalog.Catalog, cfg model.ElicitationConfig) *Evaluator {
	return &Evaluator{store: st, catalog: cat, horizon: cfg.FreshnessHorizon}
}

// Evaluate maps every active catalog category to its status. A
// category with at least one turn is never unanswered; a latest turn
// older than the freshness horizon is stale; a latest turn classified
// as contradicting its predecessor is conflicting.
func (e *Evaluator) Evaluate(accountID int64) (map[model.Category]model.CategoryStatus, error) {
	statuses := make(map[model.Category]model.CategoryStatus)
	now := nowFunc()

	for _, category := range e.catalog.ActiveCategories() {
		latest, err := e.store.LatestTurn(accountID, category)
		if err != nil {
			return nil, err
		}
		switch {
		case latest == nil:
			statuses[category] = model.StatusUnanswered
		case e.horizon > 0 && now.Sub(latest.CreatedAt) > e.horizon:
			statuses[category] = model.StatusStale
		case latest.Classification == model.ClassificationContradicts:
			statuses[category] = model.StatusConflicting
		default:
			statuses[category] = model.StatusAnswered
		}
	}
	return statuses, nil
}
