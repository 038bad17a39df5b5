// Package history compares new answers against previously collected
// ones and classifies each as new, confirming, or contradicting. The
// comparison is a semantic judgment delegated to the completion
// service; rephrasings of a prior answer count as confirming.
package history

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/harry720320/account-plan-agent/internal/llm"
	"github.com/harry720320/account-plan-agent/internal/model"
	"github.com/harry720320/account-plan-agent/internal/store"
)

const comparisonRole = "You compare two statements about the same business topic and " +
	"judge whether the second one confirms, contradicts, or is unrelated to the first. " +
	"Rephrasings of the same fact count as confirming. Answer with exactly one line: " +
	"CONFIRMS, NEW, or CONTRADICTS: <one sentence describing what changed>."

// Result is the detector's verdict for one new answer.
type Result struct {
	Classification model.Classification
	ChangeNote     string // Delta description, set only on contradicts
}

// Detector classifies answers against the most recent prior turn in
// the same category.
type Detector struct {
	client *llm.Client
	store  *store.Store
	logger *zap.Logger
}

// NewDetector creates a detector.
func NewDetector(client *llm.Client, st *store.Store, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{client: client, store: st, logger: logger}
}

// Classify compares newAnswer against the latest stored answer in the
// category. With no prior answer it returns new. A failed comparison
// call degrades to a conservative new classification and is logged as
// a soft error; data is never dropped because classification failed.
func (d *Detector) Classify(ctx context.Context, accountID int64, category model.Category, newAnswer string) (Result, error) {
	prior, err := d.store.LatestTurn(accountID, category)
	if err != nil {
		return Result{}, err
	}
	if prior == nil || strings.TrimSpace(prior.Answer) == "" {
		return Result{Classification: model.ClassificationNew}, nil
	}
	if !d.client.Enabled() {
		return Result{Classification: model.ClassificationNew}, nil
	}

	prompt := fmt.Sprintf(
		"Topic: %s\n\nPrevious answer:\n%s\n\nNew answer:\n%s\n\n"+
			"Does the new answer confirm the previous one, contradict it, or cover new ground?",
		category, prior.Answer, newAnswer,
	)
	verdict, err := d.client.Complete(ctx, comparisonRole, prompt, llm.Options{MaxTokens: 200})
	if err != nil {
		d.logger.Warn("answer classification degraded to new",
			zap.Int64("account_id", accountID),
			zap.String("category", string(category)),
			zap.Error(err))
		return Result{Classification: model.ClassificationNew}, nil
	}

	result, ok := parseVerdict(verdict)
	if !ok {
		d.logger.Warn("unparseable classification verdict",
			zap.Int64("account_id", accountID),
			zap.String("category", string(category)),
			zap.String("verdict", verdict))
		return Result{Classification: model.ClassificationNew}, nil
	}
	return result, nil
}

// parseVerdict reads the one-line verdict format the comparison role
// requests.
func parseVerdict(raw string) (Result, bool) {
	line := strings.TrimSpace(raw)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	upper := strings.ToUpper(line)

	switch {
	case strings.HasPrefix(upper, "CONFIRMS"):
		return Result{Classification: model.ClassificationConfirms}, true
	case strings.HasPrefix(upper, "NEW"):
		return Result{Classification: model.ClassificationNew}, true
	case strings.HasPrefix(upper, "CONTRADICTS"):
		note := strings.TrimPrefix(line, line[:len("CONTRADICTS")])
		note = strings.TrimSpace(strings.TrimLeft(note, ":–—- "))
		return Result{Classification: model.ClassificationContradicts, ChangeNote: note}, true
	}
	return Result{}, false
}
